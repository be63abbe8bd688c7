package filter

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/forest33/edsp/business/entity"
)

type step struct {
	in   int64
	want int64
	err  error
}

func runSteps(t *testing.T, f Filter, steps []step) {
	t.Helper()
	for i, s := range steps {
		got, err := f.Push(s.in)
		if s.err != nil {
			require.ErrorIs(t, err, s.err, "step %d", i)
			continue
		}
		require.NoError(t, err, "step %d", i)
		require.Equal(t, s.want, got, "step %d", i)
	}
}

func TestWindowFilters(t *testing.T) {
	type testCase struct {
		cfg   Config
		steps []step
	}

	tests := map[string]testCase{
		"moving-mean": {
			cfg: Config{Kind: KindMovingMean, Window: 3},
			steps: []step{
				{in: 1, err: entity.ErrNeedMoreValues},
				{in: 2, err: entity.ErrNeedMoreValues},
				{in: 3, want: 2},
				{in: 4, want: 3},
				{in: 10, want: 5},
			},
		},
		"median-odd": {
			cfg: Config{Kind: KindMedian, Window: 3},
			steps: []step{
				{in: 5, err: entity.ErrNeedMoreValues},
				{in: 1, err: entity.ErrNeedMoreValues},
				{in: 9, want: 5},
				{in: 2, want: 2},
				{in: 3, want: 3},
			},
		},
		"median-even": {
			cfg: Config{Kind: KindMedian, Window: 4},
			steps: []step{
				{in: 1, err: entity.ErrNeedMoreValues},
				{in: 2, err: entity.ErrNeedMoreValues},
				{in: 4, err: entity.ErrNeedMoreValues},
				{in: 10, want: 3},
				{in: -5, want: 3},
			},
		},
		"decimation-mean": {
			cfg: Config{Kind: KindDecimationMean, Window: 3},
			steps: []step{
				{in: 3, err: entity.ErrNeedMoreValues},
				{in: 6, err: entity.ErrNeedMoreValues},
				{in: 9, want: 6},
				{in: 1, err: entity.ErrNeedMoreValues},
				{in: 1, err: entity.ErrNeedMoreValues},
				{in: 4, want: 2},
			},
		},
		"decimation-median": {
			cfg: Config{Kind: KindDecimationMedian, Window: 3},
			steps: []step{
				{in: 7, err: entity.ErrNeedMoreValues},
				{in: 1, err: entity.ErrNeedMoreValues},
				{in: 3, want: 3},
			},
		},
		"mean-overflow": {
			cfg: Config{Kind: KindMovingMean, Window: 3},
			steps: []step{
				{in: math.MaxInt64, err: entity.ErrNeedMoreValues},
				{in: 1, err: entity.ErrNeedMoreValues},
				{in: 1, err: entity.ErrOverflow},
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			f, err := New(tc.cfg)
			require.NoError(t, err)
			runSteps(t, f, tc.steps)

			f.Reset()
			_, err = f.Push(1)
			assert.ErrorIs(t, err, entity.ErrNeedMoreValues)
		})
	}
}

func TestNew(t *testing.T) {
	type testCase struct {
		cfg Config
		err error
	}

	tests := map[string]testCase{
		"unknown":         {cfg: Config{Kind: "kalman"}, err: entity.ErrBadParam},
		"empty-kind":      {cfg: Config{}, err: entity.ErrBadParam},
		"short-window":    {cfg: Config{Kind: KindMovingMean, Window: 2}, err: entity.ErrBadParam},
		"no-window":       {cfg: Config{Kind: KindMedian}, err: entity.ErrBadParam},
		"lowpass-cutoff":  {cfg: Config{Kind: KindLowPass, SampleMillis: 10}, err: entity.ErrBadParam},
		"highpass-sample": {cfg: Config{Kind: KindHighPass, CutoffMilliHz: 1000}, err: entity.ErrBadParam},
		"lowpass":         {cfg: Config{Kind: KindLowPass, CutoffMilliHz: 1000, SampleMillis: 10}},
		"decimation":      {cfg: Config{Kind: KindDecimationMedian, Window: 5}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			f, err := New(tc.cfg)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, f)
		})
	}

	_, err := NewMovingMean(nil)
	assert.ErrorIs(t, err, entity.ErrBadPointer)
	_, err = NewDecimation(make([]int64, 3), DecimationKind(7))
	assert.ErrorIs(t, err, entity.ErrBadParam)
}

func TestLowPass(t *testing.T) {
	f, err := NewLowPass(1000, 10)
	require.NoError(t, err)

	_, err = f.Push(0)
	require.ErrorIs(t, err, entity.ErrNeedMoreValues)

	var prev int64
	for i := 0; i < 500; i++ {
		v, err := f.Push(1000)
		require.NoError(t, err)
		require.GreaterOrEqual(t, v, prev)
		require.LessOrEqual(t, v, int64(1000))
		prev = v
	}
	assert.Equal(t, int64(1000), prev)

	f.Reset()
	_, err = f.Push(42)
	require.ErrorIs(t, err, entity.ErrNeedMoreValues)
	v, err := f.Push(42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	f.alpha = 0
	_, err = f.Push(1)
	assert.ErrorIs(t, err, entity.ErrCorruptContext)
}

func TestHighPass(t *testing.T) {
	f, err := NewHighPass(1000, 10)
	require.NoError(t, err)

	_, err = f.Push(0)
	require.ErrorIs(t, err, entity.ErrNeedMoreValues)

	v, err := f.Push(1000)
	require.NoError(t, err)
	assert.Greater(t, v, int64(900))
	assert.Less(t, v, int64(1000))

	for i := 0; i < 500; i++ {
		next, err := f.Push(1000)
		require.NoError(t, err)
		require.LessOrEqual(t, next, v)
		v = next
	}
	assert.Zero(t, v)

	f.alpha = 1
	_, err = f.Push(1)
	assert.ErrorIs(t, err, entity.ErrCorruptContext)
}

func TestChain(t *testing.T) {
	mm, err := New(Config{Kind: KindMovingMean, Window: 3})
	require.NoError(t, err)
	dec, err := New(Config{Kind: KindDecimationMean, Window: 3})
	require.NoError(t, err)

	c := Chain{mm, dec}
	runSteps(t, c, []step{
		{in: 1, err: entity.ErrNeedMoreValues},
		{in: 2, err: entity.ErrNeedMoreValues},
		{in: 3, err: entity.ErrNeedMoreValues},
		{in: 4, err: entity.ErrNeedMoreValues},
		{in: 5, want: 3},
	})

	c.Reset()
	_, err = c.Push(1)
	assert.ErrorIs(t, err, entity.ErrNeedMoreValues)

	v, err := Chain{}.Push(7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
}

func TestCorruptWindow(t *testing.T) {
	mm, err := NewMovingMean(make([]int64, 3))
	require.NoError(t, err)
	mm.r.next = 5
	_, err = mm.Push(1)
	assert.ErrorIs(t, err, entity.ErrCorruptContext)

	md, err := NewMedian(make([]int64, 3))
	require.NoError(t, err)
	md.scratch = md.scratch[:1]
	_, err = md.Push(1)
	assert.ErrorIs(t, err, entity.ErrCorruptContext)

	dec, err := NewDecimation(make([]int64, 3), DecimationMean)
	require.NoError(t, err)
	dec.kind = 9
	_, err = dec.Push(1)
	assert.ErrorIs(t, err, entity.ErrCorruptContext)
}

func TestMedianMatchesSorted(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(minWindowLen, 15).Draw(t, "n").(int)
		f, err := NewMedian(make([]int64, n))
		if err != nil {
			t.Fatal(err)
		}

		values := make([]int64, n)
		var got int64
		for i := range values {
			values[i] = int64(rapid.Int32().Draw(t, "v").(int32))
			got, err = f.Push(values[i])
		}
		if err != nil {
			t.Fatalf("push: %v", err)
		}

		slices.Sort(values)
		want := values[n/2]
		if n%2 == 0 {
			want = values[n/2-1] + (values[n/2]-values[n/2-1])/2
		}
		if got != want {
			t.Fatalf("median of %v: got %d, want %d", values, got, want)
		}
	})
}
