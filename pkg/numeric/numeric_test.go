package numeric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/forest33/edsp/business/entity"
)

func TestOverflowChecks(t *testing.T) {
	type testCase struct {
		f    func(a, b int64) (int64, error)
		a, b int64
		want int64
		err  error
	}

	tests := map[string]testCase{
		"add":              {f: AddInt64, a: 2, b: 3, want: 5},
		"add-max":          {f: AddInt64, a: math.MaxInt64 - 1, b: 1, want: math.MaxInt64},
		"add-overflow":     {f: AddInt64, a: math.MaxInt64, b: 1, err: entity.ErrOverflow},
		"add-underflow":    {f: AddInt64, a: math.MinInt64, b: -1, err: entity.ErrOverflow},
		"add-mixed":        {f: AddInt64, a: math.MinInt64, b: math.MaxInt64, want: -1},
		"sub":              {f: SubInt64, a: 2, b: 3, want: -1},
		"sub-overflow":     {f: SubInt64, a: math.MaxInt64, b: -1, err: entity.ErrOverflow},
		"sub-underflow":    {f: SubInt64, a: math.MinInt64, b: 1, err: entity.ErrOverflow},
		"sub-min-from-0":   {f: SubInt64, a: 0, b: math.MinInt64, err: entity.ErrOverflow},
		"mul":              {f: MulInt64, a: -4, b: 5, want: -20},
		"mul-zero":         {f: MulInt64, a: 0, b: math.MinInt64, want: 0},
		"mul-overflow":     {f: MulInt64, a: math.MaxInt64/2 + 1, b: 2, err: entity.ErrOverflow},
		"mul-neg-overflow": {f: MulInt64, a: math.MinInt64, b: -1, err: entity.ErrOverflow},
		"mul-neg-neg":      {f: MulInt64, a: -3, b: -7, want: 21},
		"div":              {f: DivInt64, a: -7, b: 2, want: -3},
		"div-zero":         {f: DivInt64, a: 1, b: 0, err: entity.ErrBadParam},
		"div-overflow":     {f: DivInt64, a: math.MinInt64, b: -1, err: entity.ErrOverflow},
		"div-min-by-one":   {f: DivInt64, a: math.MinInt64, b: 1, want: math.MinInt64},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := tc.f(tc.a, tc.b)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAddInt64Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.Int32().Draw(t, "a").(int32)
		b := rapid.Int32().Draw(t, "b").(int32)
		got, err := AddInt64(int64(a), int64(b))
		if err != nil || got != int64(a)+int64(b) {
			t.Fatalf("%d + %d = %d, %v", a, b, got, err)
		}
		got, err = MulInt64(int64(a), int64(b))
		if err != nil || got != int64(a)*int64(b) {
			t.Fatalf("%d * %d = %d, %v", a, b, got, err)
		}
	})
}

func TestLinearize(t *testing.T) {
	type testCase struct {
		p1, p2 Point[int64]
		x      int64
		want   int64
		err    error
	}

	tests := map[string]testCase{
		"vertical":      {p1: Point[int64]{1, 1}, p2: Point[int64]{1, 5}, x: 1, err: entity.ErrBadParam},
		"at-p1":         {p1: Point[int64]{0, 10}, p2: Point[int64]{10, 20}, x: 0, want: 10},
		"at-p2":         {p1: Point[int64]{0, 10}, p2: Point[int64]{10, 20}, x: 10, want: 20},
		"middle":        {p1: Point[int64]{0, 10}, p2: Point[int64]{10, 20}, x: 5, want: 15},
		"descending":    {p1: Point[int64]{0, 100}, p2: Point[int64]{4, 0}, x: 1, want: 75},
		"truncation":    {p1: Point[int64]{0, 0}, p2: Point[int64]{3, 1}, x: 2, want: 0},
		"extrapolation": {p1: Point[int64]{0, 0}, p2: Point[int64]{2, 4}, x: -3, want: -6},
		"reversed":      {p1: Point[int64]{10, 20}, p2: Point[int64]{0, 10}, x: 5, want: 15},
		"overflow":      {p1: Point[int64]{0, 0}, p2: Point[int64]{1, math.MaxInt64}, x: 3, err: entity.ErrOverflow},
		"div-overflow":  {p1: Point[int64]{1, 0}, p2: Point[int64]{0, math.MinInt64}, x: 2, err: entity.ErrOverflow},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := Linearize(tc.p1, tc.p2, tc.x)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLinearizeUnsigned(t *testing.T) {
	got, err := Linearize(Point[uint32]{0, 0}, Point[uint32]{math.MaxUint32, math.MaxUint32}, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint32(1000), got)

	_, err = Linearize(Point[uint32]{10, 10}, Point[uint32]{20, 20}, 5)
	assert.NoError(t, err)

	_, err = Linearize(Point[uint32]{10, 0}, Point[uint32]{20, 10}, 5)
	assert.ErrorIs(t, err, entity.ErrOverflow)

	v, err := Linearize(Point[int32]{0, -100}, Point[int32]{10, 100}, 5)
	require.NoError(t, err)
	assert.Equal(t, int32(0), v)
}

func TestSeries(t *testing.T) {
	_, err := NewSeries[int64](nil)
	assert.ErrorIs(t, err, entity.ErrBadPointer)
	_, err = NewSeries([]Point[int64]{{0, 0}})
	assert.ErrorIs(t, err, entity.ErrBadParam)
	_, err = NewSeries([]Point[int64]{{0, 0}, {2, 1}, {2, 3}})
	assert.ErrorIs(t, err, entity.ErrBadParam)

	points := []Point[int64]{{0, 0}, {10, 100}, {20, 100}, {30, 0}}
	s, err := NewSeries(points)
	require.NoError(t, err)

	type testCase struct {
		x    int64
		want int64
	}

	tests := map[string]testCase{
		"before-first": {x: -5, want: -50},
		"first":        {x: 0, want: 0},
		"first-seg":    {x: 5, want: 50},
		"knot":         {x: 10, want: 100},
		"flat":         {x: 15, want: 100},
		"falling":      {x: 25, want: 50},
		"last":         {x: 30, want: 0},
		"after-last":   {x: 40, want: -100},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := s.Linearize(tc.x)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	points[1].X = 50
	got, err := s.Linearize(5)
	require.NoError(t, err)
	assert.Equal(t, int64(50), got, "series must not alias caller points")
	assert.Len(t, s.Points(), 4)

	s.points[2].X = 0
	_, err = s.Linearize(5)
	assert.ErrorIs(t, err, entity.ErrCorruptContext)
}

func TestDerivative(t *testing.T) {
	d := NewDerivative()

	_, err := d.Push(10, 0)
	assert.ErrorIs(t, err, entity.ErrBadParam)

	_, err = d.Push(10, 5)
	assert.ErrorIs(t, err, entity.ErrNeedMoreValues)

	v, err := d.Push(30, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(4), v)

	v, err = d.Push(0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(-3), v)

	_, err = d.Push(math.MinInt64, 1)
	require.NoError(t, err)
	_, err = d.Push(math.MaxInt64, 1)
	assert.ErrorIs(t, err, entity.ErrOverflow)

	d.Reset()
	_, err = d.Push(1, 1)
	assert.ErrorIs(t, err, entity.ErrNeedMoreValues)

	d.elapsed = 0
	_, err = d.Push(1, 1)
	assert.ErrorIs(t, err, entity.ErrCorruptContext)

	var nilDerivative *Derivative
	_, err = nilDerivative.Push(1, 1)
	assert.ErrorIs(t, err, entity.ErrBadPointer)
}

func TestIntegral(t *testing.T) {
	i := NewIntegral()

	_, err := i.Push(5, 0)
	assert.ErrorIs(t, err, entity.ErrBadParam)

	_, err = i.Push(5, 10)
	assert.ErrorIs(t, err, entity.ErrNeedMoreValues)

	v, err := i.Push(2, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(20), v)

	v, err = i.Push(-1, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(16), v)
	assert.Equal(t, int64(16), i.Value())

	_, err = i.Push(math.MaxInt64, 2)
	assert.ErrorIs(t, err, entity.ErrOverflow)
	assert.Equal(t, int64(16), i.Value())

	i.Reset()
	assert.Zero(t, i.Value())

	i.integral = 3
	_, err = i.Push(1, 1)
	assert.ErrorIs(t, err, entity.ErrCorruptContext)
}
