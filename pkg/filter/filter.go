// Package filter streaming filters over int64 samples
package filter

import (
	"slices"

	"github.com/forest33/edsp/business/entity"
	"github.com/forest33/edsp/pkg/numeric"
)

const (
	KindMovingMean       = "movmean"
	KindMedian           = "median"
	KindLowPass          = "lowpass"
	KindHighPass         = "highpass"
	KindDecimationMean   = "decimation-mean"
	KindDecimationMedian = "decimation-median"

	minWindowLen = 3
)

// Filter consumes one sample and returns the filtered value.
// entity.ErrNeedMoreValues means no output is available yet.
type Filter interface {
	Push(v int64) (int64, error)
	Reset()
}

// Config filter settings
type Config struct {
	Kind          string `yaml:"kind" mapstructure:"kind"`
	Window        int    `yaml:"window,omitempty" mapstructure:"window"`
	CutoffMilliHz uint32 `yaml:"cutoffMilliHz,omitempty" mapstructure:"cutoffMilliHz"`
	SampleMillis  uint32 `yaml:"sampleMillis,omitempty" mapstructure:"sampleMillis"`
}

// New creates a filter from its configuration
func New(cfg Config) (Filter, error) {
	switch cfg.Kind {
	case KindMovingMean:
		return NewMovingMean(makeWindow(cfg.Window))
	case KindMedian:
		return NewMedian(makeWindow(cfg.Window))
	case KindLowPass:
		return NewLowPass(cfg.CutoffMilliHz, cfg.SampleMillis)
	case KindHighPass:
		return NewHighPass(cfg.CutoffMilliHz, cfg.SampleMillis)
	case KindDecimationMean:
		return NewDecimation(makeWindow(cfg.Window), DecimationMean)
	case KindDecimationMedian:
		return NewDecimation(makeWindow(cfg.Window), DecimationMedian)
	}
	return nil, entity.ErrBadParam
}

// Chain runs filters in sequence, output of one feeding the next
type Chain []Filter

func (c Chain) Push(v int64) (int64, error) {
	var err error
	for _, f := range c {
		if v, err = f.Push(v); err != nil {
			return 0, err
		}
	}
	return v, nil
}

func (c Chain) Reset() {
	for _, f := range c {
		f.Reset()
	}
}

func makeWindow(n int) []int64 {
	if n <= 0 {
		return []int64{}
	}
	return make([]int64, n)
}

// ring circular window shared by the window based filters
type ring struct {
	buf    []int64
	filled int
	next   int
}

func newRing(buf []int64) (ring, error) {
	if buf == nil {
		return ring{}, entity.ErrBadPointer
	}
	if len(buf) < minWindowLen {
		return ring{}, entity.ErrBadParam
	}
	return ring{buf: buf}, nil
}

func (r *ring) push(v int64) {
	r.buf[r.next] = v
	r.next = (r.next + 1) % len(r.buf)
	if r.filled < len(r.buf) {
		r.filled++
	}
}

func (r *ring) full() bool {
	return r.filled == len(r.buf)
}

func (r *ring) reset() {
	r.filled = 0
	r.next = 0
}

func (r *ring) coherent() bool {
	return len(r.buf) >= minWindowLen && r.filled >= 0 && r.filled <= len(r.buf) && r.next >= 0 && r.next < len(r.buf)
}

func mean(values []int64) (int64, error) {
	var (
		sum int64
		err error
	)
	for _, v := range values {
		if sum, err = numeric.AddInt64(sum, v); err != nil {
			return 0, err
		}
	}
	return sum / int64(len(values)), nil
}

// median sorts scratch in place
func median(scratch []int64) (int64, error) {
	slices.Sort(scratch)

	mid := len(scratch) / 2
	if len(scratch)%2 == 1 {
		return scratch[mid], nil
	}

	diff, err := numeric.SubInt64(scratch[mid], scratch[mid-1])
	if err != nil {
		return 0, err
	}

	return scratch[mid-1] + diff/2, nil
}
