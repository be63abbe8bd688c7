package filter

import (
	"github.com/forest33/edsp/business/entity"
)

// MovingMean mean of the last len(window) samples
type MovingMean struct {
	r ring
}

// NewMovingMean uses window as sample storage, at least 3 samples long
func NewMovingMean(window []int64) (*MovingMean, error) {
	r, err := newRing(window)
	if err != nil {
		return nil, err
	}
	return &MovingMean{r: r}, nil
}

func (f *MovingMean) Push(v int64) (int64, error) {
	if !f.r.coherent() {
		return 0, entity.ErrCorruptContext
	}

	f.r.push(v)
	if !f.r.full() {
		return 0, entity.ErrNeedMoreValues
	}

	return mean(f.r.buf)
}

func (f *MovingMean) Reset() {
	f.r.reset()
}

// Median median of the last len(window) samples.
// For even windows the two middle values are averaged.
type Median struct {
	r       ring
	scratch []int64
}

// NewMedian uses window as sample storage, at least 3 samples long
func NewMedian(window []int64) (*Median, error) {
	r, err := newRing(window)
	if err != nil {
		return nil, err
	}
	return &Median{
		r:       r,
		scratch: make([]int64, len(window)),
	}, nil
}

func (f *Median) Push(v int64) (int64, error) {
	if !f.r.coherent() || len(f.scratch) != len(f.r.buf) {
		return 0, entity.ErrCorruptContext
	}

	f.r.push(v)
	if !f.r.full() {
		return 0, entity.ErrNeedMoreValues
	}

	copy(f.scratch, f.r.buf)

	return median(f.scratch)
}

func (f *Median) Reset() {
	f.r.reset()
}

// DecimationKind reduction applied to each block of a Decimation filter
type DecimationKind uint8

const (
	DecimationMean DecimationKind = iota
	DecimationMedian
)

// Decimation emits one value per len(window) samples
type Decimation struct {
	r       ring
	kind    DecimationKind
	scratch []int64
}

// NewDecimation uses window as block storage, at least 3 samples long
func NewDecimation(window []int64, kind DecimationKind) (*Decimation, error) {
	if kind != DecimationMean && kind != DecimationMedian {
		return nil, entity.ErrBadParam
	}

	r, err := newRing(window)
	if err != nil {
		return nil, err
	}

	f := &Decimation{r: r, kind: kind}
	if kind == DecimationMedian {
		f.scratch = make([]int64, len(window))
	}

	return f, nil
}

func (f *Decimation) Push(v int64) (int64, error) {
	if !f.r.coherent() || f.kind > DecimationMedian {
		return 0, entity.ErrCorruptContext
	}

	f.r.push(v)
	if !f.r.full() {
		return 0, entity.ErrNeedMoreValues
	}
	defer f.r.reset()

	if f.kind == DecimationMedian {
		copy(f.scratch, f.r.buf)
		return median(f.scratch)
	}

	return mean(f.r.buf)
}

func (f *Decimation) Reset() {
	f.r.reset()
}
