package filter

import (
	"math"

	"github.com/forest33/edsp/business/entity"
)

// LowPass first order RC low-pass filter.
// y = a*x + (1-a)*y_prev, a = dt / (RC + dt), RC = 1 / (2*pi*fc)
type LowPass struct {
	alpha  float64
	y      float64
	primed bool
}

// NewLowPass creates a low-pass filter with cutoff in mHz for samples taken every sampleMillis ms
func NewLowPass(cutoffMilliHz, sampleMillis uint32) (*LowPass, error) {
	rc, dt, err := rcDt(cutoffMilliHz, sampleMillis)
	if err != nil {
		return nil, err
	}
	return &LowPass{alpha: dt / (rc + dt)}, nil
}

// Push returns entity.ErrNeedMoreValues for the first sample
func (f *LowPass) Push(v int64) (int64, error) {
	if f.alpha <= 0 || f.alpha >= 1 {
		return 0, entity.ErrCorruptContext
	}

	x := float64(v)
	if !f.primed {
		f.y = x
		f.primed = true
		return 0, entity.ErrNeedMoreValues
	}

	f.y = f.alpha*x + (1-f.alpha)*f.y

	return toInt64(f.y)
}

func (f *LowPass) Reset() {
	f.y = 0
	f.primed = false
}

// HighPass first order RC high-pass filter.
// y = a * (y_prev + x - x_prev), a = RC / (RC + dt)
type HighPass struct {
	alpha  float64
	y      float64
	x      float64
	primed bool
}

// NewHighPass creates a high-pass filter with cutoff in mHz for samples taken every sampleMillis ms
func NewHighPass(cutoffMilliHz, sampleMillis uint32) (*HighPass, error) {
	rc, dt, err := rcDt(cutoffMilliHz, sampleMillis)
	if err != nil {
		return nil, err
	}
	return &HighPass{alpha: rc / (rc + dt)}, nil
}

// Push returns entity.ErrNeedMoreValues for the first sample
func (f *HighPass) Push(v int64) (int64, error) {
	if f.alpha <= 0 || f.alpha >= 1 {
		return 0, entity.ErrCorruptContext
	}

	x := float64(v)
	if !f.primed {
		f.x = x
		f.y = 0
		f.primed = true
		return 0, entity.ErrNeedMoreValues
	}

	f.y = f.alpha * (f.y + x - f.x)
	f.x = x

	return toInt64(f.y)
}

func (f *HighPass) Reset() {
	f.x = 0
	f.y = 0
	f.primed = false
}

func rcDt(cutoffMilliHz, sampleMillis uint32) (float64, float64, error) {
	if cutoffMilliHz == 0 || sampleMillis == 0 {
		return 0, 0, entity.ErrBadParam
	}
	fc := float64(cutoffMilliHz) / 1000
	return 1 / (2 * math.Pi * fc), float64(sampleMillis) / 1000, nil
}

func toInt64(v float64) (int64, error) {
	r := math.Round(v)
	if math.IsNaN(r) || r >= math.MaxInt64 || r < math.MinInt64 {
		return 0, entity.ErrOverflow
	}
	return int64(r), nil
}
