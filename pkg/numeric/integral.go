package numeric

import (
	"github.com/forest33/edsp/business/entity"
)

// Integral running rectangle rule integral of a sampled signal
type Integral struct {
	cur      int64
	integral int64
	hasCur   bool
}

func NewIntegral() *Integral {
	return &Integral{}
}

// Reset forgets all samples and the accumulated value
func (i *Integral) Reset() {
	*i = Integral{}
}

// Push adds a sample taken elapsed time units after the previous one and
// returns the accumulated integral. The first sample only opens the interval
// and returns entity.ErrNeedMoreValues.
func (i *Integral) Push(v int64, elapsed uint32) (int64, error) {
	if i == nil {
		return 0, entity.ErrBadPointer
	}
	if !i.hasCur && (i.cur != 0 || i.integral != 0) {
		return 0, entity.ErrCorruptContext
	}
	if elapsed == 0 {
		return 0, entity.ErrBadParam
	}

	if !i.hasCur {
		i.cur = v
		i.hasCur = true
		return 0, entity.ErrNeedMoreValues
	}

	inc, err := MulInt64(v, int64(elapsed))
	if err != nil {
		return 0, err
	}
	sum, err := AddInt64(i.integral, inc)
	if err != nil {
		return 0, err
	}

	i.cur = v
	i.integral = sum

	return i.integral, nil
}

// Value accumulated integral
func (i *Integral) Value() int64 {
	return i.integral
}
