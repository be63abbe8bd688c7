package numeric

import (
	"github.com/forest33/edsp/business/entity"
)

// Derivative discrete derivative of a sampled signal
type Derivative struct {
	prev    int64
	cur     int64
	elapsed uint32
	hasPrev bool
	hasCur  bool
}

func NewDerivative() *Derivative {
	return &Derivative{}
}

// Reset forgets all samples
func (d *Derivative) Reset() {
	*d = Derivative{}
}

// Push adds a sample taken elapsed time units after the previous one and
// returns (cur - prev) / elapsed. The first sample returns entity.ErrNeedMoreValues.
func (d *Derivative) Push(v int64, elapsed uint32) (int64, error) {
	if d == nil {
		return 0, entity.ErrBadPointer
	}
	if !d.coherent() {
		return 0, entity.ErrCorruptContext
	}
	if elapsed == 0 {
		return 0, entity.ErrBadParam
	}

	if d.hasCur {
		d.prev = d.cur
		d.hasPrev = true
	}
	d.cur = v
	d.elapsed = elapsed
	d.hasCur = true

	if !d.hasPrev {
		return 0, entity.ErrNeedMoreValues
	}

	diff, err := SubInt64(d.cur, d.prev)
	if err != nil {
		return 0, err
	}

	return diff / int64(d.elapsed), nil
}

func (d *Derivative) coherent() bool {
	if !d.hasCur {
		return !d.hasPrev && d.prev == 0 && d.cur == 0 && d.elapsed == 0
	}
	if !d.hasPrev {
		return d.prev == 0 && d.elapsed != 0
	}
	return d.elapsed != 0
}
