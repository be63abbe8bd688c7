// Package numeric overflow checked integer arithmetic, interpolation, derivative and integral
package numeric

import (
	"math"

	"github.com/forest33/edsp/business/entity"
)

// AddInt64 returns a+b or entity.ErrOverflow
func AddInt64(a, b int64) (int64, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, entity.ErrOverflow
	}
	return a + b, nil
}

// SubInt64 returns a-b or entity.ErrOverflow
func SubInt64(a, b int64) (int64, error) {
	if (b < 0 && a > math.MaxInt64+b) || (b > 0 && a < math.MinInt64+b) {
		return 0, entity.ErrOverflow
	}
	return a - b, nil
}

// MulInt64 returns a*b or entity.ErrOverflow
func MulInt64(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, entity.ErrOverflow
	}
	c := a * b
	if c/b != a {
		return 0, entity.ErrOverflow
	}
	return c, nil
}

// DivInt64 returns a/b truncated toward zero, entity.ErrBadParam for a zero
// divisor or entity.ErrOverflow for math.MinInt64 / -1
func DivInt64(a, b int64) (int64, error) {
	if b == 0 {
		return 0, entity.ErrBadParam
	}
	if a == math.MinInt64 && b == -1 {
		return 0, entity.ErrOverflow
	}
	return a / b, nil
}
