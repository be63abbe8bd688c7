package numeric

import (
	"sort"

	"github.com/forest33/edsp/business/entity"
)

// Integer coordinate types supported by the interpolators
type Integer interface {
	~int32 | ~uint32 | ~int64
}

// Point 2D point
type Point[T Integer] struct {
	X T `yaml:"x" json:"x"`
	Y T `yaml:"y" json:"y"`
}

// Linearize returns the y of the line through p1 and p2 at x.
// Integer arithmetic truncates toward zero.
func Linearize[T Integer](p1, p2 Point[T], x T) (T, error) {
	if p1.X == p2.X {
		return 0, entity.ErrBadParam
	}
	if x == p1.X {
		return p1.Y, nil
	}
	if x == p2.X {
		return p2.Y, nil
	}

	// y = (y2 - y1) * (x - x1) / (x2 - x1) + y1
	a, err := SubInt64(int64(p2.Y), int64(p1.Y))
	if err != nil {
		return 0, err
	}
	b, err := SubInt64(int64(x), int64(p1.X))
	if err != nil {
		return 0, err
	}
	c, err := SubInt64(int64(p2.X), int64(p1.X))
	if err != nil {
		return 0, err
	}
	ab, err := MulInt64(a, b)
	if err != nil {
		return 0, err
	}
	q, err := DivInt64(ab, c)
	if err != nil {
		return 0, err
	}
	y, err := AddInt64(q, int64(p1.Y))
	if err != nil {
		return 0, err
	}

	if int64(T(y)) != y {
		return 0, entity.ErrOverflow
	}

	return T(y), nil
}

// Series piecewise linear function over points with strictly increasing X.
// Values outside the covered range are extrapolated from the edge segments.
type Series[T Integer] struct {
	points []Point[T]
}

// NewSeries creates a Series from a copy of points
func NewSeries[T Integer](points []Point[T]) (*Series[T], error) {
	if points == nil {
		return nil, entity.ErrBadPointer
	}
	if !validSeries(points) {
		return nil, entity.ErrBadParam
	}

	s := &Series[T]{points: make([]Point[T], len(points))}
	copy(s.points, points)

	return s, nil
}

// Linearize returns the interpolated y at x
func (s *Series[T]) Linearize(x T) (T, error) {
	if s == nil {
		return 0, entity.ErrBadPointer
	}
	if !validSeries(s.points) {
		return 0, entity.ErrCorruptContext
	}

	last := len(s.points) - 1
	switch {
	case x <= s.points[0].X:
		return Linearize(s.points[0], s.points[1], x)
	case x >= s.points[last].X:
		return Linearize(s.points[last-1], s.points[last], x)
	}

	i := sort.Search(len(s.points), func(i int) bool { return s.points[i].X >= x })

	return Linearize(s.points[i-1], s.points[i], x)
}

// Points returns a copy of the series points
func (s *Series[T]) Points() []Point[T] {
	out := make([]Point[T], len(s.points))
	copy(out, s.points)
	return out
}

func validSeries[T Integer](points []Point[T]) bool {
	if len(points) < 2 {
		return false
	}
	for i := 1; i < len(points); i++ {
		if points[i].X <= points[i-1].X {
			return false
		}
	}
	return true
}
