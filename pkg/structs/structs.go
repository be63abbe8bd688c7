// Package structs generic helpers for values, pointers and slices
package structs

// If returns a when cond is true, otherwise b
func If[T any](cond bool, a, b T) T {
	if cond {
		return a
	}
	return b
}

// Ref returns a pointer to a copy of v
func Ref[T any](v T) *T {
	return &v
}

// Map applies f to every element of in
func Map[T, R any](in []T, f func(T) R) []R {
	if in == nil {
		return nil
	}
	out := make([]R, len(in))
	for i := range in {
		out[i] = f(in[i])
	}
	return out
}

