package mathhelp

import "golang.org/x/exp/constraints"

// CeilDiv divides a by b, rounding up. Both are expected to be positive.
func CeilDiv[T constraints.Integer](a, b T) T {
	q := a / b
	if a%b != 0 {
		q++
	}
	return q
}

// BetweenInc reports whether f lies between p and q, inclusive,
// regardless of their order.
func BetweenInc[T constraints.Ordered](f, p, q T) bool {
	if p <= q {
		return p <= f && f <= q
	}
	return q <= f && f <= p
}
