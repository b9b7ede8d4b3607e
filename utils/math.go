package utils

import "math"

// ConstArray returns N copies of val.
func ConstArray(N int, val float64) (v []float64) {
	v = make([]float64, N)
	for i := range v {
		v[i] = val
	}
	return
}

// LimitMagnitude returns dx with its magnitude capped at limit, keeping its sign.
func LimitMagnitude(dx, limit float64) float64 {
	return math.Copysign(math.Min(math.Abs(dx), limit), dx)
}

// MaxAbs returns the largest magnitude in v.
func MaxAbs(v []float64) (m float64) {
	for _, x := range v {
		m = math.Max(m, math.Abs(x))
	}
	return
}
