package utils

import "math"

// Absolute tolerance for float comparisons throughout the module.
const floatTolerance = 1e-9

// IsFloatEqual reports whether a and b are equal within floatTolerance.
func IsFloatEqual(a, b float64) bool {
	return math.Abs(a-b) <= floatTolerance
}

// IsFloatLessOrEqual reports a <= b within floatTolerance.
func IsFloatLessOrEqual(a, b float64) bool {
	return a < b || IsFloatEqual(a, b)
}

// IsFloatWithin reports whether v lies in [min, max], tolerant at the bounds.
func IsFloatWithin(v, min, max float64) bool {
	if min < v && v < max {
		return true
	}
	return IsFloatEqual(v, min) || IsFloatEqual(v, max)
}

// Constrain clamps v to [min, max].
func Constrain(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Sgn returns 1.0 for v >= 0 and -1.0 otherwise. Zero counts as positive so
// callers get a deterministic orientation for collinear points.
func Sgn(v float64) float64 {
	if v < 0 {
		return -1.0
	}
	return 1.0
}
