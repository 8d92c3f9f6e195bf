package squant

import (
	"math"

	"github.com/x448/float16"
)

// Element is the set of floating-point source precisions a quantizer can
// train on and transform. Half precision is carried as x448/float16 bit
// patterns; arithmetic widens to float64.
type Element interface {
	float16.Float16 | float32 | float64
}

// Quantized is the set of signed integer target precisions. The reference
// configuration is int8.
type Quantized interface {
	int8 | int16
}

// elemFloat64 widens an element to float64. The widening is exact for every
// supported precision, so float64 comparisons order elements identically to
// their native ordering.
func elemFloat64[T Element](v T) float64 {
	switch x := any(v).(type) {
	case float32:
		return float64(x)
	case float64:
		return x
	case float16.Float16:
		return float64(x.Float32())
	}
	return 0
}

// elemFromFloat64 narrows a float64 into the element type, rounding to
// nearest for half precision.
func elemFromFloat64[T Element](f float64) T {
	var z T
	switch any(z).(type) {
	case float32:
		return any(float32(f)).(T)
	case float64:
		return any(f).(T)
	case float16.Float16:
		return any(float16.Fromfloat32(float32(f))).(T)
	}
	return z
}

// elemLess is a total order over elements: NaN sorts after every finite
// value and +Inf, keeping selection deterministic on dirty data.
func elemLess[T Element](a, b T) bool {
	fa, fb := elemFloat64(a), elemFloat64(b)
	if math.IsNaN(fa) {
		return false
	}
	if math.IsNaN(fb) {
		return true
	}
	return fa < fb
}

// quantLimits returns the representable bounds of the quantized type widened
// to int64, so the span QuantMax - QuantMin never overflows during scale
// derivation.
func quantLimits[Q Quantized]() (lo, hi int64) {
	var z Q
	switch any(z).(type) {
	case int8:
		return math.MinInt8, math.MaxInt8
	case int16:
		return math.MinInt16, math.MaxInt16
	}
	return 0, 0
}

// elemTypeName names the element precision for artifact envelopes.
func elemTypeName[T Element]() string {
	var z T
	switch any(z).(type) {
	case float32:
		return "float32"
	case float64:
		return "float64"
	case float16.Float16:
		return "float16"
	}
	return "unknown"
}

// quantTypeName names the quantized precision for artifact envelopes.
func quantTypeName[Q Quantized]() string {
	var z Q
	switch any(z).(type) {
	case int8:
		return "int8"
	case int16:
		return "int16"
	}
	return "unknown"
}
