// Package fastfield stores numeric field values as dense per-document
// columns. Every value is kept as a u64 whose unsigned order matches the
// order of the original typed value, so a column can be read back as raw u64
// regardless of the declared field type.
package fastfield

import "math"

const highBit = uint64(1) << 63

// I64ToU64 maps an int64 to a uint64 preserving order.
func I64ToU64(v int64) uint64 {
	return uint64(v) ^ highBit
}

// U64ToI64 is the inverse of I64ToU64.
func U64ToI64(v uint64) int64 {
	return int64(v ^ highBit)
}

// F64ToU64 maps a float64 to a uint64 preserving the IEEE 754 total order:
// negative values have every bit flipped, positive values only the sign bit.
func F64ToU64(v float64) uint64 {
	bits := math.Float64bits(v)
	if bits&highBit == 0 {
		return bits ^ highBit
	}
	return ^bits
}

// U64ToF64 is the inverse of F64ToU64.
func U64ToF64(v uint64) float64 {
	if v&highBit != 0 {
		return math.Float64frombits(v ^ highBit)
	}
	return math.Float64frombits(^v)
}

// FastValue is the set of Go types a fast field can be read as.
type FastValue interface {
	uint64 | int64 | float64 | uint32 | int32 | float32
}

// Converter returns the lenient conversion from a raw column value to T.
// It never fails: narrower types truncate or round. Resolve it once and call
// it per document.
func Converter[T FastValue]() func(uint64) T {
	var conv any
	var zero T
	switch any(zero).(type) {
	case uint64:
		conv = func(v uint64) uint64 { return v }
	case int64:
		conv = U64ToI64
	case float64:
		conv = U64ToF64
	case uint32:
		conv = func(v uint64) uint32 { return uint32(v) }
	case int32:
		conv = func(v uint64) int32 { return int32(U64ToI64(v)) }
	case float32:
		conv = func(v uint64) float32 { return float32(U64ToF64(v)) }
	}
	return conv.(func(uint64) T)
}

// FastValueFromU64 converts a single raw column value to T.
func FastValueFromU64[T FastValue](raw uint64) T {
	return Converter[T]()(raw)
}
