// Package safeconv provides safe integer type conversion functions that panic on overflow.
package safeconv

import "math"

// MaxInt is the maximum value for int type (platform-dependent).
const MaxInt = int(^uint(0) >> 1)

// MaxUint32 is the maximum value for uint32 type.
const MaxUint32 = uint32(math.MaxUint32)

// MustIntToUint32 converts int to uint32, panics on bounds violation.
// Use only when bounds violations are logically impossible.
func MustIntToUint32(v int) uint32 {
	if v < 0 || v > int(MaxUint32) {
		panic("safeconv: int to uint32 out of bounds")
	}

	return uint32(v)
}

// MustUint64ToUint32 converts uint64 to uint32, panics on overflow.
// Use only when overflow is logically impossible.
func MustUint64ToUint32(v uint64) uint32 {
	if v > uint64(MaxUint32) {
		panic("safeconv: uint64 to uint32 overflow")
	}

	return uint32(v)
}

// MustUint32ToInt converts uint32 to int. The conversion cannot overflow on
// 64-bit platforms; the guard protects 32-bit builds.
func MustUint32ToInt(v uint32) int {
	if uint64(v) > uint64(MaxInt) {
		panic("safeconv: uint32 to int overflow")
	}

	return int(v)
}
