// Package safeconv converts between integer types without silent wrap-around.
package safeconv

import (
	"errors"
	"fmt"
	"math"
)

// ErrOutOfRange is returned when a value does not fit the target type.
var ErrOutOfRange = errors.New("integer out of range")

// IntToUint32 converts v, failing when it is negative or above MaxUint32.
func IntToUint32(v int) (uint32, error) {
	if v < 0 || uint64(v) > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d does not fit uint32", ErrOutOfRange, v)
	}

	return uint32(v), nil
}

// Uint64ToInt64 converts v, failing above MaxInt64.
func Uint64ToInt64(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %d does not fit int64", ErrOutOfRange, v)
	}

	return int64(v), nil
}

// MustIntToUint64 converts v, panicking when it is negative.
// Use only when negative values are logically impossible.
func MustIntToUint64(v int) uint64 {
	if v < 0 {
		panic("safeconv: negative int to uint64 conversion")
	}

	return uint64(v)
}
