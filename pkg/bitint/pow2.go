// SPDX-License-Identifier: MIT
/*
Package bitint holds the integer bit tricks behind FFT sizing: power-of-two
checks, the size hint shown in configuration errors, and the index mapping
of the radix-2 bit-reversal permutation.

All functions are constant time and never allocate, so they are safe to
call from the capture callback.

	bitint.IsPowerOfTwo(4096)   // true
	bitint.NextPowerOfTwo(4000) // 4096
	bitint.Log2(4096)           // 12
	bitint.Reverse(1, 3)        // 4 (001 -> 100)
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size, and 1 for
// size <= 0. Powers of two map to themselves:
//
//	4 -> 4, 5 -> 8, 4000 -> 4096, 0 -> 1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of two, i.e. has a
// single bit set.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Log2 returns the base-2 logarithm of a power of two. For other inputs
// it returns the position of the highest set bit, and 0 for n <= 1.
func Log2(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n)) - 1
}

// Reverse reverses the lowest width bits of i:
//
//	width=3: 1 (001) -> 4 (100), 3 (011) -> 6 (110)
func Reverse(i, width int) int {
	if width <= 0 {
		return 0
	}
	return int(bits.Reverse(uint(i)) >> (bits.UintSize - width))
}
