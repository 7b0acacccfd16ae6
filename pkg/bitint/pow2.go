// SPDX-License-Identifier: MIT
/*
Package bitint provides the power-of-2 checks used when validating
analysis frame lengths. The radix-2 transform only accepts frames whose
sample count is an exact power of two, and configuration validation uses
NextPowerOfTwo to suggest the closest usable frame size.

Usage:

	// Reject a frame before handing it to the radix-2 transform
	ok := bitint.IsPowerOfTwo(len(samples))

	// Suggest a frame size for an invalid configuration
	suggested := bitint.NextPowerOfTwo(6400) // Returns 8192

----------------------------------------------------------------------

NextPowerOfTwo subtracts one before taking the bit length so that exact
powers of two map onto themselves:

	input 8: 8-1 = 7 (0111), bits.Len(7) = 3, 1 << 3 = 8
	input 9: 9-1 = 8 (1000), bits.Len(8) = 4, 1 << 4 = 16
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size.
// Non-positive sizes return 1.
//
//	Input  Output
//	4      4
//	5      8
//	6400   8192
//	0      1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2. Powers of two
// have a single bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
