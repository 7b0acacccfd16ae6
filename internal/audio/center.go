// SPDX-License-Identifier: MIT
package audio

// DefaultZeroOffset is the resting level of the device's 8-bit samples.
const DefaultZeroOffset = 74

// Center shifts every byte of buf down by offset in place, wrapping modulo
// 256, so a byte equal to offset becomes 0.
func Center(buf []byte, offset byte) {
	if offset == 0 {
		return
	}
	for i := range buf {
		buf[i] -= offset
	}
}
