// SPDX-License-Identifier: EPL-2.0

// Package utils holds small sample-format helpers shared by the decoders,
// the WAV writer and the playback backends.
package utils

// fullScale returns the magnitude of the most negative value representable
// at bitDepth (2^(bitDepth-1)). Depths outside 1..32 fall back to 16-bit.
func fullScale(bitDepth int) float64 {
	if bitDepth < 1 || bitDepth > 32 {
		bitDepth = 16
	}
	return float64(uint64(1) << (bitDepth - 1))
}

// Clamp limits x to [-1, 1].
func Clamp(x float32) float32 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}

// Float32ToInt16 converts a normalized sample to 16-bit PCM.
func Float32ToInt16(x float32) int16 {
	// Use 32767 for positive max to avoid overflow
	return int16(Clamp(x) * 32767.0)
}

// FloatToPCM converts a normalized sample to a signed integer at bitDepth,
// clamping out-of-range input.
func FloatToPCM(x float32, bitDepth int) int {
	scale := fullScale(bitDepth) - 1
	return int(float64(Clamp(x)) * scale)
}

// PCMToFloat converts a signed integer sample at bitDepth to [-1, 1).
func PCMToFloat(v int, bitDepth int) float32 {
	return float32(float64(v) / fullScale(bitDepth))
}
