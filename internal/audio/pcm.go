// Package audio implements microphone capture, agent audio playback, and
// the input volume meter.
package audio

import (
	"encoding/binary"
	"math"
)

// DecodeF32LE interprets a little-endian float32 byte stream as samples.
// A trailing partial sample is ignored.
func DecodeF32LE(data []byte) []float32 {
	count := len(data) / 4
	samples := make([]float32, count)
	for i := 0; i < count; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		samples[i] = math.Float32frombits(bits)
	}
	return samples
}

// EncodePCM16 converts float32 samples in [-1, 1] to 16-bit little-endian
// PCM, clamping out-of-range values at the extremes.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, sample := range samples {
		scaled := float64(sample) * 32768
		if scaled > 32767 {
			scaled = 32767
		}
		if scaled < -32768 {
			scaled = -32768
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(scaled)))
	}
	return out
}

// DecodePCM16 converts 16-bit little-endian PCM bytes to float32 samples.
// A trailing partial sample is ignored.
func DecodePCM16(data []byte) []float32 {
	count := len(data) / 2
	samples := make([]float32, count)
	for i := 0; i < count; i++ {
		raw := int16(binary.LittleEndian.Uint16(data[i*2:]))
		samples[i] = float32(raw) / 32768
	}
	return samples
}
