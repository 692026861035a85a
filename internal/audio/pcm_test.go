package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestDecodeF32LE(t *testing.T) {
	t.Parallel()

	input := make([]byte, 8)
	binary.LittleEndian.PutUint32(input[0:], math.Float32bits(0.5))
	binary.LittleEndian.PutUint32(input[4:], math.Float32bits(-1))

	samples := DecodeF32LE(input)
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	if samples[0] != 0.5 || samples[1] != -1 {
		t.Fatalf("unexpected samples: %v", samples)
	}
}

func TestDecodeF32LEIgnoresTrailingPartialSample(t *testing.T) {
	t.Parallel()

	if got := DecodeF32LE(make([]byte, 7)); len(got) != 1 {
		t.Fatalf("expected 1 sample from 7 bytes, got %d", len(got))
	}
}

func TestEncodePCM16(t *testing.T) {
	t.Parallel()

	out := EncodePCM16([]float32{0, 0.5, -0.5})
	if len(out) != 6 {
		t.Fatalf("expected 6 bytes, got %d", len(out))
	}

	if got := int16(binary.LittleEndian.Uint16(out[0:])); got != 0 {
		t.Fatalf("sample 0 = %d, want 0", got)
	}
	if got := int16(binary.LittleEndian.Uint16(out[2:])); got != 16384 {
		t.Fatalf("sample 1 = %d, want 16384", got)
	}
	if got := int16(binary.LittleEndian.Uint16(out[4:])); got != -16384 {
		t.Fatalf("sample 2 = %d, want -16384", got)
	}
}

func TestEncodePCM16ClampsOutOfRange(t *testing.T) {
	t.Parallel()

	out := EncodePCM16([]float32{2, -2, 1})
	if got := int16(binary.LittleEndian.Uint16(out[0:])); got != 32767 {
		t.Fatalf("overdriven sample = %d, want 32767", got)
	}
	if got := int16(binary.LittleEndian.Uint16(out[2:])); got != -32768 {
		t.Fatalf("underdriven sample = %d, want -32768", got)
	}
	if got := int16(binary.LittleEndian.Uint16(out[4:])); got != 32767 {
		t.Fatalf("full-scale sample = %d, want 32767", got)
	}
}

func TestPCM16RoundTrip(t *testing.T) {
	t.Parallel()

	input := []float32{0, 0.25, -0.25, 0.9}
	decoded := DecodePCM16(EncodePCM16(input))
	if len(decoded) != len(input) {
		t.Fatalf("length mismatch: %d vs %d", len(decoded), len(input))
	}
	for i := range input {
		if diff := math.Abs(float64(decoded[i] - input[i])); diff > 1.0/32768 {
			t.Fatalf("sample %d drifted by %v", i, diff)
		}
	}
}
