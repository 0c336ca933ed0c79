package audio

import (
	"math"
	"testing"
)

func TestEncodeWAVHeader(t *testing.T) {
	samples := make([]float32, 16000) // 1 second of silence at 16kHz
	wav, err := EncodeWAV(samples, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	if len(wav) != 44+len(samples)*2 {
		t.Errorf("unexpected WAV size: %d", len(wav))
	}
	if string(wav[0:4]) != "RIFF" {
		t.Error("invalid RIFF header")
	}
	if string(wav[8:12]) != "WAVE" {
		t.Error("invalid WAVE format")
	}
	if string(wav[12:16]) != "fmt " {
		t.Error("invalid fmt chunk")
	}
	if string(wav[36:40]) != "data" {
		t.Error("invalid data chunk")
	}
}

func TestEncodeWAVEmptySegment(t *testing.T) {
	if _, err := EncodeWAV(nil, 16000); err == nil {
		t.Error("expected error for empty segment")
	}
	if _, err := EncodeWAV([]float32{0.5}, 0); err == nil {
		t.Error("expected error for zero sample rate")
	}
}

// TestWAVRoundTrip verifies that encoding and decoding recovers the sample
// count exactly and each amplitude within 16-bit quantization error.
func TestWAVRoundTrip(t *testing.T) {
	samples := make([]float32, 1000)
	for i := range samples {
		samples[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / 16000))
	}
	// Values outside [-1, 1] must clamp, not wrap.
	samples[0] = 1.5
	samples[1] = -1.5

	wav, err := EncodeWAV(samples, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	decoded, rate, err := DecodeWAV(wav)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if rate != 16000 {
		t.Errorf("sample rate: got %d, want 16000", rate)
	}
	if len(decoded) != len(samples) {
		t.Fatalf("sample count: got %d, want %d", len(decoded), len(samples))
	}

	const tolerance = 1.0 / 32767.0
	for i, s := range samples {
		want := float64(s)
		if want > 1.0 {
			want = 1.0
		}
		if want < -1.0 {
			want = -1.0
		}
		if diff := math.Abs(float64(decoded[i]) - want); diff > tolerance {
			t.Fatalf("sample %d: got %f, want %f (diff %g)", i, decoded[i], want, diff)
		}
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	if _, _, err := DecodeWAV([]byte("not a wav")); err == nil {
		t.Error("expected error for short input")
	}

	junk := make([]byte, 64)
	copy(junk, "RIFFxxxxJUNK")
	if _, _, err := DecodeWAV(junk); err == nil {
		t.Error("expected error for non-WAVE input")
	}
}
