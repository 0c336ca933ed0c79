package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// wavHeaderSize is the size of a canonical PCM WAV header.
const wavHeaderSize = 44

// EncodeWAV encodes mono float32 samples as a single-channel 16-bit
// linear PCM WAV file at the given sample rate, the wire format the
// recognition service expects. Samples are clamped to [-1.0, 1.0] before
// quantization. An empty segment is an error: there is nothing worth
// sending to the recognizer.
func EncodeWAV(samples []float32, sampleRate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("empty audio segment")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	dataLen := len(samples) * 2

	var buf bytes.Buffer
	buf.Grow(wavHeaderSize + dataLen)

	// RIFF header
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")

	// fmt sub-chunk: PCM, mono, 16-bit
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2)) // byte rate
	binary.Write(&buf, binary.LittleEndian, uint16(2))            // block align
	binary.Write(&buf, binary.LittleEndian, uint16(16))           // bits per sample

	// data sub-chunk
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	for _, s := range samples {
		buf.Write(quantize(s))
	}

	return buf.Bytes(), nil
}

// quantize converts one float sample to little-endian int16 bytes.
func quantize(s float32) []byte {
	v := s * 32767.0
	if v > 32767.0 {
		v = 32767.0
	}
	if v < -32768.0 {
		v = -32768.0
	}
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(int16(v)))
	return b[:]
}

// DecodeWAV parses a mono 16-bit PCM WAV file back into float32 samples
// and the sample rate. Only the subset of the format written by EncodeWAV
// is supported.
func DecodeWAV(data []byte) ([]float32, int, error) {
	if len(data) < wavHeaderSize {
		return nil, 0, fmt.Errorf("wav data too short: %d bytes", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("not a RIFF/WAVE file")
	}

	// Walk the chunks after the RIFF header.
	var (
		sampleRate int
		channels   int
		bits       int
		pcm        []byte
	)
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+size > len(data) {
			return nil, 0, fmt.Errorf("truncated %q chunk", id)
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, fmt.Errorf("fmt chunk too short")
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 {
				return nil, 0, fmt.Errorf("unsupported audio format %d", format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bits = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			pcm = data[body : body+size]
		}
		off = body + size
	}

	if channels != 1 || bits != 16 {
		return nil, 0, fmt.Errorf("expected mono 16-bit PCM, got %d channels %d bits", channels, bits)
	}
	if pcm == nil {
		return nil, 0, fmt.Errorf("missing data chunk")
	}

	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		samples[i] = float32(v) / 32767.0
	}
	return samples, sampleRate, nil
}
