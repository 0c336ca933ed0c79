package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Dumper writes dispatched speech segments to WAV files for debugging.
// Enabled in main via the DUMP_SEGMENTS environment variable.
type Dumper struct {
	dir    string
	prefix string
}

// NewDumper creates a dumper writing into dir, creating it if needed.
func NewDumper(dir, prefix string) (*Dumper, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create dump dir: %w", err)
	}
	return &Dumper{dir: dir, prefix: prefix}, nil
}

// Dump writes one segment as a timestamped WAV file and returns its path.
func (d *Dumper) Dump(samples []float32, sampleRate int) (string, error) {
	wav, err := EncodeWAV(samples, sampleRate)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_%s.wav", d.prefix, time.Now().Format("20060102_150405.000"))
	path := filepath.Join(d.dir, name)
	if err := os.WriteFile(path, wav, 0o644); err != nil {
		return "", fmt.Errorf("write dump file: %w", err)
	}
	return path, nil
}
