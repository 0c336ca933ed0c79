package audio

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionAppendGatedByEnabled(t *testing.T) {
	s := NewSession()

	s.Append([]float32{0.1, 0.2})
	assert.Equal(t, 0, s.Len(), "disabled session must drop samples")

	s.Begin()
	s.Append([]float32{0.1, 0.2})
	assert.Equal(t, 2, s.Len())

	s.Stop()
	s.Append([]float32{0.3})
	assert.Equal(t, 2, s.Len(), "stopped session must drop samples")
}

func TestSessionBeginClearsOnlyWhenIdle(t *testing.T) {
	s := NewSession()
	s.Begin()
	s.Append([]float32{0.1})

	// A second Begin while active must not wipe in-flight audio.
	s.Begin()
	assert.Equal(t, 1, s.Len())

	s.Stop()
	s.Begin()
	assert.Equal(t, 0, s.Len(), "Begin after Stop starts a fresh buffer")
}

func TestSessionTakeClearsBuffer(t *testing.T) {
	s := NewSession()
	s.Begin()
	s.Append([]float32{0.1, 0.2, 0.3})
	s.Stop()

	got := s.Take()
	require.Equal(t, []float32{0.1, 0.2, 0.3}, got)
	assert.Equal(t, 0, s.Len())

	// The taken slice must not alias the session buffer.
	s.Begin()
	s.Append([]float32{0.9})
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, got)
}

func TestSessionConcurrentAppend(t *testing.T) {
	s := NewSession()
	s.Begin()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Append([]float32{0.5})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, s.Len())
}

func TestDownmix(t *testing.T) {
	t.Run("stereo averaging", func(t *testing.T) {
		mono := Downmix([]float32{1.0, 0.0, 0.5, 0.5, -1.0, 1.0}, 2)
		assert.Equal(t, []float32{0.5, 0.5, 0.0}, mono)
	})

	t.Run("mono passthrough", func(t *testing.T) {
		in := []float32{0.1, 0.2}
		assert.Equal(t, in, Downmix(in, 1))
	})

	t.Run("partial trailing frame dropped", func(t *testing.T) {
		mono := Downmix([]float32{1.0, 1.0, 0.5}, 2)
		assert.Equal(t, []float32{1.0}, mono)
	})
}
