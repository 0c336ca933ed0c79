package audio

import "sync"

// Session is the shared recording state between the capture callback and
// the controller: an enabled flag and an accumulation buffer of mono
// samples. The capture callback only checks the flag and appends under a
// short critical section; everything heavier happens on other goroutines.
type Session struct {
	mu      sync.Mutex
	enabled bool
	buf     []float32
}

// NewSession creates an empty, disabled recording session.
func NewSession() *Session {
	return &Session{}
}

// Begin clears the buffer and starts accepting samples. Idempotent: if
// the session is already enabled the buffer is left untouched.
func (s *Session) Begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enabled {
		return
	}
	s.buf = s.buf[:0]
	s.enabled = true
}

// Stop stops accepting samples. The buffered audio is kept until Take.
func (s *Session) Stop() {
	s.mu.Lock()
	s.enabled = false
	s.mu.Unlock()
}

// Enabled reports whether samples are currently being accepted.
func (s *Session) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Append adds samples to the buffer if the session is enabled.
// Called from the capture callback; must stay cheap.
func (s *Session) Append(samples []float32) {
	s.mu.Lock()
	if s.enabled {
		s.buf = append(s.buf, samples...)
	}
	s.mu.Unlock()
}

// Take removes and returns the buffered samples. The returned slice is
// owned by the caller; the session buffer is left empty, not aliased.
func (s *Session) Take() []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float32, len(s.buf))
	copy(out, s.buf)
	s.buf = s.buf[:0]
	return out
}

// Len returns the number of buffered samples.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}
