package asr

import (
	"context"
	"sync"
)

// MockRecognizer is a mock implementation of Recognizer for testing.
// Behavior is customized through the RecognizeFunc field; every call is
// recorded for verification.
type MockRecognizer struct {
	// RecognizeFunc is called when Recognize is invoked.
	// If nil, returns "" with no error.
	RecognizeFunc func(ctx context.Context, wav []byte) (string, error)

	// Calls records the WAV payloads passed to Recognize.
	Calls [][]byte

	mu sync.Mutex
}

// NewMockRecognizer creates a MockRecognizer with default behavior.
func NewMockRecognizer() *MockRecognizer {
	return &MockRecognizer{}
}

// NewMockRecognizerWithText creates a mock that always returns text.
func NewMockRecognizerWithText(text string) *MockRecognizer {
	return &MockRecognizer{
		RecognizeFunc: func(ctx context.Context, wav []byte) (string, error) {
			return text, nil
		},
	}
}

// Name implements Recognizer.
func (m *MockRecognizer) Name() string {
	return "mock"
}

// Recognize implements Recognizer.
func (m *MockRecognizer) Recognize(ctx context.Context, wav []byte) (string, error) {
	m.mu.Lock()
	cp := make([]byte, len(wav))
	copy(cp, wav)
	m.Calls = append(m.Calls, cp)
	m.mu.Unlock()

	if m.RecognizeFunc != nil {
		return m.RecognizeFunc(ctx, wav)
	}
	return "", nil
}

// CallCount returns the number of times Recognize was called.
func (m *MockRecognizer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

var _ Recognizer = (*MockRecognizer)(nil)
