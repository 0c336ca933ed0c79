package input

import "sync"

// MockSink is a mock implementation of Sink for testing.
// It records every call and allows failures to be injected through the
// TypeTextFunc and SendShortcutFunc fields.
type MockSink struct {
	// TypeTextFunc is called when TypeText is invoked. If nil, returns nil.
	TypeTextFunc func(text string, mode TextMode) error

	// SendShortcutFunc is called when SendShortcut is invoked. If nil, returns nil.
	SendShortcutFunc func(shortcut Shortcut) error

	// TypedTexts records all texts passed to TypeText.
	TypedTexts []string

	// TypedModes records the mode of each TypeText call.
	TypedModes []TextMode

	// SentShortcuts records all shortcuts passed to SendShortcut.
	SentShortcuts []Shortcut

	mu sync.Mutex
}

// NewMockSink creates a new MockSink with default behavior.
func NewMockSink() *MockSink {
	return &MockSink{}
}

// TypeText implements Sink.
func (m *MockSink) TypeText(text string, mode TextMode) error {
	m.mu.Lock()
	m.TypedTexts = append(m.TypedTexts, text)
	m.TypedModes = append(m.TypedModes, mode)
	m.mu.Unlock()

	if m.TypeTextFunc != nil {
		return m.TypeTextFunc(text, mode)
	}
	return nil
}

// SendShortcut implements Sink.
func (m *MockSink) SendShortcut(shortcut Shortcut) error {
	m.mu.Lock()
	cp := make(Shortcut, len(shortcut))
	copy(cp, shortcut)
	m.SentShortcuts = append(m.SentShortcuts, cp)
	m.mu.Unlock()

	if m.SendShortcutFunc != nil {
		return m.SendShortcutFunc(shortcut)
	}
	return nil
}

// ActionCount returns the total number of recorded actions.
func (m *MockSink) ActionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.TypedTexts) + len(m.SentShortcuts)
}

var _ Sink = (*MockSink)(nil)
