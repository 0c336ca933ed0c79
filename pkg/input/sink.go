// Package input defines the keyboard action sink the dispatcher drives
// after recognition: literal text entry and shortcut key sequences.
//
// The actual OS-level injection (SendInput, XTest, clipboard ownership)
// lives behind the Sink interface so the capture and dispatch code stays
// platform independent and testable.
package input

import "log"

// TextMode selects how literal text reaches the focused input.
type TextMode int

const (
	// TextModeKeystrokes simulates direct key events for each character.
	TextModeKeystrokes TextMode = iota
	// TextModeClipboard places the text on the clipboard and sends paste.
	TextModeClipboard
)

func (m TextMode) String() string {
	if m == TextModeClipboard {
		return "clipboard"
	}
	return "keystrokes"
}

// Sink receives the actions produced by command dispatch.
//
// SendShortcut must press the keys in the order given and release them in
// reverse order. Implementations report failures as errors; they must not
// panic, since a failed injection is non-fatal to the capture session.
type Sink interface {
	// TypeText enters text at the current input focus using the given mode.
	TypeText(text string, mode TextMode) error

	// SendShortcut presses keys in listed order, then releases in reverse.
	SendShortcut(shortcut Shortcut) error
}

// LogSink logs actions instead of injecting them. It is the default sink
// when no platform injector is wired in, and keeps the rest of the system
// exercisable headless.
type LogSink struct{}

func (LogSink) TypeText(text string, mode TextMode) error {
	log.Printf("[Input] type text (%s): %q", mode, text)
	return nil
}

func (LogSink) SendShortcut(shortcut Shortcut) error {
	log.Printf("[Input] send shortcut: %s", shortcut)
	return nil
}

var _ Sink = LogSink{}
