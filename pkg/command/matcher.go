// Package command maps recognized text to configured keyboard shortcuts.
//
// Matching is deliberately strict: the input is trimmed of surrounding
// whitespace and looked up as an exact, case-sensitive key. Anything that
// does not match a configured phrase is dictated text and passed through
// verbatim. There is no fuzzy matching, prefix matching or case folding;
// recognizers that need normalization must do it before matching.
package command

import (
	"fmt"
	"strings"

	"github.com/voxkey/voxkey/pkg/input"
)

// ResultKind discriminates the two match outcomes.
type ResultKind int

const (
	// KindText means no command matched; the text should be typed verbatim.
	KindText ResultKind = iota
	// KindCommand means the text matched a configured voice command.
	KindCommand
)

// Result is the outcome of matching one piece of recognized text.
type Result struct {
	Kind ResultKind

	// Text is the trimmed input text. Set for both kinds.
	Text string

	// Shortcut is the key sequence to send. Set only for KindCommand.
	Shortcut input.Shortcut
}

// Matcher holds an immutable table of voice command phrases.
// It is safe for concurrent use; the table is never mutated after creation.
type Matcher struct {
	commands map[string]input.Shortcut
}

// NewMatcher builds a matcher from phrase → shortcut-string pairs, the
// form commands are written in configuration (e.g. "save report": "F2").
// Shortcut strings are parsed eagerly so a malformed entry fails at load
// time rather than on first use.
func NewMatcher(commands map[string]string) (*Matcher, error) {
	table := make(map[string]input.Shortcut, len(commands))
	for phrase, shortcut := range commands {
		keys, err := input.ParseShortcut(shortcut)
		if err != nil {
			return nil, fmt.Errorf("command %q: %w", phrase, err)
		}
		table[phrase] = keys
	}
	return &Matcher{commands: table}, nil
}

// Match trims text and looks it up in the command table.
func (m *Matcher) Match(text string) Result {
	trimmed := strings.TrimSpace(text)
	if shortcut, ok := m.commands[trimmed]; ok {
		return Result{Kind: KindCommand, Text: trimmed, Shortcut: shortcut}
	}
	return Result{Kind: KindText, Text: trimmed}
}

// Len returns the number of configured commands.
func (m *Matcher) Len() int {
	return len(m.commands)
}
