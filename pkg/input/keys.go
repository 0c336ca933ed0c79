package input

import (
	"fmt"
	"strings"
)

// Key is a named key token in a shortcut descriptor.
// Modifier and named keys use their canonical upper-case name ("CTRL",
// "F2", "ENTER"); printable character keys use the single lower-case rune.
type Key string

// Canonical key names.
const (
	KeyCtrl      Key = "CTRL"
	KeyAlt       Key = "ALT"
	KeyShift     Key = "SHIFT"
	KeyMeta      Key = "META"
	KeyTab       Key = "TAB"
	KeyEnter     Key = "ENTER"
	KeyEscape    Key = "ESCAPE"
	KeySpace     Key = "SPACE"
	KeyBackspace Key = "BACKSPACE"
	KeyDelete    Key = "DELETE"
	KeyUp        Key = "UP"
	KeyDown      Key = "DOWN"
	KeyLeft      Key = "LEFT"
	KeyRight     Key = "RIGHT"
	KeyHome      Key = "HOME"
	KeyEnd       Key = "END"
	KeyPageUp    Key = "PAGEUP"
	KeyPageDown  Key = "PAGEDOWN"
)

// aliases maps accepted spellings to canonical key names.
var aliases = map[string]Key{
	"CTRL": KeyCtrl, "CONTROL": KeyCtrl,
	"ALT":   KeyAlt,
	"SHIFT": KeyShift,
	"META":  KeyMeta, "WIN": KeyMeta, "SUPER": KeyMeta,
	"TAB":   KeyTab,
	"ENTER": KeyEnter, "RETURN": KeyEnter,
	"ESCAPE": KeyEscape, "ESC": KeyEscape,
	"SPACE":     KeySpace,
	"BACKSPACE": KeyBackspace,
	"DELETE":    KeyDelete, "DEL": KeyDelete,
	"UP":   KeyUp,
	"DOWN": KeyDown,
	"LEFT": KeyLeft, "RIGHT": KeyRight,
	"HOME": KeyHome, "END": KeyEnd,
	"PAGEUP": KeyPageUp, "PAGEDOWN": KeyPageDown,
}

func init() {
	for i := 1; i <= 12; i++ {
		name := fmt.Sprintf("F%d", i)
		aliases[name] = Key(name)
	}
}

// Shortcut is an ordered sequence of keys. The sink presses the keys in
// listed order and releases them in reverse order.
type Shortcut []Key

// String joins the keys with "+", the same form shortcuts are written in
// configuration ("CTRL+SHIFT+S").
func (s Shortcut) String() string {
	parts := make([]string, len(s))
	for i, k := range s {
		parts[i] = string(k)
	}
	return strings.Join(parts, "+")
}

// ParseKey resolves a single key name to its canonical token.
// Single printable characters are accepted as-is, folded to lower case.
func ParseKey(name string) (Key, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if k, ok := aliases[upper]; ok {
		return k, nil
	}
	if len([]rune(upper)) == 1 {
		return Key(strings.ToLower(upper)), nil
	}
	return "", fmt.Errorf("unknown key %q", name)
}

// ParseShortcut parses a "+"-joined shortcut string such as "ALT+R",
// "CTRL+SHIFT+S" or "F2" into an ordered key sequence.
func ParseShortcut(s string) (Shortcut, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("empty shortcut")
	}
	parts := strings.Split(s, "+")
	keys := make(Shortcut, 0, len(parts))
	for _, part := range parts {
		k, err := ParseKey(part)
		if err != nil {
			return nil, fmt.Errorf("invalid shortcut %q: %w", s, err)
		}
		keys = append(keys, k)
	}
	return keys, nil
}
