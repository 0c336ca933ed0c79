package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseShortcut(t *testing.T) {
	t.Run("single function key", func(t *testing.T) {
		sc, err := ParseShortcut("F2")
		require.NoError(t, err)
		assert.Equal(t, Shortcut{"F2"}, sc)
	})

	t.Run("modifier combination", func(t *testing.T) {
		sc, err := ParseShortcut("CTRL+SHIFT+S")
		require.NoError(t, err)
		assert.Equal(t, Shortcut{KeyCtrl, KeyShift, "s"}, sc)
	})

	t.Run("aliases and case folding", func(t *testing.T) {
		sc, err := ParseShortcut("control+Esc")
		require.NoError(t, err)
		assert.Equal(t, Shortcut{KeyCtrl, KeyEscape}, sc)

		sc, err = ParseShortcut("win+Return")
		require.NoError(t, err)
		assert.Equal(t, Shortcut{KeyMeta, KeyEnter}, sc)
	})

	t.Run("whitespace around parts", func(t *testing.T) {
		sc, err := ParseShortcut("ALT + R")
		require.NoError(t, err)
		assert.Equal(t, Shortcut{KeyAlt, "r"}, sc)
	})

	t.Run("printable character folded to lower case", func(t *testing.T) {
		sc, err := ParseShortcut("ALT+Q")
		require.NoError(t, err)
		assert.Equal(t, Shortcut{KeyAlt, "q"}, sc)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := ParseShortcut("CTRL+BANANA")
		assert.Error(t, err)
	})

	t.Run("empty shortcut", func(t *testing.T) {
		_, err := ParseShortcut("  ")
		assert.Error(t, err)
	})
}

func TestShortcutString(t *testing.T) {
	sc := Shortcut{KeyCtrl, KeyShift, "s"}
	assert.Equal(t, "CTRL+SHIFT+s", sc.String())
}

func TestMockSinkRecordsActions(t *testing.T) {
	sink := NewMockSink()

	require.NoError(t, sink.TypeText("hello", TextModeClipboard))
	require.NoError(t, sink.SendShortcut(Shortcut{KeyAlt, "r"}))

	assert.Equal(t, []string{"hello"}, sink.TypedTexts)
	assert.Equal(t, []TextMode{TextModeClipboard}, sink.TypedModes)
	assert.Equal(t, []Shortcut{{KeyAlt, "r"}}, sink.SentShortcuts)
	assert.Equal(t, 2, sink.ActionCount())
}
