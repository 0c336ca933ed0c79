package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxkey/voxkey/pkg/asr"
	"github.com/voxkey/voxkey/pkg/audio"
	"github.com/voxkey/voxkey/pkg/command"
	"github.com/voxkey/voxkey/pkg/input"
)

func newTestMatcher(t *testing.T) *command.Matcher {
	t.Helper()
	m, err := command.NewMatcher(map[string]string{"save report": "F2"})
	require.NoError(t, err)
	return m
}

func loudSegment(n int) []float32 {
	seg := make([]float32, n)
	for i := range seg {
		seg[i] = 0.5
	}
	return seg
}

func TestDispatchCommand(t *testing.T) {
	rec := asr.NewMockRecognizerWithText("  save report  ")
	sink := input.NewMockSink()
	d := NewDispatcher(rec, newTestMatcher(t), sink, input.TextModeKeystrokes)

	text, err := d.Dispatch(context.Background(), loudSegment(1600), 16000, nil)
	require.NoError(t, err)

	assert.Equal(t, "[command] save report → F2", text)
	require.Len(t, sink.SentShortcuts, 1)
	assert.Equal(t, input.Shortcut{"F2"}, sink.SentShortcuts[0])
	assert.Empty(t, sink.TypedTexts)
}

func TestDispatchText(t *testing.T) {
	rec := asr.NewMockRecognizerWithText("the patient is stable")
	sink := input.NewMockSink()
	d := NewDispatcher(rec, newTestMatcher(t), sink, input.TextModeClipboard)

	text, err := d.Dispatch(context.Background(), loudSegment(1600), 16000, nil)
	require.NoError(t, err)

	assert.Equal(t, "the patient is stable", text)
	require.Len(t, sink.TypedTexts, 1)
	assert.Equal(t, "the patient is stable", sink.TypedTexts[0])
	assert.Equal(t, input.TextModeClipboard, sink.TypedModes[0])
	assert.Empty(t, sink.SentShortcuts)
}

func TestDispatchSendsWAV(t *testing.T) {
	rec := asr.NewMockRecognizer()
	sink := input.NewMockSink()
	d := NewDispatcher(rec, newTestMatcher(t), sink, input.TextModeKeystrokes)

	_, err := d.Dispatch(context.Background(), loudSegment(1600), 16000, nil)
	require.NoError(t, err)

	require.Equal(t, 1, rec.CallCount())
	samples, rate, err := audio.DecodeWAV(rec.Calls[0])
	require.NoError(t, err)
	assert.Equal(t, 16000, rate)
	assert.Len(t, samples, 1600)
}

func TestDispatchEmptyTextIsNoOp(t *testing.T) {
	for _, text := range []string{"", "   "} {
		rec := asr.NewMockRecognizerWithText(text)
		sink := input.NewMockSink()
		d := NewDispatcher(rec, newTestMatcher(t), sink, input.TextModeKeystrokes)

		out, err := d.Dispatch(context.Background(), loudSegment(100), 16000, nil)
		require.NoError(t, err)
		assert.Equal(t, "", out)
		assert.Equal(t, 0, sink.ActionCount(), "empty recognition must not act")
	}
}

func TestDispatchRecognizerFailure(t *testing.T) {
	rec := asr.NewMockRecognizer()
	rec.RecognizeFunc = func(ctx context.Context, wav []byte) (string, error) {
		return "", &asr.Error{Code: asr.ErrCodeNetworkError, Message: "connection refused"}
	}
	sink := input.NewMockSink()
	d := NewDispatcher(rec, newTestMatcher(t), sink, input.TextModeKeystrokes)

	_, err := d.Dispatch(context.Background(), loudSegment(100), 16000, nil)
	require.Error(t, err)

	var asrErr *asr.Error
	assert.True(t, errors.As(err, &asrErr))
	assert.Equal(t, 0, sink.ActionCount())
}

func TestDispatchEmptySegment(t *testing.T) {
	rec := asr.NewMockRecognizer()
	sink := input.NewMockSink()
	d := NewDispatcher(rec, newTestMatcher(t), sink, input.TextModeKeystrokes)

	_, err := d.Dispatch(context.Background(), nil, 16000, nil)
	require.Error(t, err)
	assert.Equal(t, 0, rec.CallCount(), "no recognition call for an empty segment")
}

func TestDispatchStaleResultDiscarded(t *testing.T) {
	rec := asr.NewMockRecognizerWithText("save report")
	sink := input.NewMockSink()
	d := NewDispatcher(rec, newTestMatcher(t), sink, input.TextModeKeystrokes)

	out, err := d.Dispatch(context.Background(), loudSegment(100), 16000, func() bool { return false })
	require.NoError(t, err)
	assert.Equal(t, "", out)
	assert.Equal(t, 0, sink.ActionCount(), "stale result must not act")
}

func TestDispatchSinkFailureIsNonFatal(t *testing.T) {
	rec := asr.NewMockRecognizerWithText("save report")
	sink := input.NewMockSink()
	sink.SendShortcutFunc = func(input.Shortcut) error {
		return errors.New("injection blocked")
	}
	d := NewDispatcher(rec, newTestMatcher(t), sink, input.TextModeKeystrokes)

	text, err := d.Dispatch(context.Background(), loudSegment(100), 16000, nil)
	require.NoError(t, err, "a failed key injection must not fail the dispatch")
	assert.Equal(t, "[command] save report → F2", text)
}
