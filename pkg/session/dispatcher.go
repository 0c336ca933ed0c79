// Package session orchestrates capture into recognized actions: the
// dispatcher drives one speech segment through encode → recognize →
// match → act, and the controller arbitrates the two capture modes
// (manual push-to-talk and continuous VAD detection).
package session

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/voxkey/voxkey/pkg/asr"
	"github.com/voxkey/voxkey/pkg/audio"
	"github.com/voxkey/voxkey/pkg/command"
	"github.com/voxkey/voxkey/pkg/input"
	"github.com/voxkey/voxkey/pkg/trace"
)

// Dispatcher bridges a finalized speech segment to the recognition call
// and on to the action sink. Segments are processed one at a time; the
// caller guarantees only one segment is in flight per capture mode.
type Dispatcher struct {
	recognizer asr.Recognizer
	matcher    *command.Matcher
	sink       input.Sink
	textMode   input.TextMode

	// Dumper, if set, writes each dispatched segment to a WAV file.
	Dumper *audio.Dumper
}

// NewDispatcher wires the recognition and action path.
func NewDispatcher(recognizer asr.Recognizer, matcher *command.Matcher, sink input.Sink, textMode input.TextMode) *Dispatcher {
	return &Dispatcher{
		recognizer: recognizer,
		matcher:    matcher,
		sink:       sink,
		textMode:   textMode,
	}
}

// Dispatch encodes one segment, recognizes it, and performs the matched
// action. It returns a human-readable description of what happened:
// the dictated text, "[command] phrase → shortcut", or "" when the
// recognizer heard nothing.
//
// allow, if non-nil, is consulted after recognition returns and before
// any action is performed; returning false discards the result (used to
// drop stale results after a capture mode has been deactivated).
//
// Action sink failures are logged and do not fail the dispatch: a missed
// keystroke must not stall capture.
func (d *Dispatcher) Dispatch(ctx context.Context, samples []float32, sampleRate int, allow func() bool) (string, error) {
	id := uuid.NewString()[:8]

	ctx, span := trace.Start(ctx, "dispatch",
		attribute.String("segment.id", id),
		attribute.Int("segment.samples", len(samples)),
		attribute.String("recognizer", d.recognizer.Name()),
	)
	defer span.End()

	wav, err := audio.EncodeWAV(samples, sampleRate)
	if err != nil {
		return "", fmt.Errorf("encode segment %s: %w", id, err)
	}

	if d.Dumper != nil {
		if path, err := d.Dumper.Dump(samples, sampleRate); err != nil {
			log.Printf("[Dispatch] %s: dump segment: %v", id, err)
		} else {
			log.Printf("[Dispatch] %s: segment dumped to %s", id, path)
		}
	}

	text, err := d.recognizer.Recognize(ctx, wav)
	if err != nil {
		span.SetAttributes(attribute.String("outcome", "error"))
		return "", fmt.Errorf("recognize segment %s: %w", id, err)
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		// No speech detected; nothing to do and nothing wrong.
		span.SetAttributes(attribute.String("outcome", "empty"))
		return "", nil
	}

	if allow != nil && !allow() {
		log.Printf("[Dispatch] %s: capture mode deactivated, result %q discarded", id, trimmed)
		span.SetAttributes(attribute.String("outcome", "stale"))
		return "", nil
	}

	res := d.matcher.Match(text)
	switch res.Kind {
	case command.KindCommand:
		span.SetAttributes(attribute.String("outcome", "command"))
		log.Printf("[Dispatch] %s: command %q → %s", id, res.Text, res.Shortcut)
		if err := d.sink.SendShortcut(res.Shortcut); err != nil {
			log.Printf("[Dispatch] %s: send shortcut: %v", id, err)
		}
		return fmt.Sprintf("[command] %s → %s", res.Text, res.Shortcut), nil
	default:
		span.SetAttributes(attribute.String("outcome", "text"))
		log.Printf("[Dispatch] %s: text %q", id, res.Text)
		if err := d.sink.TypeText(res.Text, d.textMode); err != nil {
			log.Printf("[Dispatch] %s: type text: %v", id, err)
		}
		return res.Text, nil
	}
}
