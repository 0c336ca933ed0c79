package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxkey/voxkey/pkg/asr"
	"github.com/voxkey/voxkey/pkg/audio"
	"github.com/voxkey/voxkey/pkg/input"
	"github.com/voxkey/voxkey/pkg/vad"
)

// fakeRecorder flips the session directly, standing in for the capture
// device's Start/Stop commands.
type fakeRecorder struct{ s *audio.Session }

func (r *fakeRecorder) Start() { r.s.Begin() }
func (r *fakeRecorder) Stop()  { r.s.Stop() }

// eventLog collects controller events safely across goroutines.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) record(kind, detail string) {
	l.mu.Lock()
	l.events = append(l.events, kind+":"+detail)
	l.mu.Unlock()
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type testRig struct {
	controller *Controller
	session    *audio.Session
	recognizer *asr.MockRecognizer
	sink       *input.MockSink
	events     *eventLog
}

func newTestRig(t *testing.T, rec *asr.MockRecognizer) *testRig {
	t.Helper()

	session := audio.NewSession()
	sink := input.NewMockSink()
	dispatcher := NewDispatcher(rec, newTestMatcher(t), sink, input.TextModeKeystrokes)

	detector := vad.NewDetector(vad.Config{
		SpeechThreshold:   0.03,
		SilenceTimeout:    20 * time.Millisecond,
		MinSpeechDuration: time.Millisecond,
	})

	events := &eventLog{}
	c := NewController(session, &fakeRecorder{s: session}, detector, dispatcher, 16000)
	c.GraceDelay = time.Millisecond
	c.OnEvent = events.record

	return &testRig{
		controller: c,
		session:    session,
		recognizer: rec,
		sink:       sink,
		events:     events,
	}
}

// speakUtterance drives a complete short utterance through HandleFrame:
// two voiced frames, then a silent frame after the silence timeout.
func speakUtterance(c *Controller) {
	c.HandleFrame(audio.Frame{Samples: loudSegment(320), SampleRate: 16000})
	time.Sleep(5 * time.Millisecond)
	c.HandleFrame(audio.Frame{Samples: loudSegment(320), SampleRate: 16000})
	time.Sleep(30 * time.Millisecond)
	c.HandleFrame(audio.Frame{Samples: make([]float32, 320), SampleRate: 16000})
}

// waitDetectorIdle waits for the detection loop to finish its dispatch
// and re-arm the detector.
func waitDetectorIdle(t *testing.T, c *Controller) {
	t.Helper()
	require.Eventually(t, func() bool {
		c.detMu.Lock()
		defer c.detMu.Unlock()
		return c.detector.Phase() == vad.PhaseIdle
	}, time.Second, 2*time.Millisecond)
}

func TestManualRecordingFlow(t *testing.T) {
	rig := newTestRig(t, asr.NewMockRecognizerWithText("hello world"))
	c := rig.controller

	require.NoError(t, c.BeginRecording())
	assert.True(t, c.Recording())
	assert.True(t, rig.session.Enabled())

	rig.session.Append(loudSegment(1600))

	text, err := c.EndRecording(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
	assert.False(t, c.Recording())
	assert.False(t, rig.session.Enabled())
	assert.Equal(t, 0, rig.session.Len(), "buffer drained by dispatch")
	assert.Equal(t, 1, rig.recognizer.CallCount())

	assert.Equal(t, []string{
		"state:recording",
		"state:recognizing",
		"result:hello world",
		"state:idle",
	}, rig.events.snapshot())
}

func TestBeginRecordingIdempotent(t *testing.T) {
	rig := newTestRig(t, asr.NewMockRecognizer())
	c := rig.controller

	require.NoError(t, c.BeginRecording())
	rig.session.Append(loudSegment(100))
	require.NoError(t, c.BeginRecording())

	assert.Equal(t, 100, rig.session.Len(), "repeated begin must not wipe the buffer")
}

func TestEndRecordingWithoutBegin(t *testing.T) {
	rig := newTestRig(t, asr.NewMockRecognizer())

	_, err := rig.controller.EndRecording(context.Background())
	assert.ErrorIs(t, err, ErrNotRecording)
}

func TestEndRecordingEmptyBuffer(t *testing.T) {
	rig := newTestRig(t, asr.NewMockRecognizer())
	c := rig.controller

	require.NoError(t, c.BeginRecording())
	_, err := c.EndRecording(context.Background())
	require.Error(t, err, "nothing captured, nothing to recognize")
	assert.Equal(t, 0, rig.recognizer.CallCount())
}

func TestModesAreMutuallyExclusive(t *testing.T) {
	rig := newTestRig(t, asr.NewMockRecognizer())
	c := rig.controller

	require.NoError(t, c.SetDetection(true))
	assert.ErrorIs(t, c.BeginRecording(), ErrDetectionActive)

	require.NoError(t, c.SetDetection(false))
	c.WaitDetectionStopped()

	require.NoError(t, c.BeginRecording())
	assert.ErrorIs(t, c.SetDetection(true), ErrRecordingActive)

	_, _ = c.EndRecording(context.Background())
	require.NoError(t, c.SetDetection(true))
	require.NoError(t, c.SetDetection(false))
	c.WaitDetectionStopped()
}

func TestToggleDetection(t *testing.T) {
	rig := newTestRig(t, asr.NewMockRecognizer())
	c := rig.controller

	on, err := c.ToggleDetection()
	require.NoError(t, err)
	assert.True(t, on)
	assert.True(t, c.DetectionEnabled())

	on, err = c.ToggleDetection()
	require.NoError(t, err)
	assert.False(t, on)
	assert.False(t, c.DetectionEnabled())
	c.WaitDetectionStopped()
}

func TestDetectionDispatchesSegments(t *testing.T) {
	rig := newTestRig(t, asr.NewMockRecognizerWithText("first utterance"))
	c := rig.controller

	require.NoError(t, c.SetDetection(true))
	defer func() {
		_ = c.SetDetection(false)
		c.WaitDetectionStopped()
	}()

	speakUtterance(c)
	waitDetectorIdle(t, c)

	assert.Equal(t, 1, rig.recognizer.CallCount())
	assert.Equal(t, []string{"first utterance"}, rig.sink.TypedTexts)

	// The detector re-armed, so a second utterance is recognized too.
	speakUtterance(c)
	waitDetectorIdle(t, c)
	assert.Equal(t, 2, rig.recognizer.CallCount())
}

func TestDetectionIgnoresFramesWhenDisabled(t *testing.T) {
	rig := newTestRig(t, asr.NewMockRecognizerWithText("should not appear"))

	speakUtterance(rig.controller)
	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, 0, rig.recognizer.CallCount())
	assert.Equal(t, 0, rig.sink.ActionCount())
}

func TestDetectionSurvivesRecognitionFailure(t *testing.T) {
	rec := asr.NewMockRecognizer()
	var calls sync.Mutex
	failed := false
	rec.RecognizeFunc = func(ctx context.Context, wav []byte) (string, error) {
		calls.Lock()
		defer calls.Unlock()
		if !failed {
			failed = true
			return "", errors.New("recognizer unavailable")
		}
		return "recovered", nil
	}

	rig := newTestRig(t, rec)
	c := rig.controller

	require.NoError(t, c.SetDetection(true))
	defer func() {
		_ = c.SetDetection(false)
		c.WaitDetectionStopped()
	}()

	speakUtterance(c)
	waitDetectorIdle(t, c)
	assert.Equal(t, 1, rig.recognizer.CallCount())
	assert.Equal(t, 0, rig.sink.ActionCount())

	// A failed recognition must not wedge the loop.
	speakUtterance(c)
	waitDetectorIdle(t, c)
	assert.Equal(t, 2, rig.recognizer.CallCount())
	assert.Equal(t, []string{"recovered"}, rig.sink.TypedTexts)
}

func TestReenableWhileDispatchInFlight(t *testing.T) {
	release := make(chan struct{})
	var first atomic.Bool
	first.Store(true)
	rec := asr.NewMockRecognizer()
	rec.RecognizeFunc = func(ctx context.Context, wav []byte) (string, error) {
		if first.Swap(false) {
			<-release
		}
		return "recognized", nil
	}

	rig := newTestRig(t, rec)
	c := rig.controller

	require.NoError(t, c.SetDetection(true))
	speakUtterance(c)
	require.Eventually(t, func() bool {
		return rig.recognizer.CallCount() == 1
	}, time.Second, 2*time.Millisecond)

	// Flip detection off and on while the first dispatch is still in
	// flight, then let it finish. The superseded loop must exit without
	// touching the new activation's detector or its segment queue.
	require.NoError(t, c.SetDetection(false))
	require.NoError(t, c.SetDetection(true))
	close(release)

	speakUtterance(c)
	waitDetectorIdle(t, c)
	assert.Equal(t, 2, rig.recognizer.CallCount())
	assert.Equal(t, []string{"recognized"}, rig.sink.TypedTexts,
		"only the fresh activation's result may act")

	require.NoError(t, c.SetDetection(false))
	c.WaitDetectionStopped()
}

func TestDisableDiscardsInFlightResult(t *testing.T) {
	release := make(chan struct{})
	rec := asr.NewMockRecognizer()
	rec.RecognizeFunc = func(ctx context.Context, wav []byte) (string, error) {
		<-release
		return "save report", nil
	}

	rig := newTestRig(t, rec)
	c := rig.controller

	require.NoError(t, c.SetDetection(true))
	speakUtterance(c)

	require.Eventually(t, func() bool {
		return rig.recognizer.CallCount() == 1
	}, time.Second, 2*time.Millisecond)

	// Deactivate while recognition is still in flight, then let it finish.
	require.NoError(t, c.SetDetection(false))
	close(release)
	c.WaitDetectionStopped()

	assert.Equal(t, 0, rig.sink.ActionCount(), "late result must be discarded")
}
