package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voxkey/voxkey/pkg/audio"
	"github.com/voxkey/voxkey/pkg/vad"
)

// Recorder is the control surface of the audio source: it flips whether
// captured frames are accepted into the shared session buffer. Both
// operations are idempotent.
type Recorder interface {
	Start()
	Stop()
}

// State values published to the event sink, mirroring the UI states of
// the capture lifecycle.
const (
	StateRecording   = "recording"
	StateRecognizing = "recognizing"
	StateIdle        = "idle"
)

var (
	// ErrDetectionActive is returned when manual recording is requested
	// while continuous detection owns the capture stream.
	ErrDetectionActive = errors.New("continuous detection is active")

	// ErrRecordingActive is returned when continuous detection is
	// requested while a manual recording owns the capture stream.
	ErrRecordingActive = errors.New("manual recording is active")

	// ErrNotRecording is returned by EndRecording without a matching
	// BeginRecording.
	ErrNotRecording = errors.New("no recording in progress")
)

// DefaultGraceDelay is how long EndRecording waits after disabling
// capture before draining the buffer, letting an in-flight hardware
// callback finish its append.
const DefaultGraceDelay = 100 * time.Millisecond

// Controller arbitrates the two capture modes over one audio source.
// Manual push-to-talk and continuous detection are mutually exclusive:
// activating one while the other holds the stream is a precondition
// violation and is rejected, so the shared buffer always has exactly one
// owner.
type Controller struct {
	session    *audio.Session
	rec        Recorder
	dispatcher *Dispatcher
	sampleRate int

	// GraceDelay overrides DefaultGraceDelay, mainly for tests.
	GraceDelay time.Duration

	// OnEvent, if set, receives lifecycle events ("state", "result",
	// "error") for UI consumption. Must not block.
	OnEvent func(kind, detail string)

	mu           sync.Mutex
	manualActive bool
	vadEnabled   bool
	epoch        atomic.Uint64
	stopCh       chan struct{}
	loopDone     chan struct{}

	detMu     sync.Mutex
	detector  *vad.Detector
	detecting atomic.Bool
	segCh     chan []float32
}

// NewController creates a controller over the given capture session.
// detector carries the VAD tuning for continuous mode.
func NewController(session *audio.Session, rec Recorder, detector *vad.Detector, dispatcher *Dispatcher, sampleRate int) *Controller {
	return &Controller{
		session:    session,
		rec:        rec,
		dispatcher: dispatcher,
		detector:   detector,
		sampleRate: sampleRate,
		GraceDelay: DefaultGraceDelay,
		segCh:      make(chan []float32, 1),
	}
}

func (c *Controller) emit(kind, detail string) {
	if c.OnEvent != nil {
		c.OnEvent(kind, detail)
	}
}

// BeginRecording starts manual push-to-talk capture. Idempotent while
// already recording; rejected while continuous detection is enabled.
func (c *Controller) BeginRecording() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.vadEnabled {
		return ErrDetectionActive
	}
	if c.manualActive {
		return nil
	}
	c.manualActive = true
	c.rec.Start()
	c.emit("state", StateRecording)
	log.Printf("[Session] manual recording started")
	return nil
}

// EndRecording stops manual capture, drains the buffer as one segment
// and drives it through recognition. The recognized text (or command
// description) is returned for the caller's UI.
func (c *Controller) EndRecording(ctx context.Context) (string, error) {
	c.mu.Lock()
	if !c.manualActive {
		c.mu.Unlock()
		return "", ErrNotRecording
	}
	c.manualActive = false
	c.rec.Stop()
	c.mu.Unlock()

	// Let an in-flight hardware callback finish writing before draining.
	time.Sleep(c.GraceDelay)

	samples := c.session.Take()
	c.emit("state", StateRecognizing)
	defer c.emit("state", StateIdle)

	text, err := c.dispatcher.Dispatch(ctx, samples, c.sampleRate, nil)
	if err != nil {
		c.emit("error", err.Error())
		return "", err
	}
	if text != "" {
		c.emit("result", text)
	}
	log.Printf("[Session] manual recording dispatched: %q", text)
	return text, nil
}

// Recording reports whether a manual recording is in progress.
func (c *Controller) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.manualActive
}

// DetectionEnabled reports whether continuous detection is on.
func (c *Controller) DetectionEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vadEnabled
}

// ToggleDetection flips continuous detection and returns the new state.
func (c *Controller) ToggleDetection() (bool, error) {
	c.mu.Lock()
	enable := !c.vadEnabled
	c.mu.Unlock()
	if err := c.SetDetection(enable); err != nil {
		return !enable, err
	}
	return enable, nil
}

// SetDetection enables or disables continuous VAD capture. Enabling is
// rejected while a manual recording is active. Disabling signals the
// detection loop to terminate; an in-flight recognition is allowed to
// complete but its result is discarded via the epoch check.
func (c *Controller) SetDetection(enable bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if enable == c.vadEnabled {
		return nil
	}
	if enable {
		if c.manualActive {
			return ErrRecordingActive
		}
		c.vadEnabled = true
		c.epoch.Add(1)
		c.detMu.Lock()
		c.detector.Reset()
		c.detMu.Unlock()
		c.drainSegments()
		c.stopCh = make(chan struct{})
		c.loopDone = make(chan struct{})
		c.detecting.Store(true)
		go c.detectLoop(c.epoch.Load(), c.stopCh, c.loopDone)
		log.Printf("[Session] continuous detection enabled")
		return nil
	}

	c.vadEnabled = false
	c.detecting.Store(false)
	c.epoch.Add(1)
	close(c.stopCh)
	log.Printf("[Session] continuous detection disabled")
	return nil
}

// WaitDetectionStopped blocks until the detection loop has exited.
// Useful during shutdown; returns immediately if detection never ran.
func (c *Controller) WaitDetectionStopped() {
	c.mu.Lock()
	done := c.loopDone
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// drainSegments discards any segment left over from a previous activation.
func (c *Controller) drainSegments() {
	select {
	case <-c.segCh:
	default:
	}
}

// HandleFrame feeds one captured mono frame into the detector. It is
// wired as the capture device's frame handler and therefore runs on the
// hardware callback: the work is bounded to an RMS computation and a
// buffer append under a short lock.
func (c *Controller) HandleFrame(frame audio.Frame) {
	if !c.detecting.Load() {
		return
	}

	c.detMu.Lock()
	segment := c.detector.ProcessFrame(frame.Samples)
	c.detMu.Unlock()

	if segment == nil {
		return
	}
	select {
	case c.segCh <- segment:
	default:
		// Cannot happen while the detector honors its Processing phase:
		// a second segment is never finalized before Reset.
		log.Printf("[Session] segment queue full, segment dropped")
	}
}

// detectLoop dispatches finalized segments one at a time. The detector is
// reset only after each recognition attempt completes, keeping at most
// one segment in flight.
func (c *Controller) detectLoop(epoch uint64, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case <-stop:
			return
		case segment := <-c.segCh:
			c.emit("state", StateRecognizing)

			allow := func() bool { return c.epoch.Load() == epoch }
			text, err := c.dispatcher.Dispatch(context.Background(), segment, c.sampleRate, allow)

			// A newer activation owns the detector now; this loop must
			// not touch it, emit, or go back to the select where it
			// could steal the new activation's segment.
			if c.epoch.Load() != epoch {
				return
			}

			if err != nil {
				log.Printf("[Session] detection dispatch: %v", err)
				c.emit("error", err.Error())
			} else if text != "" {
				c.emit("result", text)
			}

			c.detMu.Lock()
			c.detector.Reset()
			c.detMu.Unlock()
			c.emit("state", StateIdle)
		}
	}
}
