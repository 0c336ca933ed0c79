// Package vad implements voice activity detection over a continuous
// stream of mono audio frames, using RMS energy against a fixed
// threshold. The detector is a three-phase state machine:
//
//	Idle → Speaking → Processing → Idle
//
// Idle waits for a frame whose energy exceeds the threshold. Speaking
// accumulates frames, keeping sub-threshold frames during the hangover
// window so trailing speech is not clipped, and finalizes a segment once
// silence has lasted the configured timeout. Processing drops all input
// until Reset: recognition of the emitted segment is asynchronous, and
// holding this phase guarantees at most one segment is in flight and the
// buffer cannot grow unbounded while the recognizer is busy.
package vad

import (
	"log"
	"math"
	"time"
)

// Phase is the detector's current state.
type Phase int

const (
	// PhaseIdle waits for speech onset.
	PhaseIdle Phase = iota
	// PhaseSpeaking accumulates an utterance.
	PhaseSpeaking
	// PhaseProcessing holds the detector while a segment is recognized.
	PhaseProcessing
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSpeaking:
		return "speaking"
	case PhaseProcessing:
		return "processing"
	}
	return "unknown"
}

// Config holds the detector's fixed parameters.
type Config struct {
	// SpeechThreshold is the RMS energy above which a frame counts as speech.
	SpeechThreshold float32

	// SilenceTimeout is how long energy may stay below the threshold
	// before the current utterance is considered finished. Frames inside
	// this window still accumulate (the hangover period).
	SilenceTimeout time.Duration

	// MinSpeechDuration is the shortest utterance worth recognizing;
	// anything shorter is discarded as noise.
	MinSpeechDuration time.Duration
}

// Detector is the VAD state machine. It is not safe for concurrent use;
// callers serialize ProcessFrame and Reset (the capture path feeds frames
// under a single lock).
type Detector struct {
	cfg Config

	phase      Phase
	onset      time.Time
	lastSpeech time.Time
	buf        []float32

	now func() time.Time // injectable for tests
}

// NewDetector creates a detector with the given parameters.
// Zero values fall back to the defaults from the original tuning:
// threshold 0.03, silence timeout 800ms, minimum speech 300ms.
func NewDetector(cfg Config) *Detector {
	if cfg.SpeechThreshold == 0 {
		cfg.SpeechThreshold = 0.03
	}
	if cfg.SilenceTimeout == 0 {
		cfg.SilenceTimeout = 800 * time.Millisecond
	}
	if cfg.MinSpeechDuration == 0 {
		cfg.MinSpeechDuration = 300 * time.Millisecond
	}
	return &Detector{
		cfg:   cfg,
		phase: PhaseIdle,
		now:   time.Now,
	}
}

// RMS computes the root-mean-square amplitude of a frame, the energy
// measure used as the speech proxy.
func RMS(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return float32(math.Sqrt(sum / float64(len(samples))))
}

// ProcessFrame consumes one mono frame and returns a finalized speech
// segment, or nil if no segment completed on this frame. When a segment
// is returned the detector enters PhaseProcessing and ignores all further
// input until Reset; ownership of the returned buffer moves to the caller.
func (d *Detector) ProcessFrame(samples []float32) []float32 {
	energy := RMS(samples)
	isSpeech := energy > d.cfg.SpeechThreshold
	now := d.now()

	switch d.phase {
	case PhaseIdle:
		if isSpeech {
			d.phase = PhaseSpeaking
			d.onset = now
			d.lastSpeech = now
			d.buf = d.buf[:0]
			d.buf = append(d.buf, samples...)
			log.Printf("[VAD] speech onset (energy %.4f)", energy)
		}
		return nil

	case PhaseSpeaking:
		d.buf = append(d.buf, samples...)

		if isSpeech {
			d.lastSpeech = now
			return nil
		}
		if now.Sub(d.lastSpeech) < d.cfg.SilenceTimeout {
			// Hangover: keep accumulating through short pauses.
			return nil
		}

		// Duration counts speech only, not the trailing silence window:
		// otherwise any burst would pass the minimum once the hangover
		// elapsed, and the noise gate would never fire.
		duration := d.lastSpeech.Sub(d.onset)
		if duration < d.cfg.MinSpeechDuration {
			log.Printf("[VAD] segment too short (%v), discarded", duration)
			d.Reset()
			return nil
		}

		d.phase = PhaseProcessing
		segment := d.buf
		d.buf = nil
		log.Printf("[VAD] segment finalized: %v, %d samples", duration, len(segment))
		return segment

	case PhaseProcessing:
		// A segment is being recognized; drop input until Reset.
		return nil
	}
	return nil
}

// Phase returns the detector's current phase.
func (d *Detector) Phase() Phase {
	return d.phase
}

// Reset returns the detector to Idle and clears all working state.
// Called by the owner once recognition of an emitted segment has
// completed, successfully or not.
func (d *Detector) Reset() {
	d.phase = PhaseIdle
	d.onset = time.Time{}
	d.lastSpeech = time.Time{}
	d.buf = d.buf[:0]
}
