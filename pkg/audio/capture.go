// Package audio owns microphone capture and the PCM plumbing around it:
// the malgo capture device pinned to a dedicated goroutine, the shared
// recording session buffer, mono downmixing, and WAV encoding of
// finished segments.
package audio

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"

	"github.com/gen2brain/malgo"
)

const (
	// DefaultSampleRate is the capture rate used when none is configured.
	// 16kHz mono is what the recognition service expects.
	DefaultSampleRate = 16000

	// DefaultPeriodMs is the size of each hardware period in milliseconds.
	DefaultPeriodMs = 20
)

// Frame is one period of captured audio, already downmixed to mono.
// Samples are float32 in [-1.0, 1.0].
type Frame struct {
	Samples    []float32
	SampleRate int
}

// FrameHandler receives every captured frame on the device's data callback.
// It must not block: the callback runs on a hardware-driven thread.
type FrameHandler func(Frame)

// CaptureConfig configures the capture device.
type CaptureConfig struct {
	// SampleRate in Hz. Defaults to DefaultSampleRate.
	SampleRate int

	// Channels requested from the device. Frames handed to consumers are
	// always mono; multi-channel input is downmixed by averaging.
	// Defaults to 1.
	Channels int

	// PeriodMs is the hardware period size. Defaults to DefaultPeriodMs.
	PeriodMs int
}

func (c *CaptureConfig) applyDefaults() {
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.Channels == 0 {
		c.Channels = 1
	}
	if c.PeriodMs == 0 {
		c.PeriodMs = DefaultPeriodMs
	}
}

type captureCmd int

const (
	cmdStart captureCmd = iota
	cmdStop
	cmdShutdown
)

// Capture owns the malgo context and capture device. The device handle is
// only ever touched by the goroutine started in Open; control calls
// communicate with it through a command channel, never directly.
type Capture struct {
	cfg     CaptureConfig
	session *Session
	handler FrameHandler

	cmds chan captureCmd
	done chan struct{}
}

// Open initializes the capture device and starts its owner goroutine.
// Device acquisition errors (no input device, unsupported config) are
// returned synchronously; once Open returns nil the stream is running.
//
// The handler, if non-nil, is invoked with every mono frame regardless of
// session state. It runs on the hardware data callback and must be cheap.
func Open(cfg CaptureConfig, session *Session, handler FrameHandler) (*Capture, error) {
	cfg.applyDefaults()

	c := &Capture{
		cfg:     cfg,
		session: session,
		handler: handler,
		cmds:    make(chan captureCmd),
		done:    make(chan struct{}),
	}

	initErr := make(chan error, 1)
	go c.run(initErr)

	if err := <-initErr; err != nil {
		return nil, err
	}
	return c, nil
}

// run owns the device for its entire lifetime.
func (c *Capture) run(initErr chan<- error) {
	defer close(c.done)

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		initErr <- fmt.Errorf("failed to initialize audio context: %w", err)
		return
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.PeriodSizeInMilliseconds = uint32(c.cfg.PeriodMs)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(c.cfg.Channels)
	deviceConfig.SampleRate = uint32(c.cfg.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: c.onFrames,
	})
	if err != nil {
		initErr <- fmt.Errorf("failed to initialize capture device: %w", err)
		return
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		device.Uninit()
		initErr <- fmt.Errorf("failed to start capture device: %w", err)
		return
	}
	initErr <- nil

	for cmd := range c.cmds {
		switch cmd {
		case cmdStart:
			c.session.Begin()
			log.Printf("[Capture] recording enabled")
		case cmdStop:
			c.session.Stop()
			log.Printf("[Capture] recording disabled")
		case cmdShutdown:
			if err := device.Stop(); err != nil {
				log.Printf("[Capture] stop device: %v", err)
			}
			return
		}
	}
}

// onFrames is the hardware data callback. It converts the raw period to
// mono float32, appends to the session if recording is enabled, and hands
// the frame to the registered handler. No allocation beyond the frame
// copy, no blocking calls.
func (c *Capture) onFrames(outputSamples, inputSamples []byte, framecount uint32) {
	mono := decodeF32(inputSamples, c.cfg.Channels)
	if len(mono) == 0 {
		return
	}

	c.session.Append(mono)

	if c.handler != nil {
		c.handler(Frame{Samples: mono, SampleRate: c.cfg.SampleRate})
	}
}

// Start begins accepting captured frames into the session buffer.
// Idempotent if already recording.
func (c *Capture) Start() {
	select {
	case c.cmds <- cmdStart:
	case <-c.done:
	}
}

// Stop stops accepting frames. Idempotent if already stopped.
func (c *Capture) Stop() {
	select {
	case c.cmds <- cmdStop:
	case <-c.done:
	}
}

// SampleRate returns the configured capture rate.
func (c *Capture) SampleRate() int {
	return c.cfg.SampleRate
}

// Close shuts down the device and its owner goroutine.
func (c *Capture) Close() {
	select {
	case c.cmds <- cmdShutdown:
		<-c.done
	case <-c.done:
	}
}

// decodeF32 converts little-endian float32 PCM bytes to mono samples,
// averaging across channels when the stream is multi-channel.
func decodeF32(data []byte, channels int) []float32 {
	n := len(data) / 4
	if n == 0 {
		return nil
	}
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		samples[i] = math.Float32frombits(bits)
	}
	if channels <= 1 {
		return samples
	}
	return Downmix(samples, channels)
}

// Downmix averages interleaved multi-channel samples into one mono
// signal. Trailing samples that do not fill a whole frame are dropped.
func Downmix(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += interleaved[i*channels+ch]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}
