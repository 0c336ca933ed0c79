package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/voxkey/voxkey/pkg/asr"
	"github.com/voxkey/voxkey/pkg/audio"
	"github.com/voxkey/voxkey/pkg/command"
	"github.com/voxkey/voxkey/pkg/config"
	"github.com/voxkey/voxkey/pkg/input"
	"github.com/voxkey/voxkey/pkg/server"
	"github.com/voxkey/voxkey/pkg/session"
	"github.com/voxkey/voxkey/pkg/trace"
	"github.com/voxkey/voxkey/pkg/vad"
)

// lateRecorder defers binding the capture device so the controller can
// be constructed before the device opens.
type lateRecorder struct {
	mu sync.Mutex
	c  *audio.Capture
}

func (r *lateRecorder) bind(c *audio.Capture) {
	r.mu.Lock()
	r.c = c
	r.mu.Unlock()
}

func (r *lateRecorder) Start() {
	r.mu.Lock()
	c := r.c
	r.mu.Unlock()
	if c != nil {
		c.Start()
	}
}

func (r *lateRecorder) Stop() {
	r.mu.Lock()
	c := r.c
	r.mu.Unlock()
	if c != nil {
		c.Stop()
	}
}

func defaultConfigPath() string {
	if p := os.Getenv("VOXKEY_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "voxkey", "config.yaml")
}

// newRecognizer selects the recognition backend: the dictation server by
// default, Whisper when ASR_BACKEND=whisper.
func newRecognizer(cfg *config.Config) (asr.Recognizer, error) {
	if os.Getenv("ASR_BACKEND") == "whisper" {
		return asr.NewWhisperClient(os.Getenv("OPENAI_API_KEY"), os.Getenv("WHISPER_MODEL"))
	}
	return asr.NewHTTPClient(cfg.Server.URL, cfg.Server.ASRConfigID)
}

func main() {
	godotenv.Load()

	configPath := flag.String("config", defaultConfigPath(), "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	log.Printf("[Main] config loaded from %s", *configPath)

	ctx := context.Background()
	if err := trace.Initialize(ctx, trace.DefaultConfig()); err != nil {
		log.Fatalf("initialize tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := trace.Shutdown(shutdownCtx); err != nil {
			log.Printf("[Main] trace shutdown: %v", err)
		}
	}()

	matcher, err := command.NewMatcher(cfg.Commands)
	if err != nil {
		log.Fatalf("load command table: %v", err)
	}

	recognizer, err := newRecognizer(cfg)
	if err != nil {
		log.Fatalf("create recognizer: %v", err)
	}
	log.Printf("[Main] recognizer: %s", recognizer.Name())

	textMode := input.TextModeKeystrokes
	if cfg.Input.UseClipboard {
		textMode = input.TextModeClipboard
	}

	dispatcher := session.NewDispatcher(recognizer, matcher, input.LogSink{}, textMode)
	if dir := os.Getenv("DUMP_SEGMENTS"); dir != "" {
		dumper, err := audio.NewDumper(dir, "segment")
		if err != nil {
			log.Fatalf("create segment dumper: %v", err)
		}
		dispatcher.Dumper = dumper
		log.Printf("[Main] dumping segments to %s", dir)
	}

	audioSession := audio.NewSession()

	detector := vad.NewDetector(vad.Config{
		SpeechThreshold:   cfg.VAD.SpeechThreshold,
		SilenceTimeout:    time.Duration(cfg.VAD.SilenceTimeoutMs) * time.Millisecond,
		MinSpeechDuration: time.Duration(cfg.VAD.MinSpeechDurationMs) * time.Millisecond,
	})

	// The controller must exist before the device opens: frames start
	// flowing as soon as Open returns and are handed to HandleFrame.
	// The recorder side is bound once the device is up; nothing starts
	// a recording until the control server is serving.
	rec := &lateRecorder{}
	controller := session.NewController(audioSession, rec, detector, dispatcher, cfg.Audio.SampleRate)

	capture, err := audio.Open(audio.CaptureConfig{
		SampleRate: cfg.Audio.SampleRate,
		Channels:   cfg.Audio.Channels,
	}, audioSession, controller.HandleFrame)
	if err != nil {
		log.Fatalf("open capture device: %v", err)
	}
	defer capture.Close()
	rec.bind(capture)

	ctrl := server.New(&server.Config{
		Addr:            cfg.Control.Addr,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}, controller, cfg)
	controller.OnEvent = ctrl.Broadcast

	if err := ctrl.Start(); err != nil {
		log.Fatalf("start control server: %v", err)
	}
	log.Printf("[Main] ready; control API on %s", cfg.Control.Addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("[Main] shutting down")

	if controller.DetectionEnabled() {
		_ = controller.SetDetection(false)
		controller.WaitDetectionStopped()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ctrl.Stop(shutdownCtx); err != nil {
		log.Printf("[Main] control server shutdown: %v", err)
	}
}
