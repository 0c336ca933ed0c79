// Package config provides the YAML configuration schema and loader for
// voxkey: recognition server settings, capture tuning, VAD thresholds,
// the input mode, and the voice command table.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig      `yaml:"server"`
	Hotkey   HotkeyConfig      `yaml:"hotkey"`
	Input    InputConfig       `yaml:"input"`
	Audio    AudioConfig       `yaml:"audio"`
	VAD      VADConfig         `yaml:"vad"`
	Control  ControlConfig     `yaml:"control"`
	Commands map[string]string `yaml:"commands"`
}

// ServerConfig points at the recognition service.
type ServerConfig struct {
	// URL is the base URL of the recognition server.
	URL string `yaml:"url"`

	// ASRConfigID is the opaque recognizer-profile identifier sent with
	// every request.
	ASRConfigID string `yaml:"asr_config_id"`
}

// HotkeyConfig names the push-to-talk trigger. Registration of the global
// hotkey is up to the embedding environment; the value is informational
// for whatever front end drives the control server.
type HotkeyConfig struct {
	Record string `yaml:"record"`
}

// InputConfig selects how dictated text is entered.
type InputConfig struct {
	// UseClipboard switches text entry from simulated keystrokes to
	// clipboard paste.
	UseClipboard bool `yaml:"use_clipboard"`
}

// AudioConfig tunes the capture device.
type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`
}

// VADConfig tunes continuous detection.
type VADConfig struct {
	SpeechThreshold     float32 `yaml:"speech_threshold"`
	SilenceTimeoutMs    int     `yaml:"silence_timeout_ms"`
	MinSpeechDurationMs int     `yaml:"min_speech_duration_ms"`
}

// ControlConfig configures the local control/event server.
type ControlConfig struct {
	// Addr is the listen address, e.g. "127.0.0.1:8721".
	Addr string `yaml:"addr"`
}

// Default returns the configuration written on first run.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			URL:         "http://127.0.0.1:3000",
			ASRConfigID: "default",
		},
		Hotkey: HotkeyConfig{Record: "Ctrl+Space"},
		Input:  InputConfig{UseClipboard: false},
		Audio:  AudioConfig{SampleRate: 16000, Channels: 1},
		VAD: VADConfig{
			SpeechThreshold:     0.03,
			SilenceTimeoutMs:    800,
			MinSpeechDurationMs: 300,
		},
		Control: ControlConfig{Addr: "127.0.0.1:8721"},
		Commands: map[string]string{
			"save report":   "F2",
			"next case":     "ALT+B",
			"previous case": "ALT+A",
			"new line":      "ENTER",
		},
	}
}

// Load reads the configuration file, filling unset fields with defaults.
// If the file does not exist, the default configuration is written to
// path and returned.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := Default()
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML, creating parent directories.
func Save(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate checks the loaded values for obvious mistakes.
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("server.url is required")
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	}
	if c.Audio.Channels <= 0 {
		return fmt.Errorf("audio.channels must be positive, got %d", c.Audio.Channels)
	}
	if c.VAD.SpeechThreshold < 0 || c.VAD.SpeechThreshold > 1 {
		return fmt.Errorf("vad.speech_threshold must be within [0, 1], got %g", c.VAD.SpeechThreshold)
	}
	if c.VAD.SilenceTimeoutMs <= 0 {
		return fmt.Errorf("vad.silence_timeout_ms must be positive, got %d", c.VAD.SilenceTimeoutMs)
	}
	if c.VAD.MinSpeechDurationMs <= 0 {
		return fmt.Errorf("vad.min_speech_duration_ms must be positive, got %d", c.VAD.MinSpeechDurationMs)
	}
	return nil
}
