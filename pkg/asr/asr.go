// Package asr provides the speech recognition client: a segment of WAV
// audio goes in, recognized text comes out. The remote service is opaque;
// this package only deals with the wire exchange and error taxonomy.
package asr

import "context"

// Recognizer performs speech recognition on one complete audio segment.
type Recognizer interface {
	// Name returns the recognizer name for logging.
	Name() string

	// Recognize sends a mono 16-bit PCM WAV segment and returns the
	// recognized text. Empty text is a valid result (no speech detected),
	// not an error.
	Recognize(ctx context.Context, wav []byte) (string, error)
}

// Error is a typed recognition error. The code lets callers distinguish
// configuration problems (which should fail fast) from per-segment
// failures (which are logged and dropped).
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode classifies recognition failures.
type ErrorCode int

const (
	ErrCodeUnknown ErrorCode = iota
	ErrCodeInvalidConfig
	ErrCodeInvalidAudio
	ErrCodeNetworkError
	ErrCodeBadStatus
	ErrCodeMalformedResponse
	ErrCodeServerError
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeInvalidConfig:
		return "invalid_config"
	case ErrCodeInvalidAudio:
		return "invalid_audio"
	case ErrCodeNetworkError:
		return "network_error"
	case ErrCodeBadStatus:
		return "bad_status"
	case ErrCodeMalformedResponse:
		return "malformed_response"
	case ErrCodeServerError:
		return "server_error"
	}
	return "unknown"
}
