package asr

import (
	"bytes"
	"context"
	"log"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// WhisperClient recognizes speech through the OpenAI Whisper API, as an
// alternative to the in-house sync endpoint. Segments are already WAV
// encoded, which is what the transcription endpoint expects.
type WhisperClient struct {
	client *openai.Client
	model  string
}

// NewWhisperClient creates a Whisper recognizer.
// If apiKey is empty, configuration is rejected. OPENAI_BASE_URL
// overrides the API endpoint for self-hosted compatible servers.
func NewWhisperClient(apiKey, model string) (*WhisperClient, error) {
	if apiKey == "" {
		return nil, &Error{Code: ErrCodeInvalidConfig, Message: "OpenAI API key is required"}
	}
	if model == "" {
		model = openai.Whisper1
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		clientConfig.BaseURL = baseURL
		log.Printf("[Whisper] using BaseURL: %s", clientConfig.BaseURL)
	}

	return &WhisperClient{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}, nil
}

// Name implements Recognizer.
func (w *WhisperClient) Name() string {
	return "openai-whisper"
}

// Recognize implements Recognizer.
func (w *WhisperClient) Recognize(ctx context.Context, wav []byte) (string, error) {
	if len(wav) == 0 {
		return "", &Error{Code: ErrCodeInvalidAudio, Message: "audio data is empty"}
	}

	req := openai.AudioRequest{
		Model:    w.model,
		FilePath: "recording.wav", // filename hint for the API
		Reader:   bytes.NewReader(wav),
	}

	resp, err := w.client.CreateTranscription(ctx, req)
	if err != nil {
		return "", &Error{Code: ErrCodeNetworkError, Message: "Whisper API request failed", Err: err}
	}
	return resp.Text, nil
}

var _ Recognizer = (*WhisperClient)(nil)
