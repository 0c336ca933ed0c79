package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

// recognizePath is the sync recognition endpoint relative to the base URL.
const recognizePath = "/api/tasks/asr-recognize/sync"

// HTTPClient talks to the recognition service's synchronous endpoint.
// The request is a multipart form carrying the WAV file and a profile
// identifier; the response is JSON with either a data.text field or an
// error field.
type HTTPClient struct {
	baseURL   string
	profileID string
	client    *http.Client
}

// HTTPClientOption configures an HTTPClient.
type HTTPClientOption func(*HTTPClient)

// WithHTTPClient overrides the underlying http.Client, e.g. to set a
// custom timeout or transport.
func WithHTTPClient(c *http.Client) HTTPClientOption {
	return func(h *HTTPClient) {
		h.client = c
	}
}

// NewHTTPClient creates a recognition client for the given server.
// profileID is the opaque recognizer-profile identifier forwarded with
// every request.
func NewHTTPClient(baseURL, profileID string, opts ...HTTPClientOption) (*HTTPClient, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, &Error{Code: ErrCodeInvalidConfig, Message: "recognition server URL is required"}
	}

	h := &HTTPClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		profileID: profileID,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Name implements Recognizer.
func (h *HTTPClient) Name() string {
	return "http-sync"
}

// asrResponse mirrors the service's JSON envelope.
type asrResponse struct {
	Data *struct {
		Text string `json:"text"`
	} `json:"data"`
	Error string `json:"error"`
}

// Recognize implements Recognizer.
func (h *HTTPClient) Recognize(ctx context.Context, wav []byte) (string, error) {
	if len(wav) == 0 {
		return "", &Error{Code: ErrCodeInvalidAudio, Message: "audio data is empty"}
	}

	body, contentType, err := h.buildForm(wav)
	if err != nil {
		return "", &Error{Code: ErrCodeUnknown, Message: "failed to build request", Err: err}
	}

	url := h.baseURL + recognizePath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", &Error{Code: ErrCodeUnknown, Message: "failed to create request", Err: err}
	}
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return "", &Error{Code: ErrCodeNetworkError, Message: "recognition request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &Error{
			Code:    ErrCodeBadStatus,
			Message: fmt.Sprintf("recognition server returned status %d", resp.StatusCode),
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Code: ErrCodeNetworkError, Message: "failed to read response", Err: err}
	}

	var parsed asrResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &Error{Code: ErrCodeMalformedResponse, Message: "failed to parse response", Err: err}
	}
	if parsed.Error != "" {
		return "", &Error{Code: ErrCodeServerError, Message: "recognition error: " + parsed.Error}
	}
	if parsed.Data == nil {
		return "", &Error{Code: ErrCodeMalformedResponse, Message: "response has neither data nor error"}
	}

	log.Printf("[ASR] recognized %d bytes in %v", len(wav), time.Since(start))
	return parsed.Data.Text, nil
}

// buildForm assembles the multipart body: the WAV file under "file" and
// the profile identifier under "asrConfigId".
func (h *HTTPClient) buildForm(wav []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="recording.wav"`)
	header.Set("Content-Type", "audio/wav")
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(wav); err != nil {
		return nil, "", err
	}

	if err := w.WriteField("asrConfigId", h.profileID); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

var _ Recognizer = (*HTTPClient)(nil)
