// Package speech provides the text-to-speech provider client used by the
// mock-interview audio bridge.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Clip is a synthesized audio payload ready for playback.
type Clip struct {
	Data []byte
	MIME string
}

// Config holds TTS provider settings, loaded from the environment by the
// server wiring.
type Config struct {
	BaseURL string
	APIKey  string
	Voice   string
	Format  string
	Timeout time.Duration
}

// TransportError indicates the synthesis request failed: transport failure,
// non-success status, or an empty audio payload.
type TransportError struct {
	Status  int
	Message string
	Cause   error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("tts request failed with status %d: %s", e.Status, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("tts request failed: %v", e.Cause)
	}
	return fmt.Sprintf("tts request failed: %s", e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// Client is an HTTP client for the synthesis endpoint.
type Client struct {
	config *Config
	http   *http.Client
}

// NewClient creates a TTS client. Missing optional settings fall back to
// provider defaults.
func NewClient(config *Config) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		config: config,
		http:   &http.Client{Timeout: timeout},
	}
}

type synthesizeRequest struct {
	Text   string `json:"text"`
	Voice  string `json:"voice,omitempty"`
	Format string `json:"format,omitempty"`
}

// Synthesize converts plain text (no markup) into an audio clip.
func (c *Client) Synthesize(ctx context.Context, text string) (Clip, error) {
	if strings.TrimSpace(text) == "" {
		return Clip{}, &TransportError{Message: "text is empty"}
	}

	payload, err := json.Marshal(synthesizeRequest{
		Text:   text,
		Voice:  c.config.Voice,
		Format: c.config.Format,
	})
	if err != nil {
		return Clip{}, &TransportError{Message: "failed to encode request", Cause: err}
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/v1/synthesize"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Clip{}, &TransportError{Message: "failed to build request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return Clip{}, &TransportError{Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Clip{}, &TransportError{Status: resp.StatusCode, Message: readErrorBody(resp.Body)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Clip{}, &TransportError{Message: "failed to read audio payload", Cause: err}
	}
	if len(data) == 0 {
		return Clip{}, &TransportError{Message: "empty audio payload"}
	}

	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "audio/mpeg"
	}
	return Clip{Data: data, MIME: mime}, nil
}

// readErrorBody extracts a short provider error message, tolerating both JSON
// {"error": "..."} bodies and plain text.
func readErrorBody(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return "no error detail"
	}

	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &parsed) == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return strings.TrimSpace(string(data))
}
