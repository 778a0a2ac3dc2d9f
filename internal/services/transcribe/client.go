// Package transcribe calls an OpenAI-compatible speech-to-text endpoint for
// the caption stage. Each call is a single attempt.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"demoforge/internal/services"
)

const (
	serviceName        = "transcribe"
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultModel       = "whisper-1"
	defaultHTTPTimeout = 300 * time.Second
)

// Config captures the runtime settings for the transcription service.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Language       string
	TimeoutSeconds int
}

// Transcript is the service reply. Timed transcripts are SRT documents;
// untimed ones are plain text the caller must pace itself.
type Transcript struct {
	Data  []byte
	Timed bool
}

// Client uploads audio for transcription.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a client using cfg.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultModel
	}
	client := &Client{cfg: cfg, httpClient: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Model returns the configured transcription model.
func (c *Client) Model() string { return c.cfg.Model }

// Ready reports whether the client has the credentials it needs.
func (c *Client) Ready() error {
	if c.cfg.APIKey == "" {
		return services.Wrap(services.ErrConfiguration, serviceName, "", "api key required", nil)
	}
	return nil
}

// Transcribe uploads the audio file and requests SRT output.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (Transcript, error) {
	if err := c.Ready(); err != nil {
		return Transcript{}, err
	}
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return Transcript{}, services.Wrap(services.ErrGeneratorFatal, serviceName, "read audio", audioPath, err)
	}
	if len(audio) == 0 {
		return Transcript{}, services.Wrap(services.ErrGeneratorFatal, serviceName, "read audio", audioPath+" is empty", nil)
	}

	body, contentType, err := c.encodeForm(filepath.Base(audioPath), audio)
	if err != nil {
		return Transcript{}, fmt.Errorf("transcribe request: encode form: %w", err)
	}
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "audio", "transcriptions")
	if err != nil {
		return Transcript{}, services.Wrap(services.ErrConfiguration, serviceName, "request", "invalid base url", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return Transcript{}, services.Wrap(services.ErrConfiguration, serviceName, "request", "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Transcript{}, services.TransportError(ctx, serviceName, err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Transcript{}, services.TransportError(ctx, serviceName, err)
	}
	if err := services.CheckResponse(serviceName, resp, payload); err != nil {
		return Transcript{}, err
	}
	return decodeTranscript(payload)
}

func (c *Client) encodeForm(filename string, audio []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", err
	}
	fields := [][2]string{
		{"model", c.cfg.Model},
		{"response_format", "srt"},
	}
	if lang := strings.TrimSpace(c.cfg.Language); lang != "" {
		fields = append(fields, [2]string{"language", lang})
	}
	for _, f := range fields {
		if err := form.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	if err := form.Close(); err != nil {
		return nil, "", err
	}
	return &buf, form.FormDataContentType(), nil
}

// decodeTranscript accepts an SRT body, or a JSON {"text": ...} body from
// gateways that ignore response_format.
func decodeTranscript(payload []byte) (Transcript, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return Transcript{}, services.Wrap(services.ErrGeneratorTransient, serviceName, "decode", "empty transcript", nil)
	}
	if trimmed[0] == '{' {
		var parsed struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(trimmed, &parsed); err != nil {
			return Transcript{}, services.Wrap(services.ErrGeneratorTransient, serviceName, "decode", services.Snippet(string(trimmed)), err)
		}
		text := strings.TrimSpace(parsed.Text)
		if text == "" {
			return Transcript{}, services.Wrap(services.ErrGeneratorTransient, serviceName, "decode", "empty transcript", nil)
		}
		return Transcript{Data: []byte(text)}, nil
	}
	return Transcript{Data: trimmed, Timed: bytes.Contains(trimmed, []byte("-->"))}, nil
}
