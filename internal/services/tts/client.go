// Package tts is a minimal ElevenLabs text-to-speech client used by the
// voiceover stage. Each call is a single attempt; failures carry the error
// markers from package services so the stage retry policy can decide.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"demoforge/internal/services"
)

const (
	serviceName         = "tts"
	defaultBaseURL      = "https://api.elevenlabs.io/v1"
	defaultModelID      = "eleven_v3"
	defaultOutputFormat = "mp3_44100_128"
	defaultHTTPTimeout  = 300 * time.Second
	// DefaultMaxChars is the per-request text limit of the eleven_v3 model.
	DefaultMaxChars = 3000
)

// Config captures the runtime settings for the synthesis service.
type Config struct {
	APIKey         string
	BaseURL        string
	ModelID        string
	OutputFormat   string
	TimeoutSeconds int
}

// Voice selects a voice and its expressive settings. Numeric settings are
// in [0, 1].
type Voice struct {
	ID              string
	Stability       float64
	SimilarityBoost float64
	Style           float64
	SpeakerBoost    bool
}

// Client calls the text-to-speech endpoint.
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
	if strings.TrimSpace(cfg.ModelID) == "" {
		cfg.ModelID = defaultModelID
	}
	if strings.TrimSpace(cfg.OutputFormat) == "" {
		cfg.OutputFormat = defaultOutputFormat
	}
	client := &Client{cfg: cfg, httpClient: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// ModelID returns the configured synthesis model.
func (c *Client) ModelID() string { return c.cfg.ModelID }

// Ready reports whether the client has the credentials it needs.
func (c *Client) Ready() error {
	if c.cfg.APIKey == "" {
		return services.Wrap(services.ErrConfiguration, serviceName, "", "api key required", nil)
	}
	return nil
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// Synthesize renders text with voice and returns the encoded audio bytes.
func (c *Client) Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, services.Wrap(services.ErrValidation, serviceName, "synthesize", "text required", nil)
	}
	if strings.TrimSpace(voice.ID) == "" {
		return nil, services.Wrap(services.ErrValidation, serviceName, "synthesize", "voice id required", nil)
	}
	if err := c.Ready(); err != nil {
		return nil, err
	}

	endpoint, err := url.JoinPath(c.cfg.BaseURL, "text-to-speech", voice.ID)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, serviceName, "request", "invalid base url", err)
	}
	endpoint += "?output_format=" + url.QueryEscape(c.cfg.OutputFormat)

	encoded, err := json.Marshal(synthesisRequest{
		Text:    text,
		ModelID: c.cfg.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       voice.Stability,
			SimilarityBoost: voice.SimilarityBoost,
			Style:           voice.Style,
			UseSpeakerBoost: voice.SpeakerBoost,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("tts request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, serviceName, "request", "build request", err)
	}
	req.Header.Set("xi-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.TransportError(ctx, serviceName, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.TransportError(ctx, serviceName, err)
	}
	if err := services.CheckResponse(serviceName, resp, body); err != nil {
		return nil, err
	}
	if mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mediaType == "application/json" {
		return nil, services.Wrap(services.ErrGeneratorFatal, serviceName, "synthesize", "expected audio, got json: "+services.Snippet(string(body)), nil)
	}
	if len(body) == 0 {
		return nil, services.Wrap(services.ErrGeneratorTransient, serviceName, "synthesize", "empty audio response", nil)
	}
	return body, nil
}
