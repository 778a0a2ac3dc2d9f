package llm

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"demoforge/internal/services"
)

const (
	serviceName        = "llm"
	defaultBaseURL     = "https://api.openai.com/v1/chat/completions"
	defaultModel       = "gpt-4o-mini"
	defaultHTTPTimeout = 120 * time.Second
	defaultTemperature = 0.7
	defaultMaxTokens   = 4096
)

// Config captures the runtime settings required to talk to the LLM.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	Temperature    float64
	MaxTokens      int
	TimeoutSeconds int
}

// Client wraps a chat completion endpoint.
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

// NewClient constructs an LLM client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	client := &Client{cfg: cfg.normalized(), httpClient: &http.Client{Timeout: cfg.timeout()}}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func (cfg Config) timeout() time.Duration {
	if cfg.TimeoutSeconds > 0 {
		return time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return defaultHTTPTimeout
}

func (cfg Config) normalized() Config {
	for _, field := range []*string{&cfg.APIKey, &cfg.BaseURL, &cfg.Model, &cfg.Referer, &cfg.Title} {
		*field = strings.TrimSpace(*field)
	}
	cfg.BaseURL = cmp.Or(cfg.BaseURL, defaultBaseURL)
	cfg.Model = cmp.Or(cfg.Model, defaultModel)
	if cfg.Temperature <= 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	return cfg
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.cfg.Model }

// Ready reports whether the client has the credentials it needs.
func (c *Client) Ready() error {
	if c.cfg.APIKey == "" {
		return services.Wrap(services.ErrConfiguration, serviceName, "", "api key required", nil)
	}
	return nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type replyText struct {
	Content string `json:"content"`
	Refusal string `json:"refusal"`
}

// chatReply accepts both the message and the streaming delta shapes; some
// providers send deltas even for non-streamed requests.
type chatReply struct {
	Choices []struct {
		Message      replyText `json:"message"`
		Delta        replyText `json:"delta"`
		Text         string    `json:"text"`
		FinishReason string    `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends the system and user prompts and returns the reply text.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	userPrompt = strings.TrimSpace(userPrompt)
	if userPrompt == "" {
		return "", services.Wrap(services.ErrValidation, serviceName, "complete", "user prompt required", nil)
	}
	if err := c.Ready(); err != nil {
		return "", err
	}
	req := chatRequest{Model: c.cfg.Model, Temperature: c.cfg.Temperature, MaxTokens: c.cfg.MaxTokens}
	if sys := strings.TrimSpace(systemPrompt); sys != "" {
		req.Messages = append(req.Messages, message{Role: "system", Content: sys})
	}
	req.Messages = append(req.Messages, message{Role: "user", Content: userPrompt})

	reply, raw, err := c.post(ctx, req)
	if err != nil {
		return "", err
	}
	text, finish, refusal := reply.first()
	switch {
	case text != "":
		return text, nil
	case refusal != "":
		return "", services.Wrap(services.ErrGeneratorFatal, serviceName, "complete", "model refused: "+refusal, nil)
	default:
		// Empty replies are usually provider hiccups; another attempt tends to work.
		detail := fmt.Sprintf("empty content (finish_reason=%q, response=%s)", finish, services.Snippet(string(raw)))
		return "", services.Wrap(services.ErrGeneratorTransient, serviceName, "complete", detail, nil)
	}
}

func (c *Client) post(ctx context.Context, payload chatRequest) (chatReply, []byte, error) {
	var reply chatReply
	encoded, err := json.Marshal(payload)
	if err != nil {
		return reply, nil, fmt.Errorf("llm request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return reply, nil, services.Wrap(services.ErrConfiguration, serviceName, "request", "invalid base url", err)
	}
	headers := map[string]string{
		"Authorization": "Bearer " + c.cfg.APIKey,
		"Content-Type":  "application/json",
		"HTTP-Referer":  c.cfg.Referer,
		"X-Title":       c.cfg.Title,
	}
	for name, value := range headers {
		if value != "" {
			req.Header.Set(name, value)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return reply, nil, services.TransportError(ctx, serviceName, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return reply, nil, services.TransportError(ctx, serviceName, err)
	}
	if err := services.CheckResponse(serviceName, resp, raw); err != nil {
		return reply, raw, err
	}
	if err := json.Unmarshal(raw, &reply); err != nil {
		return reply, raw, services.Wrap(services.ErrGeneratorTransient, serviceName, "decode response", services.Snippet(string(raw)), err)
	}
	if reply.Error != nil {
		return reply, raw, services.Wrap(services.ErrGeneratorFatal, serviceName, "api error", reply.Error.Message, nil)
	}
	return reply, raw, nil
}

// first returns the first non-blank text across choices, along with the
// first finish reason and refusal seen.
func (r chatReply) first() (text, finish, refusal string) {
	for _, choice := range r.Choices {
		finish = cmp.Or(finish, strings.TrimSpace(choice.FinishReason))
		refusal = cmp.Or(refusal, trimmedFirst(choice.Message.Refusal, choice.Delta.Refusal))
		if text = trimmedFirst(choice.Message.Content, choice.Delta.Content, choice.Text); text != "" {
			return text, finish, refusal
		}
	}
	return "", finish, refusal
}

func trimmedFirst(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// StripCodeFence removes a Markdown code fence wrapping the whole reply,
// including an optional language tag on the opening line.
func StripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := trimmed[3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(strings.TrimSpace(body[:nl]), " \t") {
		body = body[nl+1:]
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}
