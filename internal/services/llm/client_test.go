package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"demoforge/internal/services"
)

func completionServer(t *testing.T, status int, payload any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "demo-model" || len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected request %+v", req)
		}
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestCompleteReturnsMessageContent(t *testing.T) {
	server := completionServer(t, http.StatusOK, map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"content": "## Scene 1: Intro\nHello"}}},
	})
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	got, err := client.Complete(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if got != "## Scene 1: Intro\nHello" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestCompleteToleratesDeltaSchema(t *testing.T) {
	server := completionServer(t, http.StatusOK, map[string]any{
		"choices": []any{map[string]any{"delta": map[string]any{"content": "streamed"}}},
	})
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	got, err := client.Complete(context.Background(), "system", "user")
	if err != nil || got != "streamed" {
		t.Fatalf("Complete = %q, %v", got, err)
	}
}

func TestCompleteClassifiesFailures(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		payload any
		want    services.ErrorKind
	}{
		{"rate limited", http.StatusTooManyRequests, map[string]string{"error": "slow down"}, services.KindGeneratorTransient},
		{"server error", http.StatusBadGateway, map[string]string{"error": "upstream"}, services.KindGeneratorTransient},
		{"unauthorized", http.StatusUnauthorized, map[string]string{"error": "bad key"}, services.KindGeneratorFatal},
		{"empty reply", http.StatusOK, map[string]any{"choices": []any{map[string]any{"message": map[string]any{"content": ""}, "finish_reason": "length"}}}, services.KindGeneratorTransient},
		{"refusal", http.StatusOK, map[string]any{"choices": []any{map[string]any{"message": map[string]any{"refusal": "no"}}}}, services.KindGeneratorFatal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := completionServer(t, tc.status, tc.payload)
			client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
			_, err := client.Complete(context.Background(), "system", "user")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := services.Classify(err); got != tc.want {
				t.Fatalf("Classify = %s, want %s (err=%v)", got, tc.want, err)
			}
		})
	}
}

func TestCompleteRequiresAPIKey(t *testing.T) {
	client := NewClient(Config{Model: "demo-model"})
	_, err := client.Complete(context.Background(), "system", "user")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := map[string]string{
		"```markdown\n## Scene 1: A\nText\n```": "## Scene 1: A\nText",
		"```\nplain\n```":                        "plain",
		"no fence":                               "no fence",
	}
	for in, want := range cases {
		if got := StripCodeFence(in); got != want {
			t.Fatalf("StripCodeFence(%q) = %q, want %q", in, got, want)
		}
	}
}
