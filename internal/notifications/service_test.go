package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"demoforge/internal/config"
	"demoforge/internal/notifications"
	"demoforge/internal/report"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
	calls    int
}

func ntfyServer(t *testing.T, status int) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		got.calls++
		got.title = r.Header.Get("Title")
		got.tags = r.Header.Get("Tags")
		got.priority = r.Header.Get("Priority")
		body, _ := io.ReadAll(r.Body)
		got.body = string(body)
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, got
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	svc := notifications.NewService(config.Notifications{})
	if err := svc.NotifyRunFailed(context.Background(), "launchpad", "script", "GeneratorFatal", "bad key"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNotifyOutcomeFormatsEachState(t *testing.T) {
	tests := []struct {
		name           string
		report         report.Report
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:          "completed",
			report:        report.Report{Product: "launchpad", State: "completed", DurationMS: 61400, FinalPath: "/runs/launchpad/composite/final_video.mp4"},
			expectTitle:   "demoforge - Video Ready",
			expectMessage: "Demo video ready for launchpad (1m1s)\nFile: /runs/launchpad/composite/final_video.mp4",
			expectTags:    "demoforge,video,completed",
		},
		{
			name:          "suspended",
			report:        report.Report{Product: "launchpad", State: "suspended", Awaiting: "/runs/launchpad/recording/screen_recording.media", BriefPath: "/runs/launchpad/recording/recording_brief.md"},
			expectTitle:   "demoforge - Recording Needed",
			expectMessage: "Screen recording needed for launchpad\nSave it to: /runs/launchpad/recording/screen_recording.media\nBrief: /runs/launchpad/recording/recording_brief.md",
			expectTags:    "demoforge,recording,waiting",
		},
		{
			name:           "aborted",
			report:         report.Report{State: "aborted", FailedStage: "voiceover", ErrorKind: "GeneratorTransient", Error: "rate limited"},
			expectTitle:    "demoforge - Run Failed",
			expectMessage:  "Run failed for unnamed product at voiceover (GeneratorTransient): rate limited",
			expectTags:     "demoforge,error,alert",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server, got := ntfyServer(t, http.StatusOK)
			svc := notifications.NewService(config.Notifications{NtfyTopic: server.URL, RequestTimeoutSeconds: 5})

			if err := notifications.NotifyOutcome(context.Background(), svc, tc.report); err != nil {
				t.Fatalf("NotifyOutcome: %v", err)
			}
			if got.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, got.title)
			}
			if got.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, got.body)
			}
			if got.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, got.tags)
			}
			if got.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, got.priority)
			}
		})
	}
}

func TestNotifyOutcomeIgnoresRunningState(t *testing.T) {
	server, got := ntfyServer(t, http.StatusOK)
	svc := notifications.NewService(config.Notifications{NtfyTopic: server.URL})
	if err := notifications.NotifyOutcome(context.Background(), svc, report.Report{State: "running"}); err != nil {
		t.Fatalf("NotifyOutcome: %v", err)
	}
	if got.calls != 0 {
		t.Fatalf("expected no request, got %d", got.calls)
	}
}

func TestNtfyErrorStatusIsReported(t *testing.T) {
	server, _ := ntfyServer(t, http.StatusForbidden)
	svc := notifications.NewService(config.Notifications{NtfyTopic: server.URL})
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for 403 response")
	}
}
