package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"demoforge/internal/config"
	"demoforge/internal/report"
	"demoforge/internal/workflow"
)

const userAgent = "demoforge/0.1"

// Service is the alert surface used by the CLI.
type Service interface {
	NotifyRunCompleted(ctx context.Context, product, finalPath string, duration time.Duration) error
	NotifyRecordingNeeded(ctx context.Context, product, awaiting, briefPath string) error
	NotifyRunFailed(ctx context.Context, product, stage, kind, message string) error
	TestNotification(ctx context.Context) error
}

// NewService returns an ntfy-backed service, or a no-op when no topic is set.
func NewService(cfg config.Notifications) Service {
	topic := strings.TrimSpace(cfg.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{endpoint: topic, client: &http.Client{Timeout: timeout}}
}

// NotifyOutcome sends the alert matching a finished run's state.
func NotifyOutcome(ctx context.Context, svc Service, r report.Report) error {
	if svc == nil {
		return nil
	}
	duration := time.Duration(r.DurationMS) * time.Millisecond
	switch workflow.RunState(r.State) {
	case workflow.RunCompleted:
		return svc.NotifyRunCompleted(ctx, r.Product, r.FinalPath, duration)
	case workflow.RunSuspended:
		return svc.NotifyRecordingNeeded(ctx, r.Product, r.Awaiting, r.BriefPath)
	case workflow.RunAborted:
		return svc.NotifyRunFailed(ctx, r.Product, r.FailedStage, r.ErrorKind, r.Error)
	default:
		return nil
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, product, finalPath string, duration time.Duration) error {
	message := fmt.Sprintf("Demo video ready for %s (%s)", subject(product), duration.Round(time.Second))
	if finalPath = strings.TrimSpace(finalPath); finalPath != "" {
		message += "\nFile: " + finalPath
	}
	return n.send(ctx, payload{
		title:   "demoforge - Video Ready",
		message: message,
		tags:    []string{"demoforge", "video", "completed"},
	})
}

func (n *ntfyService) NotifyRecordingNeeded(ctx context.Context, product, awaiting, briefPath string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Screen recording needed for %s", subject(product))
	if awaiting = strings.TrimSpace(awaiting); awaiting != "" {
		fmt.Fprintf(&b, "\nSave it to: %s", awaiting)
	}
	if briefPath = strings.TrimSpace(briefPath); briefPath != "" {
		fmt.Fprintf(&b, "\nBrief: %s", briefPath)
	}
	return n.send(ctx, payload{
		title:   "demoforge - Recording Needed",
		message: b.String(),
		tags:    []string{"demoforge", "recording", "waiting"},
	})
}

func (n *ntfyService) NotifyRunFailed(ctx context.Context, product, stage, kind, message string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Run failed for %s", subject(product))
	if stage = strings.TrimSpace(stage); stage != "" {
		fmt.Fprintf(&b, " at %s", stage)
	}
	if kind = strings.TrimSpace(kind); kind != "" {
		fmt.Fprintf(&b, " (%s)", kind)
	}
	if message = strings.TrimSpace(message); message != "" {
		b.WriteString(": ")
		b.WriteString(message)
	}
	return n.send(ctx, payload{
		title:    "demoforge - Run Failed",
		message:  b.String(),
		tags:     []string{"demoforge", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "demoforge - Test",
		message:  "Notification test",
		tags:     []string{"demoforge", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func subject(product string) string {
	if product = strings.TrimSpace(product); product != "" {
		return product
	}
	return "unnamed product"
}

type noopService struct{}

func (noopService) NotifyRunCompleted(context.Context, string, string, time.Duration) error { return nil }
func (noopService) NotifyRecordingNeeded(context.Context, string, string, string) error     { return nil }
func (noopService) NotifyRunFailed(context.Context, string, string, string, string) error   { return nil }
func (noopService) TestNotification(context.Context) error                                  { return nil }
