package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ytdlg/internal/config"
	"ytdlg/internal/dispatch"
)

const (
	userAgent      = "ytdlg/1.0"
	defaultTimeout = 10 * time.Second
	maxErrorRunes  = 300
)

// Service is the notification surface used by the runtime.
type Service interface {
	// Record satisfies dispatch.Recorder and announces the outcome.
	Record(ctx context.Context, outcome dispatch.Outcome) error
	NotifyBootstrapFailed(ctx context.Context, err error) error
	TestNotification(ctx context.Context) error
	Enabled() bool
}

// NewService builds an ntfy-backed service, or a no-op one when no topic is
// configured.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := cfg.NotificationTimeout()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		failuresOnly: cfg.Notifications.FailuresOnly,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	failuresOnly bool
}

func (n *ntfyService) Enabled() bool { return true }

func (n *ntfyService) Record(ctx context.Context, outcome dispatch.Outcome) error {
	if outcome.Succeeded() {
		if n.failuresOnly {
			return nil
		}
		message := fmt.Sprintf("Downloaded %s (format %s) in %s",
			outcome.Job.URL, outcome.Job.FormatID, outcome.Duration().Round(time.Second))
		if dest := strings.TrimSpace(outcome.Job.Destination); dest != "" {
			message += "\nFile: " + dest
		}
		return n.send(ctx, payload{
			title:   "ytdlg - Download complete",
			message: message,
			tags:    []string{"ytdlg", "download", "completed"},
		})
	}
	return n.send(ctx, payload{
		title: "ytdlg - Download failed",
		message: fmt.Sprintf("%s (format %s)\n%s",
			outcome.Job.URL, outcome.Job.FormatID, clip(errorText(outcome.Err))),
		tags:     []string{"ytdlg", "download", "failed"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyBootstrapFailed(ctx context.Context, err error) error {
	return n.send(ctx, payload{
		title:    "ytdlg - Tool unavailable",
		message:  "Could not prepare youtube-dl: " + clip(errorText(err)),
		tags:     []string{"ytdlg", "bootstrap", "error"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "ytdlg - Test",
		message:  "Notification test from ytdlg",
		tags:     []string{"ytdlg", "test"},
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

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return strings.TrimSpace(err.Error())
}

func clip(s string) string {
	runes := []rune(s)
	if len(runes) <= maxErrorRunes {
		return s
	}
	return string(runes[:maxErrorRunes]) + "…"
}

type noopService struct{}

func (noopService) Record(context.Context, dispatch.Outcome) error    { return nil }
func (noopService) NotifyBootstrapFailed(context.Context, error) error { return nil }
func (noopService) TestNotification(context.Context) error            { return nil }
func (noopService) Enabled() bool                                     { return false }
