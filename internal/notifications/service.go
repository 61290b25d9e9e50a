package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"camroll/internal/config"
	"camroll/internal/organize"
)

const userAgent = "camroll/0.1.0"

// Service defines the notification surface used by the CLI and event sinks.
type Service interface {
	NotifyRunFinished(ctx context.Context, label string, summary organize.Summary) error
	NotifyError(ctx context.Context, err error, label string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		runFinished: cfg.Notifications.RunFinished,
		errors:      cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	runFinished bool
	errors      bool
}

func (n *ntfyService) NotifyRunFinished(ctx context.Context, label string, summary organize.Summary) error {
	if !n.runFinished {
		return nil
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = "organize"
	}

	var message strings.Builder
	if summary.DryRun {
		fmt.Fprintf(&message, "Dry run: %d files in %d groups would move", summary.FilesPlanned, summary.Groups)
	} else {
		fmt.Fprintf(&message, "Moved %d files, created %d folders", summary.FilesMoved, summary.FoldersCreated)
	}
	if summary.JobsSubmitted > 0 {
		fmt.Fprintf(&message, "\nJobs: %d submitted", summary.JobsSubmitted)
	}
	if summary.FilesFailed > 0 {
		fmt.Fprintf(&message, "\nFailed files: %d", summary.FilesFailed)
	}
	if len(summary.JobsFailed) > 0 {
		fmt.Fprintf(&message, "\nFailed jobs: %s", strings.Join(summary.JobsFailed, ", "))
	}
	if unresolved := len(summary.JobsTimedOut) + len(summary.JobsCancelled); unresolved > 0 {
		fmt.Fprintf(&message, "\nUnresolved jobs: %d", unresolved)
	}
	if len(summary.Errors) > 0 {
		fmt.Fprintf(&message, "\nErrors: %d (first: %s)", len(summary.Errors), summary.Errors[0].Message)
	}
	if d := summary.Duration().Round(time.Second); d > 0 {
		fmt.Fprintf(&message, "\nDuration: %s", d)
	}

	data := payload{
		title:   fmt.Sprintf("camroll - %s complete", label),
		message: message.String(),
		tags:    []string{"camroll", label, "completed"},
	}
	if !summary.Clean() {
		data.title = fmt.Sprintf("camroll - %s complete (with errors)", label)
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, label string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if label = strings.TrimSpace(label); label != "" {
		builder.WriteString(" during ")
		builder.WriteString(label)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "camroll - Error",
		message:  builder.String(),
		tags:     []string{"camroll", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "camroll - Test",
		message:  "Notification system test",
		tags:     []string{"camroll", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
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

type noopService struct{}

func (noopService) NotifyRunFinished(context.Context, string, organize.Summary) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error                 { return nil }
func (noopService) TestNotification(context.Context) error                           { return nil }
