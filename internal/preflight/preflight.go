package preflight

import (
	"context"
	"strings"

	"camroll/internal/config"
	"camroll/internal/dropbox"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// AccountChecker resolves the account behind the configured token.
type AccountChecker interface {
	CurrentAccount(ctx context.Context) (dropbox.Account, error)
}

// RunAll executes every applicable check for the given config.
func RunAll(ctx context.Context, cfg *config.Config, account AccountChecker) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDropbox(ctx, account))
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	results = append(results, CheckDirectoryAccess("Temp directory", cfg.Paths.TempDir))
	results = append(results, CheckCreatable("Mirror root", cfg.Mirror.LocalRoot))
	results = append(results, CheckRunLock(cfg.RunLockPath()))
	results = append(results, CheckNotifications(cfg))
	return results
}

// Failed returns the names of failing checks.
func Failed(results []Result) []string {
	var names []string
	for _, r := range results {
		if !r.Passed {
			names = append(names, r.Name)
		}
	}
	return names
}

// CheckNotifications reports whether an ntfy topic is configured. A missing
// topic is not a failure; notifications are optional.
func CheckNotifications(cfg *config.Config) Result {
	const name = "Notifications"
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled (no ntfy topic)"}
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return Result{Name: name, Detail: "ntfy topic must be a full http(s) URL"}
	}
	return Result{Name: name, Passed: true, Detail: topic}
}
