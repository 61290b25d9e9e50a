package organize

import (
	"context"
	"log/slog"
	"sync"

	"camroll/internal/logging"
)

// EventKind names a run event.
type EventKind string

const (
	EventFolderCreated  EventKind = "folder_created"
	EventBatchSubmitted EventKind = "batch_submitted"
	EventJobPolled      EventKind = "job_polled"
	EventJobFinished    EventKind = "job_finished"
	EventRunFinished    EventKind = "run_finished"
)

// Event is a structured notification emitted while a run progresses.
type Event struct {
	Kind    EventKind
	RunID   string
	Label   string
	Group   GroupKey
	JobID   string
	Path    string
	Count   int
	Failed  int
	State   JobState
	Tag     string
	Err     error
	Summary *Summary
	// Partial is set on RunFinished events that close one pass of a larger run.
	Partial bool
}

// EventSink consumes run events. Implementations must be safe for concurrent
// use and must not block for long.
type EventSink interface {
	Emit(ctx context.Context, event Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, event Event)

func (f EventSinkFunc) Emit(ctx context.Context, event Event) { f(ctx, event) }

type nopSink struct{}

func (nopSink) Emit(context.Context, Event) {}

// MultiSink fans events out to every non-nil sink in order.
func MultiSink(sinks ...EventSink) EventSink {
	filtered := make([]EventSink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			filtered = append(filtered, sink)
		}
	}
	switch len(filtered) {
	case 0:
		return nopSink{}
	case 1:
		return filtered[0]
	}
	return EventSinkFunc(func(ctx context.Context, event Event) {
		for _, sink := range filtered {
			sink.Emit(ctx, event)
		}
	})
}

// LogSink renders events as structured log lines.
type LogSink struct {
	logger    *slog.Logger
	retryHint string
}

// NewLogSink returns a sink writing to logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logging.NewComponentLogger(logger, "organize"), retryHint: DefaultRetryHint}
}

// WithRetryHint replaces the hint attached to failed move jobs.
func (s *LogSink) WithRetryHint(hint string) *LogSink {
	if hint != "" {
		s.retryHint = hint
	}
	return s
}

func (s *LogSink) Emit(ctx context.Context, event Event) {
	logger := logging.WithContext(ctx, s.logger)
	attrs := []logging.Attr{logging.String(logging.FieldEventType, string(event.Kind))}
	if event.Group != "" {
		attrs = append(attrs, logging.String(logging.FieldGroup, string(event.Group)))
	}
	if event.JobID != "" {
		attrs = append(attrs, logging.String(logging.FieldJobID, event.JobID))
	}
	if event.Path != "" {
		attrs = append(attrs, logging.String(logging.FieldPath, event.Path))
	}

	switch event.Kind {
	case EventFolderCreated:
		logger.Info("folder created", logging.Args(attrs...)...)
	case EventBatchSubmitted:
		attrs = append(attrs, logging.Int("files", event.Count))
		if event.JobID == "" {
			attrs = append(attrs, logging.Int("failed", event.Failed))
		}
		logger.Info("move batch submitted", logging.Args(attrs...)...)
	case EventJobPolled:
		attrs = append(attrs, logging.String("tag", event.Tag), logging.String("state", event.State.String()))
		logger.Debug("move job polled", logging.Args(attrs...)...)
	case EventJobFinished:
		attrs = append(attrs, logging.String("state", event.State.String()))
		switch event.State {
		case JobComplete:
			attrs = append(attrs, logging.Int("moved", event.Count), logging.Int("failed", event.Failed))
			logger.Info("move job complete", logging.Args(attrs...)...)
		case JobFailed:
			logging.WarnWithContext(logger, "move job failed", string(event.Kind), append(attrs,
				logging.String(logging.FieldImpact, "files in this batch were not moved"),
				logging.String(logging.FieldErrorHint, s.retryHint),
			)...)
		default:
			if event.Err != nil {
				attrs = append(attrs, logging.Error(event.Err))
			}
			logging.WarnWithContext(logger, "move job abandoned", string(event.Kind), append(attrs,
				logging.String(logging.FieldImpact, "job outcome unknown; files may still move server-side"),
			)...)
		}
	case EventRunFinished:
		if event.Summary != nil {
			sum := event.Summary
			attrs = append(attrs,
				logging.Int("folders_created", sum.FoldersCreated),
				logging.Int("files_moved", sum.FilesMoved),
				logging.Int("jobs_submitted", sum.JobsSubmitted),
				logging.Strings("jobs_failed", sum.JobsFailed),
				logging.Int("skipped", sum.Skipped),
				logging.Duration("duration", sum.Duration()),
			)
		}
		if event.Err != nil {
			attrs = append(attrs, logging.Error(event.Err))
			logging.ErrorWithContext(logger, "organize run aborted", string(event.Kind), attrs...)
			return
		}
		if event.Partial {
			logger.Info("organize pass finished", logging.Args(attrs...)...)
			return
		}
		logger.Info("organize run finished", logging.Args(attrs...)...)
	}
}

// RunNotifier delivers run summaries to an external channel.
type RunNotifier interface {
	NotifyRunFinished(ctx context.Context, label string, summary Summary) error
}

// NotifySink forwards RunFinished events to a RunNotifier. Delivery failures
// are logged and never affect the run.
type NotifySink struct {
	notifier RunNotifier
	logger   *slog.Logger
}

// NewNotifySink wraps notifier.
func NewNotifySink(notifier RunNotifier, logger *slog.Logger) *NotifySink {
	return &NotifySink{notifier: notifier, logger: logging.NewComponentLogger(logger, "notify-sink")}
}

func (s *NotifySink) Emit(ctx context.Context, event Event) {
	if s == nil || s.notifier == nil || event.Kind != EventRunFinished || event.Partial || event.Summary == nil {
		return
	}
	if err := s.notifier.NotifyRunFinished(ctx, event.Label, *event.Summary); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "run notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run summary was not delivered"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}

// Recorder keeps every emitted event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(_ context.Context, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Kinds returns the recorded event kinds, optionally filtered.
func (r *Recorder) Kinds(filter ...EventKind) []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []EventKind
	for _, event := range r.events {
		if len(filter) == 0 {
			out = append(out, event.Kind)
			continue
		}
		for _, kind := range filter {
			if event.Kind == kind {
				out = append(out, event.Kind)
				break
			}
		}
	}
	return out
}
