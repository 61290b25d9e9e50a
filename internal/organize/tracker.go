package organize

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"camroll/internal/logging"
	"camroll/internal/services"
)

// JobState is the lifecycle state of an asynchronous move job. Pending is the
// only non-terminal state.
type JobState int

const (
	JobPending JobState = iota
	JobComplete
	JobFailed
	JobCancelled
	JobTimedOut
	JobUnresolved
)

func (s JobState) String() string {
	switch s {
	case JobPending:
		return "pending"
	case JobComplete:
		return "complete"
	case JobFailed:
		return "failed"
	case JobCancelled:
		return "cancelled"
	case JobTimedOut:
		return "timed_out"
	case JobUnresolved:
		return "unresolved"
	default:
		return "unknown"
	}
}

// StateForTag maps a move_batch/check tag to a job state. Unknown tags keep
// the job pending.
func StateForTag(tag string) JobState {
	switch tag {
	case TagComplete:
		return JobComplete
	case TagFailed:
		return JobFailed
	default:
		return JobPending
	}
}

// DefaultPollInterval separates polling rounds when none is configured.
const DefaultPollInterval = 5 * time.Second

// TrackerOptions bound the polling loop. Zero MaxRounds or Deadline means
// unbounded; zero MaxPollErrors retries transport errors forever.
type TrackerOptions struct {
	PollInterval    time.Duration
	MaxRounds       int
	Deadline        time.Duration
	MaxPollErrors   int
	PollConcurrency int
}

// Outcome lists the job ids that reached each terminal state, in the order
// they were resolved.
type Outcome struct {
	Completed  []string
	Failed     []string
	Cancelled  []string
	TimedOut   []string
	Unresolved []string
	Rounds     int
}

// Tracker polls registered move jobs until each leaves the pending state.
type Tracker struct {
	checker JobChecker
	opts    TrackerOptions
	report  *Report
	events  EventSink
	logger  *slog.Logger

	sleep func(context.Context, time.Duration) error
	now   func() time.Time

	mu      sync.Mutex
	pending []string
	known   map[string]struct{}
}

// NewTracker builds a tracker. report and events may be nil.
func NewTracker(checker JobChecker, opts TrackerOptions, report *Report, events EventSink, logger *slog.Logger) *Tracker {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.PollConcurrency <= 0 {
		opts.PollConcurrency = 1
	}
	if report == nil {
		report = NewReport("", "")
	}
	if events == nil {
		events = nopSink{}
	}
	return &Tracker{
		checker: checker,
		opts:    opts,
		report:  report,
		events:  events,
		logger:  logging.NewComponentLogger(logger, "tracker"),
		sleep:   sleepContext,
		now:     time.Now,
		known:   make(map[string]struct{}),
	}
}

// Register adds a job id to the active set. Registering an id twice is a no-op.
func (t *Tracker) Register(id string) {
	if id == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.known[id]; ok {
		return
	}
	t.known[id] = struct{}{}
	t.pending = append(t.pending, id)
}

// Pending returns the registered ids that have not been awaited yet.
func (t *Tracker) Pending() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.pending...)
}

// Await polls every registered job until none is pending.
func (t *Tracker) Await(ctx context.Context) (Outcome, error) {
	t.mu.Lock()
	ids := t.pending
	t.pending = nil
	t.mu.Unlock()
	return t.AwaitJobs(ctx, ids...)
}

// AwaitJobs polls the given jobs in rounds. Every still-pending job is polled
// once per round and the round is fully applied before the next one starts.
// An empty set returns immediately without polling. On context cancellation
// the remaining jobs are reported as cancelled and the context error is
// returned.
func (t *Tracker) AwaitJobs(ctx context.Context, ids ...string) (Outcome, error) {
	var outcome Outcome
	active := dedupe(ids)
	if len(active) == 0 {
		return outcome, nil
	}
	if t.checker == nil {
		return outcome, services.Wrap(services.ErrConfiguration, "tracker", "await", "job checker is required", nil)
	}

	logger := logging.WithContext(ctx, t.logger)
	started := t.now()
	pollErrors := make(map[string]int, len(active))

	for {
		if err := ctx.Err(); err != nil {
			t.abandon(ctx, &outcome, active, JobCancelled, err)
			return outcome, err
		}

		outcome.Rounds++
		statuses, errs := t.pollRound(ctx, active)
		next := make([]string, 0, len(active))
		for i, id := range active {
			if err := errs[i]; err != nil {
				if ctx.Err() != nil {
					next = append(next, id)
					continue
				}
				pollErrors[id]++
				if t.opts.MaxPollErrors > 0 && pollErrors[id] >= t.opts.MaxPollErrors {
					t.abandon(ctx, &outcome, []string{id}, JobUnresolved, err)
					continue
				}
				logging.WarnWithContext(logger, "move job poll failed; retrying next round", "job_poll_failed",
					logging.String(logging.FieldJobID, id),
					logging.Int("attempt", pollErrors[id]),
					logging.Error(err),
					logging.String(logging.FieldImpact, "job stays pending"),
				)
				next = append(next, id)
				continue
			}
			pollErrors[id] = 0

			status := statuses[i]
			state := StateForTag(status.Tag)
			t.events.Emit(ctx, Event{Kind: EventJobPolled, JobID: id, Tag: status.Tag, State: state})
			switch state {
			case JobComplete:
				outcome.Completed = append(outcome.Completed, id)
				t.report.RecordFilesMoved(status.Moved)
				t.report.RecordFilesFailed(status.Failed)
				t.events.Emit(ctx, Event{Kind: EventJobFinished, JobID: id, State: state, Count: status.Moved, Failed: status.Failed})
			case JobFailed:
				outcome.Failed = append(outcome.Failed, id)
				t.report.RecordJobFailed(id)
				t.events.Emit(ctx, Event{Kind: EventJobFinished, JobID: id, State: state})
			default:
				if status.Tag != TagInProgress {
					logger.Debug("unrecognized job status tag; treating as pending",
						logging.String(logging.FieldJobID, id),
						logging.String("tag", status.Tag),
					)
				}
				next = append(next, id)
			}
		}
		active = next
		if len(active) == 0 {
			return outcome, nil
		}

		if err := ctx.Err(); err != nil {
			t.abandon(ctx, &outcome, active, JobCancelled, err)
			return outcome, err
		}
		if t.opts.MaxRounds > 0 && outcome.Rounds >= t.opts.MaxRounds {
			t.abandon(ctx, &outcome, active, JobTimedOut, nil)
			return outcome, nil
		}
		wait := t.opts.PollInterval
		if t.opts.Deadline > 0 {
			remaining := t.opts.Deadline - t.now().Sub(started)
			if remaining <= 0 {
				t.abandon(ctx, &outcome, active, JobTimedOut, nil)
				return outcome, nil
			}
			if remaining < wait {
				wait = remaining
			}
		}

		logger.Debug("move jobs still pending",
			logging.Int("pending", len(active)),
			logging.Int("round", outcome.Rounds),
			logging.Duration("wait", wait),
		)
		if err := t.sleep(ctx, wait); err != nil {
			t.abandon(ctx, &outcome, active, JobCancelled, err)
			return outcome, err
		}
	}
}

func (t *Tracker) pollRound(ctx context.Context, ids []string) ([]JobStatus, []error) {
	statuses := make([]JobStatus, len(ids))
	errs := make([]error, len(ids))
	var group errgroup.Group
	group.SetLimit(t.opts.PollConcurrency)
	for i, id := range ids {
		group.Go(func() error {
			statuses[i], errs[i] = t.checker.CheckMoveBatch(services.WithJobID(ctx, id), id)
			return nil
		})
	}
	_ = group.Wait()
	return statuses, errs
}

func (t *Tracker) abandon(ctx context.Context, outcome *Outcome, ids []string, state JobState, cause error) {
	for _, id := range ids {
		switch state {
		case JobCancelled:
			outcome.Cancelled = append(outcome.Cancelled, id)
			t.report.RecordJobCancelled(id)
		case JobTimedOut:
			outcome.TimedOut = append(outcome.TimedOut, id)
			t.report.RecordJobTimedOut(id)
		case JobUnresolved:
			outcome.Unresolved = append(outcome.Unresolved, id)
			t.report.RecordError("job "+id, cause)
		}
		t.events.Emit(ctx, Event{Kind: EventJobFinished, JobID: id, State: state, Err: cause})
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
