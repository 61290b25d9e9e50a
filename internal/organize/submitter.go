package organize

import (
	"context"
	"log/slog"

	"camroll/internal/logging"
	"camroll/internal/services"
)

// SubmitKind distinguishes synchronous from queued batch results.
type SubmitKind int

const (
	SubmitImmediate SubmitKind = iota
	SubmitQueued
)

func (k SubmitKind) String() string {
	if k == SubmitQueued {
		return "queued"
	}
	return "immediate"
}

// SubmitResult is the outcome of one batch submission. Moved and Failed are
// set for immediate results, JobID for queued ones.
type SubmitResult struct {
	Kind   SubmitKind
	Moved  int
	Failed int
	JobID  string
}

// Submitter issues one move batch per group.
type Submitter struct {
	mover   Mover
	tracker *Tracker
	report  *Report
	events  EventSink
	logger  *slog.Logger
}

// NewSubmitter wires a submitter to the tracker that will own queued jobs.
func NewSubmitter(mover Mover, tracker *Tracker, report *Report, events EventSink, logger *slog.Logger) *Submitter {
	if report == nil {
		report = NewReport("", "")
	}
	if events == nil {
		events = nopSink{}
	}
	return &Submitter{
		mover:   mover,
		tracker: tracker,
		report:  report,
		events:  events,
		logger:  logging.NewComponentLogger(logger, "submitter"),
	}
}

// Submit moves entries into destination with a single remote call. A queued
// job is registered with the tracker before Submit returns. Submission errors
// are returned unchanged and never retried.
func (s *Submitter) Submit(ctx context.Context, key GroupKey, entries []Entry, destination string) (SubmitResult, error) {
	if len(entries) == 0 {
		return SubmitResult{Kind: SubmitImmediate}, nil
	}
	ctx = services.WithGroup(ctx, string(key))
	logger := logging.WithContext(ctx, s.logger)

	requests := moveRequests(entries, destination)
	result, err := s.mover.MoveBatch(ctx, requests)
	if err != nil {
		return SubmitResult{}, err
	}

	if result.Async() {
		if s.tracker == nil {
			return SubmitResult{}, services.Wrap(services.ErrConfiguration, "submitter", "submit", "queued result without a tracker", nil)
		}
		s.tracker.Register(result.JobID)
		s.report.RecordJobSubmitted(result.JobID)
		logger.Debug("move batch queued", logging.String(logging.FieldJobID, result.JobID), logging.Int("files", len(requests)))
		s.events.Emit(ctx, Event{Kind: EventBatchSubmitted, Group: key, JobID: result.JobID, Path: destination, Count: len(requests)})
		return SubmitResult{Kind: SubmitQueued, JobID: result.JobID}, nil
	}

	s.report.RecordFilesMoved(result.Moved)
	s.report.RecordFilesFailed(result.Failed)
	s.events.Emit(ctx, Event{Kind: EventBatchSubmitted, Group: key, Path: destination, Count: result.Moved, Failed: result.Failed})
	return SubmitResult{Kind: SubmitImmediate, Moved: result.Moved, Failed: result.Failed}, nil
}
