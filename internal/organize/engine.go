package organize

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"camroll/internal/logging"
	"camroll/internal/services"
)

// Input describes one organize pass over a single listing.
type Input struct {
	// Label names the run in reports and notifications, e.g. "dates".
	Label           string
	Entries         []Entry
	ExistingFolders []string
	Classifier      Classifier
	Destination     DestinationFunc
	Fallback        GroupKey
	// Partial marks one pass of a larger run; its RunFinished event is not
	// forwarded to notifiers.
	Partial bool
}

// Options tune engine behavior.
type Options struct {
	DryRun            bool
	SubmitConcurrency int
	Tracker           TrackerOptions

	// RetryHint is logged when a group's files were not moved.
	RetryHint string
}

// DefaultRetryHint applies when nothing outside the remote folder records
// which files a run has handled.
const DefaultRetryHint = "rerun to retry the remaining files"

// Engine runs plan, folder creation, submission and polling for one listing.
type Engine struct {
	remote Remote
	opts   Options
	events EventSink
	logger *slog.Logger

	// overridable in tests
	sleep func(context.Context, time.Duration) error
}

// NewEngine constructs an engine bound to remote.
func NewEngine(remote Remote, opts Options, events EventSink, logger *slog.Logger) *Engine {
	if opts.SubmitConcurrency <= 0 {
		opts.SubmitConcurrency = 1
	}
	if opts.RetryHint == "" {
		opts.RetryHint = DefaultRetryHint
	}
	if events == nil {
		events = nopSink{}
	}
	return &Engine{
		remote: remote,
		opts:   opts,
		events: events,
		logger: logging.NewComponentLogger(logger, "engine"),
		sleep:  sleepContext,
	}
}

// Run executes one organize pass and returns its finalized summary. Group
// submission failures are recorded in the summary and do not fail the run.
// Planning errors, folder creation errors and cancellation abort the run and
// are returned together with the partial summary.
func (e *Engine) Run(ctx context.Context, in Input) (Summary, error) {
	runID, ok := services.RunIDFromContext(ctx)
	if !ok {
		runID = services.NewRunID()
		ctx = services.WithRunID(ctx, runID)
	}
	logger := logging.WithContext(ctx, e.logger)
	report := NewReport(runID, in.Label)
	report.SetDryRun(e.opts.DryRun)

	finish := func(err error) (Summary, error) {
		if err != nil {
			report.RecordError("run", err)
		}
		summary := report.Finalize()
		e.events.Emit(ctx, Event{Kind: EventRunFinished, RunID: runID, Label: in.Label, Partial: in.Partial, Err: err, Summary: &summary})
		return summary, err
	}

	planner := NewPlanner(in.Classifier, in.Destination, in.Fallback, e.logger)
	plan, err := planner.Plan(ctx, in.Entries, in.ExistingFolders)
	if err != nil {
		return finish(err)
	}
	report.RecordSkipped(plan.Skipped)
	report.RecordPlan(plan.Groups.Len(), plan.Groups.Total())
	if plan.Empty() {
		logger.Info("nothing to organize", logging.Int("entries", len(in.Entries)), logging.Int("skipped", plan.Skipped))
		return finish(nil)
	}

	if e.opts.DryRun {
		for _, key := range plan.Groups.Keys() {
			logger.Info("dry run: would move files",
				logging.String(logging.FieldGroup, string(key)),
				logging.String(logging.FieldPath, plan.Destinations[key]),
				logging.Int("files", len(plan.Moves[key])),
			)
		}
		for _, key := range plan.FoldersToCreate {
			logger.Info("dry run: would create folder", logging.String(logging.FieldPath, plan.Destinations[key]))
		}
		return finish(nil)
	}

	if err := e.createFolders(ctx, plan, report); err != nil {
		return finish(err)
	}

	tracker := NewTracker(e.remote, e.opts.Tracker, report, e.events, e.logger)
	tracker.sleep = e.sleep
	submitter := NewSubmitter(e.remote, tracker, report, e.events, e.logger)
	e.submitGroups(ctx, plan, submitter, report)

	// Await also settles jobs queued before a cancellation.
	if _, err := tracker.Await(ctx); err != nil {
		return finish(err)
	}
	return finish(ctx.Err())
}

// createFolders creates missing destination folders in plan order. An existing
// folder counts as success.
func (e *Engine) createFolders(ctx context.Context, plan *Plan, report *Report) error {
	for _, key := range plan.FoldersToCreate {
		path := plan.Destinations[key]
		err := e.remote.CreateFolder(services.WithGroup(ctx, string(key)), path)
		switch {
		case err == nil:
			report.RecordFolderCreated()
			e.events.Emit(ctx, Event{Kind: EventFolderCreated, Group: key, Path: path})
		case errors.Is(err, ErrFolderExists):
			logging.WithContext(ctx, e.logger).Debug("folder already exists", logging.String(logging.FieldPath, path))
		default:
			return err
		}
	}
	return nil
}

func (e *Engine) submitGroups(ctx context.Context, plan *Plan, submitter *Submitter, report *Report) {
	var group errgroup.Group
	group.SetLimit(e.opts.SubmitConcurrency)
	for _, key := range plan.Groups.Keys() {
		if ctx.Err() != nil {
			break
		}
		group.Go(func() error {
			_, err := submitter.Submit(ctx, key, plan.Groups.Entries(key), plan.Destinations[key])
			if err != nil && ctx.Err() == nil {
				report.RecordError("group "+string(key), err)
				logging.WarnWithContext(logging.WithContext(services.WithGroup(ctx, string(key)), e.logger),
					"move batch submission failed", "batch_submit_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "files in this group were not moved"),
					logging.String(logging.FieldErrorHint, e.opts.RetryHint),
				)
			}
			return nil
		})
	}
	_ = group.Wait()
}
