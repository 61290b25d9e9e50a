package organizer

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"camroll/internal/config"
	"camroll/internal/logging"
	"camroll/internal/organize"
	"camroll/internal/services"
)

// DeviceClassifier is the classifier contract the device organizer relies on.
type DeviceClassifier interface {
	organize.Classifier
	OtherGroup() organize.GroupKey
}

// DeviceRetryHint replaces the engine's retry hint for device runs. Inspected
// files are recorded as processed before their move is submitted, so a rerun
// alone does not pick up a failed batch.
const DeviceRetryHint = "files stay recorded as processed; remove them from the processed ledger, then rerun"

// DeviceEngineOptions is EngineOptions with the device retry hint.
func DeviceEngineOptions(cfg *config.Config) organize.Options {
	opts := EngineOptions(cfg)
	opts.RetryHint = DeviceRetryHint
	return opts
}

// DeviceOrganizer moves photos that were not taken on a configured phone into
// an "Other" subfolder of each month folder.
type DeviceOrganizer struct {
	remote     Remote
	engine     *organize.Engine
	classifier DeviceClassifier
	root       string
	skipNames  []string
	events     organize.EventSink
	logger     *slog.Logger
}

// NewDeviceOrganizer constructs the device organizer. Folders at root whose
// names appear in skipNames (such as a top-level video folder) are ignored.
// events receives the aggregate RunFinished event and may be nil.
func NewDeviceOrganizer(remote Remote, engine *organize.Engine, classifier DeviceClassifier, root string, skipNames []string, events organize.EventSink, logger *slog.Logger) *DeviceOrganizer {
	if events == nil {
		events = organize.MultiSink()
	}
	return &DeviceOrganizer{
		remote:     remote,
		engine:     engine,
		classifier: classifier,
		root:       root,
		skipNames:  skipNames,
		events:     events,
		logger:     logging.NewComponentLogger(logger, "device-organizer"),
	}
}

// Folders returns the month folders under root in sorted order.
func (o *DeviceOrganizer) Folders(ctx context.Context) ([]string, error) {
	contents, err := list(ctx, o.remote, o.root)
	if err != nil {
		return nil, err
	}
	folders := make([]string, 0, len(contents.paths))
	for i, p := range contents.paths {
		if o.skipped(contents.folders[i]) {
			continue
		}
		folders = append(folders, p)
	}
	sort.Strings(folders)
	return folders, nil
}

// Run processes every month folder, or only the last one when latestOnly is
// set. A folder that fails to list or plan is recorded and the remaining
// folders still run; cancellation stops the walk.
func (o *DeviceOrganizer) Run(ctx context.Context, latestOnly bool) (organize.Summary, error) {
	logger := logging.WithContext(ctx, o.logger)
	folders, err := o.Folders(ctx)
	if err != nil {
		return organize.Summary{}, err
	}
	if latestOnly && len(folders) > 1 {
		folders = folders[len(folders)-1:]
	}
	logger.Info("organizing uploads by device",
		logging.String(logging.FieldPath, o.root),
		logging.Int("folders", len(folders)),
		logging.Bool("latest_only", latestOnly),
	)

	runID, ok := services.RunIDFromContext(ctx)
	if !ok {
		runID = services.NewRunID()
		ctx = services.WithRunID(ctx, runID)
	}
	total := organize.Summary{RunID: runID, Label: "devices", JobsFailed: []string{}}
	finish := func(err error) (organize.Summary, error) {
		total.RunID = runID
		total.Label = "devices"
		o.events.Emit(ctx, organize.Event{Kind: organize.EventRunFinished, RunID: runID, Label: "devices", Err: err, Summary: &total})
		return total, err
	}
	for _, folder := range folders {
		summary, err := o.runFolder(ctx, folder)
		total = total.Merge(summary)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return finish(ctx.Err())
		}
		if errors.Is(err, services.ErrConfiguration) {
			return finish(err)
		}
		if len(summary.Errors) == 0 {
			total.Errors = append(total.Errors, organize.RunError{
				Scope:   "folder " + folder,
				Kind:    services.ErrorKind(err),
				Message: err.Error(),
			})
		}
		logging.WarnWithContext(logger, "device organize failed for folder", "folder_failed",
			logging.String(logging.FieldPath, folder),
			logging.Error(err),
			logging.String(logging.FieldImpact, "folder left unchanged; remaining folders continue"),
		)
	}
	return finish(nil)
}

func (o *DeviceOrganizer) runFolder(ctx context.Context, folder string) (organize.Summary, error) {
	contents, err := list(ctx, o.remote, folder)
	if err != nil {
		return organize.Summary{}, err
	}
	return o.engine.Run(ctx, organize.Input{
		Label:           "devices " + folder,
		Entries:         contents.files,
		ExistingFolders: contents.folders,
		Classifier:      o.classifier,
		Fallback:        o.classifier.OtherGroup(),
		Partial:         true,
		Destination: func(key organize.GroupKey) string {
			return organize.JoinPath(folder, string(key))
		},
	})
}

func (o *DeviceOrganizer) skipped(name string) bool {
	for _, skip := range o.skipNames {
		if skip != "" && strings.EqualFold(skip, name) {
			return true
		}
	}
	return false
}
