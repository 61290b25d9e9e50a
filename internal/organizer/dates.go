package organizer

import (
	"context"
	"log/slog"

	"camroll/internal/logging"
	"camroll/internal/organize"
)

// DateOrganizer files loose uploads into month folders under root.
type DateOrganizer struct {
	remote     Remote
	engine     *organize.Engine
	classifier organize.Classifier
	root       string
	logger     *slog.Logger
}

// NewDateOrganizer constructs the month organizer for root.
func NewDateOrganizer(remote Remote, engine *organize.Engine, classifier organize.Classifier, root string, logger *slog.Logger) *DateOrganizer {
	return &DateOrganizer{
		remote:     remote,
		engine:     engine,
		classifier: classifier,
		root:       root,
		logger:     logging.NewComponentLogger(logger, "date-organizer"),
	}
}

// Run lists root once and moves its files into month folders.
func (o *DateOrganizer) Run(ctx context.Context) (organize.Summary, error) {
	logger := logging.WithContext(ctx, o.logger)
	contents, err := list(ctx, o.remote, o.root)
	if err != nil {
		return organize.Summary{}, err
	}
	logger.Info("organizing uploads by month",
		logging.String(logging.FieldPath, o.root),
		logging.Int("files", len(contents.files)),
		logging.Int("folders", len(contents.folders)),
	)
	return o.engine.Run(ctx, organize.Input{
		Label:           "dates",
		Entries:         contents.files,
		ExistingFolders: contents.folders,
		Classifier:      o.classifier,
		Destination: func(key organize.GroupKey) string {
			return organize.JoinPath(o.root, string(key))
		},
	})
}
