package organize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"camroll/internal/logging"
	"camroll/internal/services"
)

// DestinationFunc maps a group key to the remote folder its entries move into.
type DestinationFunc func(GroupKey) string

// DuplicateDestinationError reports two or more entries planned onto the same
// destination path. It always wraps services.ErrValidation.
type DuplicateDestinationError struct {
	ToPath    string
	FromPaths []string
}

func (e *DuplicateDestinationError) Error() string {
	return fmt.Sprintf("duplicate move destination %q from %s", e.ToPath, strings.Join(e.FromPaths, ", "))
}

func (e *DuplicateDestinationError) Unwrap() error { return services.ErrValidation }

// Plan is the folder-creation and move plan for one run.
type Plan struct {
	Groups          Groups
	FoldersToCreate []GroupKey
	Destinations    map[GroupKey]string
	Moves           map[GroupKey][]MoveRequest
	Skipped         int
}

// Empty reports whether the plan moves nothing.
func (p *Plan) Empty() bool {
	return p == nil || p.Groups.Len() == 0
}

// Planner partitions entries into groups and validates the resulting moves.
type Planner struct {
	Classifier  Classifier
	Destination DestinationFunc
	// Fallback receives entries whose classification failed. When empty those
	// entries are skipped instead.
	Fallback GroupKey
	logger   *slog.Logger
}

// NewPlanner constructs a planner.
func NewPlanner(classifier Classifier, destination DestinationFunc, fallback GroupKey, logger *slog.Logger) *Planner {
	return &Planner{
		Classifier:  classifier,
		Destination: destination,
		Fallback:    fallback,
		logger:      logging.NewComponentLogger(logger, "planner"),
	}
}

// Plan classifies entries and computes the folders to create and the moves to
// submit. Folders in entries are ignored; existingFolders are the names of
// folders already present at the destination level.
func (p *Planner) Plan(ctx context.Context, entries []Entry, existingFolders []string) (*Plan, error) {
	if p.Classifier == nil || p.Destination == nil {
		return nil, services.Wrap(services.ErrConfiguration, "planner", "plan", "classifier and destination are required", nil)
	}
	logger := logging.WithContext(ctx, p.logger)
	plan := &Plan{
		Destinations: make(map[GroupKey]string),
		Moves:        make(map[GroupKey][]MoveRequest),
	}

	for _, entry := range entries {
		if !entry.IsFile() {
			continue
		}
		key, err := p.Classifier.Classify(ctx, entry)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if errors.Is(err, ErrSkip) {
				plan.Skipped++
				logger.Debug("entry skipped", logging.String(logging.FieldPath, entry.SourcePath), logging.String("reason", err.Error()))
				continue
			}
			if p.Fallback == "" {
				plan.Skipped++
				logging.WarnWithContext(logger, "classification failed; entry left in place", "classify_failed",
					logging.String(logging.FieldPath, entry.SourcePath),
					logging.Error(err),
					logging.String(logging.FieldImpact, "file is not moved"),
				)
				continue
			}
			logger.Debug("classification failed; using fallback group",
				logging.String(logging.FieldPath, entry.SourcePath),
				logging.String(logging.FieldGroup, string(p.Fallback)),
				logging.Error(err),
			)
			key = p.Fallback
		}
		if key == "" {
			plan.Skipped++
			continue
		}
		plan.Groups.Add(key, entry)
	}

	fold := cases.Fold()
	normalize := func(value string) string {
		return fold.String(norm.NFC.String(value))
	}

	existing := make(map[string]struct{}, len(existingFolders))
	for _, name := range existingFolders {
		existing[normalize(name)] = struct{}{}
	}

	claimed := make(map[string][]string)
	originals := make(map[string]string)
	var duplicates []string
	var kept Groups
	for _, key := range plan.Groups.Keys() {
		destination := p.Destination(key)
		var requests []MoveRequest
		for _, entry := range plan.Groups.Entries(key) {
			request := MoveRequest{FromPath: entry.SourcePath, ToPath: JoinPath(destination, entry.DisplayName)}
			if normalize(request.FromPath) == normalize(request.ToPath) {
				plan.Skipped++
				continue
			}
			target := normalize(request.ToPath)
			if _, seen := claimed[target]; seen && len(claimed[target]) == 1 {
				duplicates = append(duplicates, target)
			}
			if _, seen := originals[target]; !seen {
				originals[target] = request.ToPath
			}
			claimed[target] = append(claimed[target], request.FromPath)
			requests = append(requests, request)
			kept.Add(key, entry)
		}
		if len(requests) == 0 {
			continue
		}
		plan.Destinations[key] = destination
		plan.Moves[key] = requests
		if _, ok := existing[normalize(string(key))]; !ok {
			plan.FoldersToCreate = append(plan.FoldersToCreate, key)
		}
	}
	if len(duplicates) > 0 {
		first := duplicates[0]
		return nil, &DuplicateDestinationError{ToPath: originals[first], FromPaths: claimed[first]}
	}
	plan.Groups = kept

	logger.Debug("plan computed",
		logging.Int("groups", plan.Groups.Len()),
		logging.Int("entries", plan.Groups.Total()),
		logging.Int("folders_to_create", len(plan.FoldersToCreate)),
		logging.Int("skipped", plan.Skipped),
	)
	return plan, nil
}
