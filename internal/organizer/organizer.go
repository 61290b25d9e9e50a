package organizer

import (
	"context"
	"fmt"

	"camroll/internal/config"
	"camroll/internal/dropbox"
	"camroll/internal/organize"
)

// Lister lists a remote folder.
type Lister interface {
	ListFolder(ctx context.Context, path string, recursive bool) ([]dropbox.Metadata, error)
}

// Remote is everything an organizer needs from Dropbox.
type Remote interface {
	organize.Remote
	Lister
}

// listing splits a folder listing into file entries and child folder names.
type listing struct {
	files   []organize.Entry
	folders []string
	paths   []string
}

func list(ctx context.Context, lister Lister, path string) (listing, error) {
	entries, err := lister.ListFolder(ctx, path, false)
	if err != nil {
		return listing{}, fmt.Errorf("list %s: %w", path, err)
	}
	var out listing
	for _, meta := range entries {
		switch {
		case meta.IsFile():
			out.files = append(out.files, meta.Entry())
		case meta.IsFolder():
			out.folders = append(out.folders, meta.Name)
			out.paths = append(out.paths, meta.Entry().SourcePath)
		}
	}
	return out, nil
}

// EngineOptions maps configuration onto engine options.
func EngineOptions(cfg *config.Config) organize.Options {
	return organize.Options{
		DryRun:            cfg.Organize.DryRun,
		SubmitConcurrency: cfg.Organize.SubmitConcurrency,
		Tracker: organize.TrackerOptions{
			PollInterval:    cfg.PollInterval(),
			MaxRounds:       cfg.Tracker.MaxRounds,
			Deadline:        cfg.PollDeadline(),
			MaxPollErrors:   cfg.Tracker.MaxPollErrors,
			PollConcurrency: cfg.Tracker.PollConcurrency,
		},
	}
}
