package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"camroll/internal/dropbox"
	"camroll/internal/fileutil"
	"camroll/internal/logging"
	"camroll/internal/services"
)

// Source lists and downloads remote files.
type Source interface {
	ListFolder(ctx context.Context, path string, recursive bool) ([]dropbox.Metadata, error)
	Download(ctx context.Context, path string, w io.Writer) (int64, error)
}

// Result counts what a mirror pass did.
type Result struct {
	Folders    int      `json:"folders"`
	Downloaded int      `json:"downloaded"`
	Skipped    int      `json:"skipped"`
	Failed     int      `json:"failed"`
	Bytes      int64    `json:"bytes"`
	Errors     []string `json:"errors,omitempty"`
}

// Mirror downloads remote folders into a local directory.
type Mirror struct {
	source Source
	dryRun bool
	logger *slog.Logger
}

// New constructs a Mirror. With dryRun set nothing is written locally.
func New(source Source, dryRun bool, logger *slog.Logger) *Mirror {
	return &Mirror{source: source, dryRun: dryRun, logger: logging.NewComponentLogger(logger, "mirror")}
}

// Run recreates remotePath under localRoot. Files whose local copy already
// matches the remote size and content hash are skipped. Individual download
// failures are counted and the pass continues; the joined failures are
// returned alongside the result.
func (m *Mirror) Run(ctx context.Context, remotePath, localRoot string) (Result, error) {
	logger := logging.WithContext(ctx, m.logger)
	var result Result
	if strings.TrimSpace(localRoot) == "" {
		return result, services.Wrap(services.ErrValidation, "mirror", "run", "local root is required", nil)
	}

	entries, err := m.source.ListFolder(ctx, remotePath, true)
	if err != nil {
		return result, fmt.Errorf("list %s: %w", remotePath, err)
	}
	logger.Info("mirroring folder",
		logging.String(logging.FieldPath, remotePath),
		logging.String("local_root", localRoot),
		logging.Int("entries", len(entries)),
	)

	var failures []error
	for _, meta := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		rel, ok := relativePath(remotePath, meta)
		if !ok {
			logger.Debug("skipping entry outside mirror root", logging.String(logging.FieldPath, meta.PathDisplay))
			continue
		}
		local := filepath.Join(localRoot, filepath.FromSlash(rel))

		switch {
		case meta.IsFolder():
			if !m.dryRun {
				if err := os.MkdirAll(local, 0o755); err != nil {
					failures = append(failures, fmt.Errorf("create %s: %w", local, err))
					continue
				}
			}
			result.Folders++
		case meta.IsFile():
			if upToDate(local, meta) {
				result.Skipped++
				continue
			}
			if m.dryRun {
				logger.Info("would download", logging.String(logging.FieldPath, meta.PathDisplay))
				result.Downloaded++
				result.Bytes += meta.Size
				continue
			}
			n, err := m.download(ctx, meta, local)
			if err != nil {
				result.Failed++
				if services.IsFatal(err) {
					return result, err
				}
				failures = append(failures, err)
				logging.WarnWithContext(logger, "download failed", "mirror_download_failed",
					logging.String(logging.FieldPath, meta.PathDisplay),
					logging.Error(err),
					logging.String(logging.FieldImpact, "file not mirrored"),
				)
				continue
			}
			result.Downloaded++
			result.Bytes += n
			logger.Debug("downloaded", logging.String(logging.FieldPath, meta.PathDisplay), logging.Int64("bytes", n))
		}
	}

	for _, failure := range failures {
		result.Errors = append(result.Errors, failure.Error())
	}
	logger.Info("mirror finished",
		logging.Int("folders", result.Folders),
		logging.Int("downloaded", result.Downloaded),
		logging.Int("skipped", result.Skipped),
		logging.Int("failed", result.Failed),
		logging.Int64("bytes", result.Bytes),
	)
	return result, errors.Join(failures...)
}

func (m *Mirror) download(ctx context.Context, meta dropbox.Metadata, local string) (int64, error) {
	opts := fileutil.WriteOptions{Size: meta.Size, ContentHash: meta.ContentHash}
	n, err := fileutil.WriteFileVerified(local, opts, func(w io.Writer) error {
		_, err := m.source.Download(ctx, meta.PathDisplay, w)
		return err
	})
	if err != nil {
		return n, fmt.Errorf("download %s: %w", meta.PathDisplay, err)
	}
	if !meta.ServerModified.IsZero() {
		_ = os.Chtimes(local, meta.ServerModified, meta.ServerModified)
	}
	return n, nil
}

// relativePath returns meta's path below root using the display casing.
// Entries that resolve outside root are rejected.
func relativePath(root string, meta dropbox.Metadata) (string, bool) {
	display := meta.PathDisplay
	if display == "" {
		display = meta.PathLower
	}
	lowerRoot := strings.ToLower(strings.TrimRight(root, "/"))
	lower := strings.ToLower(display)
	if lowerRoot != "" && !strings.HasPrefix(lower, lowerRoot+"/") {
		return "", false
	}
	if len(lower) != len(display) {
		// Case folding changed the byte length; fall back to lower casing.
		display = lower
	}
	rel := path.Clean(strings.TrimPrefix(display[len(lowerRoot):], "/"))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

func upToDate(local string, meta dropbox.Metadata) bool {
	info, err := os.Stat(local)
	if err != nil || !info.Mode().IsRegular() || info.Size() != meta.Size {
		return false
	}
	if meta.ContentHash == "" {
		return true
	}
	sum, err := fileutil.ContentHash(local)
	return err == nil && sum == meta.ContentHash
}
