package classify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"camroll/internal/config"
	"camroll/internal/ledger"
	"camroll/internal/logging"
	"camroll/internal/organize"
)

// Downloader fetches remote file contents.
type Downloader interface {
	Download(ctx context.Context, path string, w io.Writer) (int64, error)
}

// DeviceOptions configure the device classifier.
type DeviceOptions struct {
	PhoneModels     []string
	OtherFolder     string
	VideoFolder     string
	VideoExtensions []string
	SkipExtensions  []string
	TempDir         string

	// DryRun consults the ledger but never records new entries.
	DryRun bool
}

// DeviceOptionsFromConfig maps the [devices] section onto DeviceOptions.
func DeviceOptionsFromConfig(cfg *config.Config) DeviceOptions {
	return DeviceOptions{
		PhoneModels:     cfg.Devices.PhoneModels,
		OtherFolder:     cfg.Devices.OtherFolder,
		VideoFolder:     cfg.Devices.VideoFolder,
		VideoExtensions: cfg.Devices.VideoExtensions,
		SkipExtensions:  cfg.Devices.SkipExtensions,
		TempDir:         cfg.Paths.TempDir,
		DryRun:          cfg.Organize.DryRun,
	}
}

// DeviceClassifier keeps photos taken on a configured phone in place and
// routes everything else to the other folder. Each inspected path is recorded
// in the ledger so later runs do not download it again, except in dry-run
// mode where the ledger is only read.
type DeviceClassifier struct {
	downloader Downloader
	ledger     ledger.Ledger
	opts       DeviceOptions
	logger     *slog.Logger
}

// NewDeviceClassifier constructs a classifier. ledger may be nil.
func NewDeviceClassifier(downloader Downloader, l ledger.Ledger, opts DeviceOptions, logger *slog.Logger) *DeviceClassifier {
	return &DeviceClassifier{
		downloader: downloader,
		ledger:     l,
		opts:       opts,
		logger:     logging.NewComponentLogger(logger, "device-classifier"),
	}
}

// OtherGroup is the fallback group for unreadable metadata.
func (c *DeviceClassifier) OtherGroup() organize.GroupKey {
	return organize.GroupKey(c.opts.OtherFolder)
}

// Classify inspects one entry. Errors other than organize.ErrSkip mean the
// metadata could not be read and the caller should fall back to OtherGroup.
func (c *DeviceClassifier) Classify(ctx context.Context, entry organize.Entry) (organize.GroupKey, error) {
	if c.ledger != nil {
		seen, err := c.ledger.Contains(ctx, entry.SourcePath)
		if err != nil {
			return "", fmt.Errorf("%w: ledger lookup: %v", organize.ErrSkip, err)
		}
		if seen {
			return "", fmt.Errorf("%w: already processed", organize.ErrSkip)
		}
	}

	ext := entry.Extension()
	if slices.Contains(c.opts.SkipExtensions, ext) {
		return "", fmt.Errorf("%w: extension %s excluded", organize.ErrSkip, ext)
	}
	if slices.Contains(c.opts.VideoExtensions, ext) {
		if c.opts.VideoFolder == "" {
			return "", fmt.Errorf("%w: videos are not inspected", organize.ErrSkip)
		}
		c.mark(ctx, entry)
		return organize.GroupKey(c.opts.VideoFolder), nil
	}

	model, err := c.model(ctx, entry)
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	var fetchErr *fetchError
	if errors.As(err, &fetchErr) {
		// Leave the file alone and unmarked so the next run retries it.
		return "", fmt.Errorf("%w: %v", organize.ErrSkip, err)
	}
	c.mark(ctx, entry)
	if err != nil {
		return "", err
	}
	if c.isPhone(model) {
		return "", fmt.Errorf("%w: taken with %s", organize.ErrSkip, model)
	}
	c.logger.Debug("camera model classified",
		logging.String(logging.FieldPath, entry.SourcePath),
		logging.String("model", model),
	)
	return c.OtherGroup(), nil
}

type fetchError struct{ err error }

func (e *fetchError) Error() string { return e.err.Error() }
func (e *fetchError) Unwrap() error { return e.err }

func (c *DeviceClassifier) model(ctx context.Context, entry organize.Entry) (string, error) {
	if c.opts.TempDir != "" {
		if err := os.MkdirAll(c.opts.TempDir, 0o755); err != nil {
			return "", &fetchError{fmt.Errorf("ensure temp dir: %w", err)}
		}
	}
	tmp, err := os.CreateTemp(c.opts.TempDir, "camroll-exif-*")
	if err != nil {
		return "", &fetchError{fmt.Errorf("create temp file: %w", err)}
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	if _, err := c.downloader.Download(ctx, entry.SourcePath, tmp); err != nil {
		return "", &fetchError{fmt.Errorf("download %s: %w", entry.SourcePath, err)}
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return "", &fetchError{fmt.Errorf("rewind temp file: %w", err)}
	}
	model, err := ReadModel(tmp)
	if err != nil {
		return "", fmt.Errorf("%s: %w", entry.SourcePath, err)
	}
	return model, nil
}

func (c *DeviceClassifier) isPhone(model string) bool {
	for _, phone := range c.opts.PhoneModels {
		if strings.EqualFold(strings.TrimSpace(phone), model) {
			return true
		}
	}
	return false
}

func (c *DeviceClassifier) mark(ctx context.Context, entry organize.Entry) {
	if c.ledger == nil || c.opts.DryRun {
		return
	}
	if err := c.ledger.Mark(ctx, entry.SourcePath); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "failed to record processed file", "ledger_mark_failed",
			logging.String(logging.FieldPath, entry.SourcePath),
			logging.Error(err),
			logging.String(logging.FieldImpact, "file will be inspected again next run"),
		)
	}
}
