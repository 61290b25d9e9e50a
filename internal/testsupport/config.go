package testsupport

import (
	"path/filepath"
	"testing"

	"camroll/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Dropbox.AccessToken = "test-token"
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.TempDir = filepath.Join(base, "tmp")
	cfgVal.Ledger.Path = filepath.Join(base, "state", "processed")
	cfgVal.Mirror.LocalRoot = filepath.Join(base, "mirror")
	cfgVal.Tracker.PollInterval = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithAPIURL points both Dropbox hosts at a test server.
func WithAPIURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Dropbox.APIURL = url
		b.cfg.Dropbox.ContentURL = url
	}
}

// WithSQLiteLedger switches the ledger backend to SQLite inside the temp dir.
func WithSQLiteLedger() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ledger.Backend = config.LedgerBackendSQLite
		b.cfg.Ledger.Path = filepath.Join(b.baseDir, "state", "processed.db")
	}
}

// WithNtfyTopic enables notifications against the given topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// BaseDir returns the temp directory backing the config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
