package ledger

import (
	"context"
	"fmt"

	"camroll/internal/config"
)

// Ledger records processed remote paths. Paths are compared exactly.
type Ledger interface {
	Contains(ctx context.Context, path string) (bool, error)
	Mark(ctx context.Context, path string) error
	Len(ctx context.Context) (int, error)
	Close() error
}

// Open returns the ledger backend selected by ledger.backend.
func Open(cfg *config.Config) (Ledger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("ledger: config is required")
	}
	switch cfg.Ledger.Backend {
	case config.LedgerBackendSQLite:
		return OpenSQLite(cfg.Ledger.Path)
	case config.LedgerBackendFile, "":
		return OpenFile(cfg.Ledger.Path)
	default:
		return nil, fmt.Errorf("ledger: unsupported backend %q", cfg.Ledger.Backend)
	}
}
