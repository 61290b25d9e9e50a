package ledger_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"camroll/internal/config"
	"camroll/internal/ledger"
)

func backends(t *testing.T) map[string]func(path string) (ledger.Ledger, error) {
	t.Helper()
	return map[string]func(string) (ledger.Ledger, error){
		"file": func(path string) (ledger.Ledger, error) {
			return ledger.OpenFile(path)
		},
		"sqlite": func(path string) (ledger.Ledger, error) {
			return ledger.OpenSQLite(path + ".db")
		},
	}
}

func TestLedgerMarkPersistsAcrossReopen(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "state", "processed")

			l, err := open(path)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			if err := l.Mark(ctx, "/Camera Uploads/2021-05/a.jpg"); err != nil {
				t.Fatalf("Mark: %v", err)
			}
			if err := l.Mark(ctx, "/Camera Uploads/2021-05/a.jpg"); err != nil {
				t.Fatalf("second Mark: %v", err)
			}
			if err := l.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			reopened, err := open(path)
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			defer reopened.Close()

			ok, err := reopened.Contains(ctx, "/Camera Uploads/2021-05/a.jpg")
			if err != nil || !ok {
				t.Fatalf("expected marked path after reopen, got %v %v", ok, err)
			}
			ok, _ = reopened.Contains(ctx, "/Camera Uploads/2021-05/A.jpg")
			if ok {
				t.Fatal("paths must be compared exactly")
			}
			if n, err := reopened.Len(ctx); err != nil || n != 1 {
				t.Fatalf("Len = %d, %v; want 1", n, err)
			}
		})
	}
}

func TestFileLedgerFormatIsOnePathPerLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed")
	if err := os.WriteFile(path, []byte("/existing.jpg\n\n"), 0o644); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}
	l, err := ledger.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if ok, _ := l.Contains(context.Background(), "/existing.jpg"); !ok {
		t.Fatal("expected seeded path")
	}
	if err := l.Mark(context.Background(), "/new.jpg"); err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if err := l.Mark(context.Background(), "bad\npath"); err == nil {
		t.Fatal("expected newline path to be rejected")
	}
	_ = l.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read ledger: %v", err)
	}
	if got := strings.Split(strings.TrimSpace(string(data)), "\n"); got[len(got)-1] != "/new.jpg" {
		t.Fatalf("unexpected ledger contents: %q", data)
	}
}

func TestFileLedgerIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed")
	first, err := ledger.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer first.Close()

	if _, err := ledger.OpenFile(path); !errors.Is(err, ledger.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Ledger.Backend = config.LedgerBackendSQLite
	cfg.Ledger.Path = filepath.Join(t.TempDir(), "processed.db")

	l, err := ledger.Open(&cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()
	if _, ok := l.(*ledger.SQLiteLedger); !ok {
		t.Fatalf("expected SQLiteLedger, got %T", l)
	}

	cfg.Ledger.Backend = "redis"
	if _, err := ledger.Open(&cfg); err == nil {
		t.Fatal("expected unsupported backend error")
	}
}
