package ledger

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process holds the ledger file.
var ErrLocked = errors.New("ledger is locked by another process")

// FileLedger is an append-only list of paths, one per line.
type FileLedger struct {
	mu    sync.Mutex
	file  *os.File
	lock  *flock.Flock
	paths map[string]struct{}
}

// OpenFile loads or creates the ledger at path and takes an exclusive lock on
// "<path>.lock" for the lifetime of the ledger.
func OpenFile(path string) (*FileLedger, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("ledger: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ledger: ensure directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("ledger: acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("ledger: open %s: %w", path, err)
	}

	paths := make(map[string]struct{})
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimRight(scanner.Text(), "\r"); line != "" {
			paths[line] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		_ = file.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("ledger: read %s: %w", path, err)
	}

	return &FileLedger{file: file, lock: lock, paths: paths}, nil
}

func (l *FileLedger) Contains(_ context.Context, path string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.paths[path]
	return ok, nil
}

// Mark appends path and syncs the file before returning.
func (l *FileLedger) Mark(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path == "" || strings.ContainsAny(path, "\r\n") {
		return fmt.Errorf("ledger: invalid path %q", path)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return fmt.Errorf("ledger: closed")
	}
	if _, ok := l.paths[path]; ok {
		return nil
	}
	if _, err := l.file.WriteString(path + "\n"); err != nil {
		return fmt.Errorf("ledger: append: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("ledger: sync: %w", err)
	}
	l.paths[path] = struct{}{}
	return nil
}

func (l *FileLedger) Len(context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.paths), nil
}

// Close releases the file and its lock.
func (l *FileLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	if unlockErr := l.lock.Unlock(); err == nil {
		err = unlockErr
	}
	return err
}
