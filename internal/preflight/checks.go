package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"

	"camroll/internal/dropbox"
	"camroll/internal/services"
)

const dropboxCheckTimeout = 30 * time.Second

// CheckDropbox verifies the access token by fetching the current account.
func CheckDropbox(ctx context.Context, account AccountChecker) Result {
	const name = "Dropbox"
	if account == nil {
		return Result{Name: name, Detail: "client not configured"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, dropboxCheckTimeout)
	defer cancel()

	info, err := account.CurrentAccount(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeDropboxError(err)}
	}
	who := info.Name.DisplayName
	if info.Email != "" {
		who = fmt.Sprintf("%s <%s>", who, info.Email)
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("authenticated as %s", who)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCreatable passes when path is an accessible directory, or when it is
// missing but its nearest existing ancestor is writable.
func CheckCreatable(name, path string) Result {
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	if _, err := os.Stat(path); err == nil {
		return CheckDirectoryAccess(name, path)
	}
	ancestor := filepath.Dir(path)
	for {
		if _, err := os.Stat(ancestor); err == nil {
			break
		}
		parent := filepath.Dir(ancestor)
		if parent == ancestor {
			break
		}
		ancestor = parent
	}
	if err := unix.Access(ancestor, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, ancestor, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

// CheckRunLock reports whether another camroll run holds the lock file.
func CheckRunLock(path string) Result {
	const name = "Run lock"
	if path == "" {
		return Result{Name: name, Passed: true, Detail: "not configured"}
	}
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if !locked {
		return Result{Name: name, Detail: "another camroll run is in progress"}
	}
	_ = lock.Unlock()
	return Result{Name: name, Passed: true, Detail: "idle"}
}

// summarizeDropboxError produces a human-readable summary for auth check failures.
func summarizeDropboxError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "account check timed out (Dropbox API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "account check timed out (Dropbox API unreachable)"
	}
	var apiErr *dropbox.APIError
	if errors.As(err, &apiErr) && errors.Is(err, services.ErrConfiguration) {
		return fmt.Sprintf("auth failed (%d: %s)", apiErr.StatusCode, apiErr.Summary)
	}
	return err.Error()
}
