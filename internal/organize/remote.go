package organize

import (
	"context"
	"errors"
)

// ErrFolderExists is returned by Remote.CreateFolder when the folder is
// already present. Callers treat it as success.
var ErrFolderExists = errors.New("folder already exists")

// Status tags reported by move_batch/check.
const (
	TagInProgress = "in_progress"
	TagComplete   = "complete"
	TagFailed     = "failed"
	TagAsyncJobID = "async_job_id"
)

// BatchResult describes the immediate response to a move batch submission.
// When JobID is set the batch is processed asynchronously and the counts are
// zero.
type BatchResult struct {
	JobID  string
	Moved  int
	Failed int
}

// Async reports whether the batch was queued as a server-side job.
func (r BatchResult) Async() bool { return r.JobID != "" }

// JobStatus is one poll response for an asynchronous move job.
type JobStatus struct {
	Tag    string
	Moved  int
	Failed int
	Reason string
}

// Mover submits move batches.
type Mover interface {
	MoveBatch(ctx context.Context, requests []MoveRequest) (BatchResult, error)
}

// JobChecker reports the status of an asynchronous move job.
type JobChecker interface {
	CheckMoveBatch(ctx context.Context, jobID string) (JobStatus, error)
}

// FolderCreator creates remote folders.
type FolderCreator interface {
	CreateFolder(ctx context.Context, path string) error
}

// Remote is the subset of the remote directory API the engine mutates through.
type Remote interface {
	FolderCreator
	Mover
	JobChecker
}
