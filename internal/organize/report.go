package organize

import (
	"sync"
	"time"

	"camroll/internal/services"
)

// RunError is an unresolved error surfaced in the final summary.
type RunError struct {
	Scope   string `json:"scope"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Summary is the finalized outcome of one or more organizer runs.
type Summary struct {
	RunID          string     `json:"run_id,omitempty"`
	Label          string     `json:"label,omitempty"`
	DryRun         bool       `json:"dry_run,omitempty"`
	Groups         int        `json:"groups"`
	FilesPlanned   int        `json:"files_planned"`
	FoldersCreated int        `json:"folders_created"`
	FilesMoved     int        `json:"files_moved"`
	FilesFailed    int        `json:"files_failed"`
	Skipped        int        `json:"skipped"`
	JobsSubmitted  int        `json:"jobs_submitted"`
	JobsFailed     []string   `json:"jobs_failed"`
	JobsCancelled  []string   `json:"jobs_cancelled,omitempty"`
	JobsTimedOut   []string   `json:"jobs_timed_out,omitempty"`
	Errors         []RunError `json:"errors,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     time.Time  `json:"finished_at"`
}

// Duration returns the wall-clock time the run took.
func (s Summary) Duration() time.Duration {
	if s.StartedAt.IsZero() || s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Clean reports whether the run finished without failed, abandoned, or
// errored work.
func (s Summary) Clean() bool {
	return len(s.JobsFailed) == 0 && len(s.JobsCancelled) == 0 && len(s.JobsTimedOut) == 0 &&
		len(s.Errors) == 0 && s.FilesFailed == 0
}

// Merge combines two summaries, keeping the earliest start and latest finish.
func (s Summary) Merge(other Summary) Summary {
	out := s
	out.DryRun = s.DryRun || other.DryRun
	out.Groups += other.Groups
	out.FilesPlanned += other.FilesPlanned
	out.FoldersCreated += other.FoldersCreated
	out.FilesMoved += other.FilesMoved
	out.FilesFailed += other.FilesFailed
	out.Skipped += other.Skipped
	out.JobsSubmitted += other.JobsSubmitted
	out.JobsFailed = append(append([]string(nil), s.JobsFailed...), other.JobsFailed...)
	out.JobsCancelled = append(append([]string(nil), s.JobsCancelled...), other.JobsCancelled...)
	out.JobsTimedOut = append(append([]string(nil), s.JobsTimedOut...), other.JobsTimedOut...)
	out.Errors = append(append([]RunError(nil), s.Errors...), other.Errors...)
	if out.StartedAt.IsZero() || (!other.StartedAt.IsZero() && other.StartedAt.Before(out.StartedAt)) {
		out.StartedAt = other.StartedAt
	}
	if other.FinishedAt.After(out.FinishedAt) {
		out.FinishedAt = other.FinishedAt
	}
	return out
}

// Report accumulates run counters. It is safe for concurrent use.
type Report struct {
	mu        sync.Mutex
	summary   Summary
	failedSet map[string]struct{}
	now       func() time.Time
}

// NewReport starts a report for the given run.
func NewReport(runID, label string) *Report {
	r := &Report{now: time.Now, failedSet: make(map[string]struct{})}
	r.summary = Summary{RunID: runID, Label: label, JobsFailed: []string{}, StartedAt: r.now().UTC()}
	return r
}

func (r *Report) RecordFolderCreated() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.FoldersCreated++
}

func (r *Report) RecordFilesMoved(n int) {
	if n <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.FilesMoved += n
}

func (r *Report) RecordFilesFailed(n int) {
	if n <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.FilesFailed += n
}

func (r *Report) RecordSkipped(n int) {
	if n <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.Skipped += n
}

// RecordPlan records the size of the computed plan.
func (r *Report) RecordPlan(groups, files int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.Groups += groups
	r.summary.FilesPlanned += files
}

func (r *Report) RecordJobSubmitted(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.JobsSubmitted++
}

// RecordJobFailed adds id to the ordered failed-job set.
func (r *Report) RecordJobFailed(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.failedSet[id]; ok {
		return
	}
	r.failedSet[id] = struct{}{}
	r.summary.JobsFailed = append(r.summary.JobsFailed, id)
}

func (r *Report) RecordJobCancelled(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.JobsCancelled = append(r.summary.JobsCancelled, id)
}

func (r *Report) RecordJobTimedOut(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.JobsTimedOut = append(r.summary.JobsTimedOut, id)
}

// RecordError keeps err as an unresolved error for the summary.
func (r *Report) RecordError(scope string, err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.Errors = append(r.summary.Errors, RunError{
		Scope:   scope,
		Kind:    services.ErrorKind(err),
		Message: err.Error(),
	})
}

// SetDryRun marks the summary as produced without remote mutations.
func (r *Report) SetDryRun(dryRun bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.DryRun = dryRun
}

// Finalize stamps the finish time and returns a copy of the summary.
// Recording after Finalize is allowed; a later Finalize reflects it.
func (r *Report) Finalize() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.FinishedAt = r.now().UTC()
	out := r.summary
	out.JobsFailed = append([]string{}, r.summary.JobsFailed...)
	out.JobsCancelled = append([]string(nil), r.summary.JobsCancelled...)
	out.JobsTimedOut = append([]string(nil), r.summary.JobsTimedOut...)
	out.Errors = append([]RunError(nil), r.summary.Errors...)
	return out
}
