package organize

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// fakeRemote scripts Dropbox responses for engine tests.
type fakeRemote struct {
	mu sync.Mutex

	createErrs map[string]error
	created    []string

	batchResults []BatchResult
	batchErrs    map[string]error
	batches      [][]MoveRequest

	// statuses holds per-job poll responses; the last one repeats.
	statuses  map[string][]JobStatus
	pollErrs  map[string][]error
	pollCalls []string
	pollCount map[string]int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		createErrs: map[string]error{},
		batchErrs:  map[string]error{},
		statuses:   map[string][]JobStatus{},
		pollErrs:   map[string][]error{},
		pollCount:  map[string]int{},
	}
}

func (f *fakeRemote) CreateFolder(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, path)
	return f.createErrs[path]
}

func (f *fakeRemote) MoveBatch(_ context.Context, requests []MoveRequest) (BatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, append([]MoveRequest(nil), requests...))
	for _, req := range requests {
		if err, ok := f.batchErrs[req.FromPath]; ok {
			return BatchResult{}, err
		}
	}
	if len(f.batchResults) == 0 {
		return BatchResult{Moved: len(requests)}, nil
	}
	result := f.batchResults[0]
	f.batchResults = f.batchResults[1:]
	return result, nil
}

func (f *fakeRemote) CheckMoveBatch(_ context.Context, jobID string) (JobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.pollCount[jobID]
	f.pollCount[jobID] = n + 1
	f.pollCalls = append(f.pollCalls, jobID)
	if errs := f.pollErrs[jobID]; n < len(errs) && errs[n] != nil {
		return JobStatus{}, errs[n]
	}
	script, ok := f.statuses[jobID]
	if !ok || len(script) == 0 {
		return JobStatus{}, fmt.Errorf("unknown job %s", jobID)
	}
	if n >= len(script) {
		n = len(script) - 1
	}
	return script[n], nil
}

func (f *fakeRemote) polls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.pollCalls...)
}

func (f *fakeRemote) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

// countingSleep records requested waits without sleeping.
type countingSleep struct {
	mu    sync.Mutex
	waits []time.Duration
	hook  func(n int) error
}

func (s *countingSleep) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	n := len(s.waits)
	hook := s.hook
	s.mu.Unlock()
	if hook != nil {
		if err := hook(n); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (s *countingSleep) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.waits)
}

func files(names ...string) []Entry {
	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		entries = append(entries, Entry{SourcePath: "/Camera Uploads/" + name, DisplayName: name, Kind: KindFile})
	}
	return entries
}

func monthClassifier() Classifier {
	return ClassifierFunc(func(_ context.Context, entry Entry) (GroupKey, error) {
		if len(entry.DisplayName) < 7 || entry.DisplayName[4] != '-' {
			return "", ErrSkip
		}
		return GroupKey(entry.DisplayName[:7]), nil
	})
}

func underRoot(key GroupKey) string {
	return JoinPath("/Camera Uploads", string(key))
}
