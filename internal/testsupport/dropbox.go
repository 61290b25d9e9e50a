package testsupport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"sort"
	"strings"
	"sync"

	"camroll/internal/dropbox"
	"camroll/internal/fileutil"
	"camroll/internal/organize"
)

type fakeNode struct {
	display string
	folder  bool
	data    []byte
}

type fakeJob struct {
	requests []organize.MoveRequest
	polls    int
	failed   bool
}

// FakeDropbox is an in-memory Dropbox namespace. Paths are case-insensitive
// like the real service.
type FakeDropbox struct {
	mu    sync.Mutex
	nodes map[string]*fakeNode
	jobs  map[string]*fakeJob
	next  int

	// AsyncBatches makes MoveBatch return job ids instead of moving directly.
	AsyncBatches bool
	// PendingPolls is how many in_progress answers a job gives before it
	// completes.
	PendingPolls int
	// FailJobs marks every queued job as failed instead of completing it.
	FailJobs bool

	Calls []string
}

// NewFakeDropbox returns an empty namespace.
func NewFakeDropbox() *FakeDropbox {
	return &FakeDropbox{nodes: map[string]*fakeNode{}, jobs: map[string]*fakeJob{}}
}

func key(p string) string { return strings.ToLower(p) }

// AddFolder creates p and its parents.
func (f *FakeDropbox) AddFolder(p string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addFolderLocked(p)
}

func (f *FakeDropbox) addFolderLocked(p string) {
	for p != "/" && p != "" && p != "." {
		if _, ok := f.nodes[key(p)]; !ok {
			f.nodes[key(p)] = &fakeNode{display: p, folder: true}
		}
		p = path.Dir(p)
	}
}

// AddFile stores data at p, creating parent folders.
func (f *FakeDropbox) AddFile(p string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addFolderLocked(path.Dir(p))
	f.nodes[key(p)] = &fakeNode{display: p, data: append([]byte(nil), data...)}
}

// Exists reports whether p is present.
func (f *FakeDropbox) Exists(p string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.nodes[key(p)]
	return ok
}

// Files returns every file path, sorted.
func (f *FakeDropbox) Files() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, node := range f.nodes {
		if !node.folder {
			out = append(out, node.display)
		}
	}
	sort.Strings(out)
	return out
}

// CallCount returns how many times the named method was invoked.
func (f *FakeDropbox) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, call := range f.Calls {
		if call == method {
			n++
		}
	}
	return n
}

func (f *FakeDropbox) record(method string) {
	f.Calls = append(f.Calls, method)
}

func (f *FakeDropbox) ListFolder(_ context.Context, p string, recursive bool) ([]dropbox.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListFolder")
	prefix := key(strings.TrimRight(p, "/")) + "/"
	if p != "" {
		if node, ok := f.nodes[key(p)]; !ok || !node.folder {
			return nil, &dropbox.APIError{Endpoint: "files/list_folder", StatusCode: 409, Summary: "path/not_found/.."}
		}
	}
	var out []dropbox.Metadata
	for k, node := range f.nodes {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if !recursive && strings.Contains(k[len(prefix):], "/") {
			continue
		}
		meta := dropbox.Metadata{
			Tag:         "file",
			Name:        path.Base(node.display),
			PathLower:   k,
			PathDisplay: node.display,
			Size:        int64(len(node.data)),
		}
		if node.folder {
			meta.Tag = "folder"
			meta.Size = 0
		} else {
			hasher := fileutil.NewContentHasher()
			hasher.Write(node.data)
			meta.ContentHash = hasher.Sum()
		}
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PathLower < out[j].PathLower })
	return out, nil
}

func (f *FakeDropbox) CreateFolder(_ context.Context, p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateFolder")
	if n, ok := f.nodes[key(p)]; ok {
		if !n.folder {
			return &dropbox.APIError{Endpoint: "files/create_folder_v2", StatusCode: http.StatusConflict, Summary: "path/conflict/file/.."}
		}
		return fmt.Errorf("%w: %s", organize.ErrFolderExists, p)
	}
	f.addFolderLocked(p)
	return nil
}

func (f *FakeDropbox) MoveBatch(_ context.Context, requests []organize.MoveRequest) (organize.BatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("MoveBatch")
	if f.AsyncBatches {
		f.next++
		id := fmt.Sprintf("job-%d", f.next)
		f.jobs[id] = &fakeJob{requests: append([]organize.MoveRequest(nil), requests...), failed: f.FailJobs}
		return organize.BatchResult{JobID: id}, nil
	}
	moved, failed := f.applyLocked(requests)
	return organize.BatchResult{Moved: moved, Failed: failed}, nil
}

func (f *FakeDropbox) CheckMoveBatch(_ context.Context, jobID string) (organize.JobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CheckMoveBatch")
	job, ok := f.jobs[jobID]
	if !ok {
		return organize.JobStatus{}, &dropbox.APIError{Endpoint: "files/move_batch/check_v2", StatusCode: 409, Summary: "invalid_async_job_id/"}
	}
	job.polls++
	if job.polls <= f.PendingPolls {
		return organize.JobStatus{Tag: organize.TagInProgress}, nil
	}
	if job.failed {
		return organize.JobStatus{Tag: organize.TagFailed, Reason: "too_many_write_operations"}, nil
	}
	moved, failed := f.applyLocked(job.requests)
	job.requests = nil
	return organize.JobStatus{Tag: organize.TagComplete, Moved: moved, Failed: failed}, nil
}

func (f *FakeDropbox) Download(_ context.Context, p string, w io.Writer) (int64, error) {
	f.mu.Lock()
	node, ok := f.nodes[key(p)]
	f.record("Download")
	f.mu.Unlock()
	if !ok || node.folder {
		return 0, &dropbox.APIError{Endpoint: "files/download", StatusCode: 409, Summary: "path/not_found/"}
	}
	n, err := w.Write(node.data)
	return int64(n), err
}

func (f *FakeDropbox) applyLocked(requests []organize.MoveRequest) (moved, failed int) {
	for _, req := range requests {
		node, ok := f.nodes[key(req.FromPath)]
		_, taken := f.nodes[key(req.ToPath)]
		parent, parentOK := f.nodes[key(path.Dir(req.ToPath))]
		if !ok || node.folder || taken || !parentOK || !parent.folder {
			failed++
			continue
		}
		delete(f.nodes, key(req.FromPath))
		node.display = req.ToPath
		f.nodes[key(req.ToPath)] = node
		moved++
	}
	return moved, failed
}
