package dropbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf16"
	"unicode/utf8"

	"camroll/internal/organize"
	"camroll/internal/services"
)

// Metadata is a file or folder entry returned by list_folder.
type Metadata struct {
	Tag            string    `json:".tag"`
	Name           string    `json:"name"`
	ID             string    `json:"id,omitempty"`
	PathLower      string    `json:"path_lower,omitempty"`
	PathDisplay    string    `json:"path_display,omitempty"`
	Size           int64     `json:"size,omitempty"`
	ServerModified time.Time `json:"server_modified,omitzero"`
	ContentHash    string    `json:"content_hash,omitempty"`
}

// IsFile reports whether the entry is a file.
func (m Metadata) IsFile() bool { return m.Tag == string(organize.KindFile) }

// IsFolder reports whether the entry is a folder.
func (m Metadata) IsFolder() bool { return m.Tag == string(organize.KindFolder) }

// Entry converts the metadata into an engine entry. The display path keeps
// the user's casing for destination names.
func (m Metadata) Entry() organize.Entry {
	path := m.PathDisplay
	if path == "" {
		path = m.PathLower
	}
	return organize.Entry{
		SourcePath:  path,
		DisplayName: m.Name,
		Kind:        organize.EntryKind(m.Tag),
		Size:        m.Size,
	}
}

type listFolderArg struct {
	Path      string `json:"path"`
	Recursive bool   `json:"recursive"`
}

type listFolderContinueArg struct {
	Cursor string `json:"cursor"`
}

type listFolderResult struct {
	Entries []Metadata `json:"entries"`
	Cursor  string     `json:"cursor"`
	HasMore bool       `json:"has_more"`
}

// ListFolder returns every entry under path, following the cursor until the
// listing is exhausted. Deleted entries are not included.
func (c *Client) ListFolder(ctx context.Context, path string, recursive bool) ([]Metadata, error) {
	var page listFolderResult
	if err := c.rpc(ctx, "files/list_folder", listFolderArg{Path: path, Recursive: recursive}, &page, true); err != nil {
		return nil, err
	}
	entries := page.Entries
	for page.HasMore {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cursor := page.Cursor
		page = listFolderResult{}
		if err := c.rpc(ctx, "files/list_folder/continue", listFolderContinueArg{Cursor: cursor}, &page, true); err != nil {
			return nil, err
		}
		entries = append(entries, page.Entries...)
	}
	return entries, nil
}

type createFolderArg struct {
	Path       string `json:"path"`
	Autorename bool   `json:"autorename"`
}

// CreateFolder creates path. An existing folder is reported as
// organize.ErrFolderExists. A file or other conflict at path is an error.
func (c *Client) CreateFolder(ctx context.Context, path string) error {
	err := c.rpc(ctx, "files/create_folder_v2", createFolderArg{Path: path}, nil, false)
	if err == nil {
		return nil
	}
	if apiErr, ok := IsAPIError(err); ok && apiErr.StatusCode == http.StatusConflict && apiErr.HasSummaryPrefix("path/conflict/folder") {
		return fmt.Errorf("%w: %s", organize.ErrFolderExists, path)
	}
	return err
}

type relocationPath struct {
	FromPath string `json:"from_path"`
	ToPath   string `json:"to_path"`
}

type moveBatchArg struct {
	Entries    []relocationPath `json:"entries"`
	Autorename bool             `json:"autorename"`
}

type batchEntryResult struct {
	Tag string `json:".tag"`
}

type batchResult struct {
	Tag        string             `json:".tag"`
	AsyncJobID string             `json:"async_job_id"`
	Entries    []batchEntryResult `json:"entries"`
}

func (r batchResult) counts() (moved, failed int) {
	for _, entry := range r.Entries {
		if entry.Tag == "success" {
			moved++
		} else {
			failed++
		}
	}
	return moved, failed
}

// MoveBatch submits one move_batch_v2 request. It is attempted once.
func (c *Client) MoveBatch(ctx context.Context, requests []organize.MoveRequest) (organize.BatchResult, error) {
	arg := moveBatchArg{Entries: make([]relocationPath, 0, len(requests))}
	for _, req := range requests {
		arg.Entries = append(arg.Entries, relocationPath{FromPath: req.FromPath, ToPath: req.ToPath})
	}
	var result batchResult
	if err := c.rpc(ctx, "files/move_batch_v2", arg, &result, false); err != nil {
		return organize.BatchResult{}, err
	}
	switch result.Tag {
	case organize.TagAsyncJobID:
		if result.AsyncJobID == "" {
			return organize.BatchResult{}, services.Wrap(services.ErrTransport, "dropbox", "files/move_batch_v2", "async response without job id", nil)
		}
		return organize.BatchResult{JobID: result.AsyncJobID}, nil
	case organize.TagComplete:
		moved, failed := result.counts()
		return organize.BatchResult{Moved: moved, Failed: failed}, nil
	default:
		return organize.BatchResult{}, services.Wrap(services.ErrTransport, "dropbox", "files/move_batch_v2", fmt.Sprintf("unexpected result tag %q", result.Tag), nil)
	}
}

type checkArg struct {
	AsyncJobID string `json:"async_job_id"`
}

type checkResult struct {
	batchResult
	Failed json.RawMessage `json:"failed,omitempty"`
}

// CheckMoveBatch reports the status of an asynchronous move job. Unknown tags
// are passed through so the tracker can keep the job pending.
func (c *Client) CheckMoveBatch(ctx context.Context, jobID string) (organize.JobStatus, error) {
	var result checkResult
	if err := c.rpc(ctx, "files/move_batch/check_v2", checkArg{AsyncJobID: jobID}, &result, true); err != nil {
		return organize.JobStatus{}, err
	}
	status := organize.JobStatus{Tag: result.Tag}
	switch result.Tag {
	case organize.TagComplete:
		status.Moved, status.Failed = result.counts()
	case organize.TagFailed:
		status.Reason = failureReason(result.Failed)
	}
	return status, nil
}

func failureReason(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var tagged struct {
		Tag string `json:".tag"`
	}
	if json.Unmarshal(raw, &tagged) == nil && tagged.Tag != "" {
		return tagged.Tag
	}
	return strings.TrimSpace(string(raw))
}

type downloadArg struct {
	Path string `json:"path"`
}

// Download streams the file at path into w and returns the number of bytes
// written. Failures before the body starts streaming are retried.
func (c *Client) Download(ctx context.Context, path string, w io.Writer) (int64, error) {
	arg, err := headerJSON(downloadArg{Path: path})
	if err != nil {
		return 0, fmt.Errorf("dropbox files/download: encode arg: %w", err)
	}
	resp, err := c.do(ctx, "files/download", true, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ContentURL+"/files/download", nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Dropbox-API-Arg", arg)
		return req, nil
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, services.Wrap(services.ErrTransport, "dropbox", "files/download", path, err)
	}
	return n, nil
}

// Account identifies the token owner.
type Account struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Name      struct {
		DisplayName string `json:"display_name"`
	} `json:"name"`
}

// CurrentAccount returns the account the access token belongs to.
func (c *Client) CurrentAccount(ctx context.Context) (Account, error) {
	var account Account
	err := c.rpc(ctx, "users/get_current_account", nil, &account, true)
	return account, err
}

// headerJSON encodes v for the Dropbox-API-Arg header, which must be ASCII.
func headerJSON(v any) (string, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, r := range string(encoded) {
		switch {
		case r < utf8.RuneSelf && r != 0x7f:
			b.WriteRune(r)
		case r > 0xffff:
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(&b, `\u%04x\u%04x`, hi, lo)
		default:
			fmt.Fprintf(&b, `\u%04x`, r)
		}
	}
	return b.String(), nil
}
