package testsupport

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"camroll/internal/dropbox"
	"camroll/internal/organize"
)

// NewDropboxServer serves fake over the Dropbox v2 HTTP wire format so the
// real client can be exercised end to end. Requests must carry token.
func NewDropboxServer(t testing.TB, fake *FakeDropbox, token string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	handle := func(pattern string, fn func(w http.ResponseWriter, r *http.Request)) {
		mux.HandleFunc("POST "+pattern, func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer "+token {
				writeDropboxError(w, http.StatusUnauthorized, "invalid_access_token/")
				return
			}
			fn(w, r)
		})
	}

	handle("/files/list_folder", func(w http.ResponseWriter, r *http.Request) {
		var arg struct {
			Path      string `json:"path"`
			Recursive bool   `json:"recursive"`
		}
		if !decodeArg(w, r, &arg) {
			return
		}
		entries, err := fake.ListFolder(r.Context(), arg.Path, arg.Recursive)
		if err != nil {
			writeFakeError(w, err)
			return
		}
		if entries == nil {
			entries = []dropbox.Metadata{}
		}
		writeJSON(w, map[string]any{"entries": entries, "cursor": "end", "has_more": false})
	})

	handle("/files/create_folder_v2", func(w http.ResponseWriter, r *http.Request) {
		var arg struct {
			Path string `json:"path"`
		}
		if !decodeArg(w, r, &arg) {
			return
		}
		if err := fake.CreateFolder(r.Context(), arg.Path); err != nil {
			if errors.Is(err, organize.ErrFolderExists) {
				writeDropboxError(w, http.StatusConflict, "path/conflict/folder/..")
				return
			}
			writeFakeError(w, err)
			return
		}
		writeJSON(w, map[string]any{"metadata": map[string]string{"path_display": arg.Path}})
	})

	handle("/files/move_batch_v2", func(w http.ResponseWriter, r *http.Request) {
		var arg struct {
			Entries []struct {
				FromPath string `json:"from_path"`
				ToPath   string `json:"to_path"`
			} `json:"entries"`
		}
		if !decodeArg(w, r, &arg) {
			return
		}
		requests := make([]organize.MoveRequest, 0, len(arg.Entries))
		for _, e := range arg.Entries {
			requests = append(requests, organize.MoveRequest{FromPath: e.FromPath, ToPath: e.ToPath})
		}
		result, err := fake.MoveBatch(r.Context(), requests)
		if err != nil {
			writeFakeError(w, err)
			return
		}
		if result.JobID != "" {
			writeJSON(w, map[string]any{".tag": organize.TagAsyncJobID, "async_job_id": result.JobID})
			return
		}
		writeJSON(w, map[string]any{".tag": organize.TagComplete, "entries": entryTags(result.Moved, result.Failed)})
	})

	handle("/files/move_batch/check_v2", func(w http.ResponseWriter, r *http.Request) {
		var arg struct {
			AsyncJobID string `json:"async_job_id"`
		}
		if !decodeArg(w, r, &arg) {
			return
		}
		status, err := fake.CheckMoveBatch(r.Context(), arg.AsyncJobID)
		if err != nil {
			writeFakeError(w, err)
			return
		}
		body := map[string]any{".tag": status.Tag}
		switch status.Tag {
		case organize.TagComplete:
			body["entries"] = entryTags(status.Moved, status.Failed)
		case organize.TagFailed:
			body["failed"] = map[string]string{".tag": status.Reason}
		}
		writeJSON(w, body)
	})

	handle("/files/download", func(w http.ResponseWriter, r *http.Request) {
		var arg struct {
			Path string `json:"path"`
		}
		if err := json.Unmarshal([]byte(r.Header.Get("Dropbox-API-Arg")), &arg); err != nil {
			writeDropboxError(w, http.StatusBadRequest, "bad_arg/")
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		if _, err := fake.Download(r.Context(), arg.Path, w); err != nil {
			writeFakeError(w, err)
		}
	})

	handle("/users/get_current_account", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"account_id": "dbid:test",
			"email":      "camroll@example.com",
			"name":       map[string]string{"display_name": "Camroll Test"},
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func decodeArg(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeDropboxError(w, http.StatusBadRequest, "bad_arg/")
		return false
	}
	return true
}

func entryTags(moved, failed int) []map[string]string {
	out := make([]map[string]string, 0, moved+failed)
	for range moved {
		out = append(out, map[string]string{".tag": "success"})
	}
	for range failed {
		out = append(out, map[string]string{".tag": "failure"})
	}
	return out
}

func writeFakeError(w http.ResponseWriter, err error) {
	var apiErr *dropbox.APIError
	if errors.As(err, &apiErr) {
		writeDropboxError(w, apiErr.StatusCode, apiErr.Summary)
		return
	}
	writeDropboxError(w, http.StatusInternalServerError, err.Error())
}

func writeDropboxError(w http.ResponseWriter, status int, summary string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error_summary": summary})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
