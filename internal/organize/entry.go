package organize

import (
	"path"
	"strings"
)

// EntryKind mirrors the Dropbox metadata ".tag" discriminator.
type EntryKind string

const (
	KindFile   EntryKind = "file"
	KindFolder EntryKind = "folder"
)

// Entry is a listed remote file or folder. Entries are immutable within a run.
type Entry struct {
	SourcePath  string
	DisplayName string
	Kind        EntryKind
	Size        int64
}

// IsFile reports whether the entry refers to a file.
func (e Entry) IsFile() bool { return e.Kind == KindFile }

// IsFolder reports whether the entry refers to a folder.
func (e Entry) IsFolder() bool { return e.Kind == KindFolder }

// Extension returns the lower-cased file extension including the dot.
func (e Entry) Extension() string {
	return strings.ToLower(path.Ext(e.DisplayName))
}

// GroupKey labels a destination bucket, such as "2021-05" or "Other".
type GroupKey string

// MoveRequest relocates one entry.
type MoveRequest struct {
	FromPath string
	ToPath   string
}

// JoinPath joins a remote folder and a name with a single slash.
func JoinPath(folder, name string) string {
	folder = strings.TrimRight(folder, "/")
	return folder + "/" + strings.TrimLeft(name, "/")
}

// moveRequests builds one request per entry into destination.
func moveRequests(entries []Entry, destination string) []MoveRequest {
	requests := make([]MoveRequest, 0, len(entries))
	for _, entry := range entries {
		requests = append(requests, MoveRequest{
			FromPath: entry.SourcePath,
			ToPath:   JoinPath(destination, entry.DisplayName),
		})
	}
	return requests
}

// Groups maps group keys to entries while remembering first-seen key order so
// logs and reports are reproducible.
type Groups struct {
	order   []GroupKey
	entries map[GroupKey][]Entry
}

// Add appends entry to the group identified by key.
func (g *Groups) Add(key GroupKey, entry Entry) {
	if g.entries == nil {
		g.entries = make(map[GroupKey][]Entry)
	}
	if _, ok := g.entries[key]; !ok {
		g.order = append(g.order, key)
	}
	g.entries[key] = append(g.entries[key], entry)
}

// Keys returns group keys in first-seen order.
func (g *Groups) Keys() []GroupKey {
	return append([]GroupKey(nil), g.order...)
}

// Entries returns the entries of one group in insertion order.
func (g *Groups) Entries(key GroupKey) []Entry {
	return g.entries[key]
}

// Len returns the number of groups.
func (g *Groups) Len() int { return len(g.order) }

// Total returns the number of entries across all groups.
func (g *Groups) Total() int {
	total := 0
	for _, key := range g.order {
		total += len(g.entries[key])
	}
	return total
}
