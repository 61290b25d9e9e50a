// Package mirror copies a Dropbox folder tree to local disk.
//
// Files whose size and Dropbox content hash already match the local copy are
// skipped. Each download is written beside its destination and renamed into
// place only after the content hash verifies, then stamped with the server
// modification time. Authentication and cancellation stop the pass; other
// per-file failures are counted and returned together.
package mirror
