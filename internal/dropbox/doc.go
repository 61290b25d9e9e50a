// Package dropbox is a small client for the Dropbox HTTP API v2.
//
// It covers the endpoints camroll needs: folder listing with cursor
// continuation, folder creation, batch moves with asynchronous job checks,
// file downloads, and the current-account lookup used by preflight checks.
// Client satisfies organize.Remote so the engine can drive it directly.
//
// Read-only calls retry rate limits, server errors and timeouts with
// exponential backoff that honors Retry-After. Mutating calls are attempted
// once; callers decide whether to resubmit.
package dropbox
