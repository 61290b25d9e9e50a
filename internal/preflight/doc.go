// Package preflight provides readiness checks for the Dropbox account and
// the local paths camroll depends on.
//
// The CLI "camroll status" command renders RunAll's results, and the
// organize commands run CheckDropbox before touching the remote tree so a
// bad token fails fast instead of after a full listing.
package preflight
