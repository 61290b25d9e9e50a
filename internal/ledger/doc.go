// Package ledger remembers which remote files have already been inspected by
// the device organizer so repeated runs skip the expensive download and EXIF
// read.
//
// Two backends are available: a newline-delimited file guarded by an advisory
// lock, and a SQLite table. Both persist each mark before returning.
package ledger
