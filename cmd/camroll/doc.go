// Command camroll organizes a Dropbox "Camera Uploads" folder.
//
// It files uploads into month folders, moves photos that were not taken on
// a configured phone into an "Other" subfolder, mirrors the tree to local
// disk, and reports readiness of the account and local paths.
package main
