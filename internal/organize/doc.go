// Package organize implements the batch-move engine that reorganizes a
// Dropbox camera uploads folder.
//
// A run flows through four pieces. The Planner partitions listed entries into
// destination groups with a pluggable Classifier and validates that no two
// moves share a destination. The Submitter issues one move_batch call per
// group and either records an immediate result or hands the asynchronous job
// to the Tracker. The Tracker polls every outstanding job in rounds until each
// one completes, fails, times out, or the run is cancelled. The Report
// accumulates counts for the final Summary, and every step is published as an
// Event so presentation stays outside the engine.
//
// Remote calls go through the Remote interface; internal/dropbox provides the
// production implementation and tests substitute scripted fakes.
package organize
