package organize

import (
	"context"
	"errors"
)

// ErrSkip signals that an entry must not be moved at all.
var ErrSkip = errors.New("skip entry")

// Classifier decides the destination group of a file entry.
//
// Returning ErrSkip (possibly wrapped) drops the entry. Any other error routes
// the entry to the planner's fallback group.
type Classifier interface {
	Classify(ctx context.Context, entry Entry) (GroupKey, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, entry Entry) (GroupKey, error)

// Classify calls f(ctx, entry).
func (f ClassifierFunc) Classify(ctx context.Context, entry Entry) (GroupKey, error) {
	return f(ctx, entry)
}
