package classify

import (
	"context"
	"fmt"
	"regexp"

	"camroll/internal/organize"
)

// DateClassifier derives the group key from the first capture group of a
// filename pattern. Camera Uploads names files "2021-05-01 12.00.00.jpg", so
// the default pattern yields "2021-05".
type DateClassifier struct {
	pattern *regexp.Regexp
}

// NewDateClassifier compiles pattern, which must contain a capture group.
func NewDateClassifier(pattern string) (*DateClassifier, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("date pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("date pattern %q has no capture group", pattern)
	}
	return &DateClassifier{pattern: re}, nil
}

// Classify returns organize.ErrSkip for names that do not match.
func (c *DateClassifier) Classify(_ context.Context, entry organize.Entry) (organize.GroupKey, error) {
	match := c.pattern.FindStringSubmatch(entry.DisplayName)
	if len(match) < 2 || match[1] == "" {
		return "", fmt.Errorf("%w: %q does not start with a date", organize.ErrSkip, entry.DisplayName)
	}
	return organize.GroupKey(match[1]), nil
}
