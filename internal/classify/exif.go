package classify

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
)

// ErrNoModel is returned when an image carries no readable camera model.
var ErrNoModel = errors.New("no camera model in exif data")

// ReadModel decodes EXIF data from r and returns the camera Model tag.
func ReadModel(r io.Reader) (string, error) {
	x, err := exif.Decode(r)
	if err != nil {
		return "", fmt.Errorf("decode exif: %w", err)
	}
	tag, err := x.Get(exif.Model)
	if err != nil {
		return "", ErrNoModel
	}
	model, err := tag.StringVal()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoModel, err)
	}
	model = strings.TrimSpace(strings.Trim(model, "\x00"))
	if model == "" {
		return "", ErrNoModel
	}
	return model, nil
}
