package session

import (
	"github.com/pkg/errors"

	"github.com/LdDl/vehicletrack/mot"
)

const badBoxFileMessage = "Provide a json file or similar"

var (
	// ErrMalformedBoxes is returned when bounding-box document has unexpected shape
	ErrMalformedBoxes = errors.New("malformed bounding boxes")
	// ErrMissingField is returned when raw bounding box lacks one of required numeric fields
	ErrMissingField = errors.New("bounding box field is missing or not a number")
	// ErrCountMismatch is returned in strict pairing mode when frames and bounding-box lists differ in length
	ErrCountMismatch = errors.New("number of frames and bounding-box lists differ")
	// ErrEmptyRegion is returned when bounding box does not overlap its frame
	ErrEmptyRegion = errors.New("bounding box does not overlap frame")
	// ErrBadFramePath is returned when frame directory can't be listed
	ErrBadFramePath = errors.New("can't list frames")
)

// UserError carries a message meant to be shown as is to whoever supplied the input
type UserError struct {
	Message string
	Err     error
}

func (e *UserError) Error() string {
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// IsInputError reports whether err has been caused by bad input rather than by the tracker itself
func IsInputError(err error) bool {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return true
	}
	for _, target := range []error{ErrMalformedBoxes, ErrMissingField, ErrCountMismatch, ErrEmptyRegion, ErrBadFramePath, mot.ErrDegenerateFrame} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
