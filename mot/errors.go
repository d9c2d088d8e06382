package mot

import "github.com/pkg/errors"

var (
	// ErrDegenerateFrame is returned when a frame has non-positive width or height
	ErrDegenerateFrame = errors.New("frame size must be positive")
	// ErrInvalidColor is returned when a mean color channel is NaN or outside [0, 1]
	ErrInvalidColor = errors.New("color channel must be in [0, 1]")
)
