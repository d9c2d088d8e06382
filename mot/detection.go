package mot

import (
	"math"

	"github.com/pkg/errors"
)

// Color is mean color of a region. Every channel is normalized to [0, 1].
type Color struct {
	R float64
	G float64
	B float64
}

// FrameSize is pixel dimensions of the frame an object was observed in
type FrameSize struct {
	Width  int
	Height int
}

// Detection is a single object found by detector on a single frame, before identity is assigned.
type Detection struct {
	bbox      Rectangle
	frameSize FrameSize
	color     Color
}

// NewDetection creates detection for the given bounding box.
// Frame size is needed for feature normalization so it must be positive.
func NewDetection(bbox Rectangle, frameWidth, frameHeight int, color Color) (*Detection, error) {
	if frameWidth <= 0 || frameHeight <= 0 {
		return nil, errors.Wrapf(ErrDegenerateFrame, "got %dx%d", frameWidth, frameHeight)
	}
	for _, channel := range []float64{color.R, color.G, color.B} {
		if math.IsNaN(channel) || channel < 0 || channel > 1 {
			return nil, errors.Wrapf(ErrInvalidColor, "got %v", color)
		}
	}
	return &Detection{
		bbox:      bbox,
		frameSize: FrameSize{Width: frameWidth, Height: frameHeight},
		color:     color,
	}, nil
}

// GetBBox returns detection's bounding box
func (detection *Detection) GetBBox() Rectangle {
	return detection.bbox
}

// GetFrameSize returns size of the frame detection belongs to
func (detection *Detection) GetFrameSize() FrameSize {
	return detection.frameSize
}

// GetColor returns mean color of the detection's region
func (detection *Detection) GetColor() Color {
	return detection.color
}

// FeatureVector returns detection's feature vector. Detection is always positioned at its own top-left corner.
func (detection *Detection) FeatureVector() FeatureVector {
	return newFeatureVector(detection.bbox.TopLeft(), detection.bbox, detection.frameSize, detection.color)
}

// DistanceTo returns feature distance to the given vehicle
func (detection *Detection) DistanceTo(vehicle *Vehicle) float64 {
	return Distance(detection.FeatureVector(), vehicle.FeatureVector())
}
