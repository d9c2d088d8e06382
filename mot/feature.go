package mot

import (
	"gonum.org/v1/gonum/floats"
)

// FeatureDimensions is length of every feature vector
const FeatureDimensions = 7

// FeatureVector is [x/frame_width, y/frame_height, width/frame_width, height/frame_height, r, g, b]
type FeatureVector [FeatureDimensions]float64

func newFeatureVector(position Point, bbox Rectangle, frameSize FrameSize, color Color) FeatureVector {
	fw := float64(frameSize.Width)
	fh := float64(frameSize.Height)
	return FeatureVector{
		position.X / fw,
		position.Y / fh,
		bbox.Width / fw,
		bbox.Height / fh,
		color.R,
		color.G,
		color.B,
	}
}

// Distance returns Euclidean distance between two feature vectors. Dimensions are not weighted.
func Distance(a, b FeatureVector) float64 {
	return floats.Distance(a[:], b[:], 2)
}
