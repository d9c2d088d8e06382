package mot

import (
	"github.com/pkg/errors"
)

// Vehicle is a tracked object: one identity carried across frames.
type Vehicle struct {
	id               int
	currentBBox      Rectangle
	frameSize        FrameSize
	color            Color
	velocity         Point
	probablePosition Point
	visible          bool
	absentFrames     int
	motion           MotionModel
}

// NewVehicle creates vehicle from unmatched detection.
// Vehicle starts visible, still and with zero absences.
func NewVehicle(detection *Detection, id int, motion MotionModel) *Vehicle {
	if motion == nil {
		motion = VelocityMotion{}
	}
	vehicle := Vehicle{
		id:           id,
		currentBBox:  detection.GetBBox(),
		frameSize:    detection.GetFrameSize(),
		color:        detection.GetColor(),
		velocity:     Point{X: 0, Y: 0},
		visible:      true,
		absentFrames: 0,
		motion:       motion,
	}
	vehicle.probablePosition = vehicle.currentBBox.TopLeft()
	return &vehicle
}

// MarkAbsent must be called once per frame before matching.
// If vehicle has not been matched on previous frame, absence counter grows and probable position is re-estimated.
func (vehicle *Vehicle) MarkAbsent() {
	if !vehicle.visible {
		vehicle.absentFrames++
		vehicle.probablePosition = vehicle.motion.Predict(vehicle.currentBBox.TopLeft(), vehicle.velocity)
	}
	vehicle.visible = false
}

// Rematch updates vehicle with the detection it has been matched to.
// Absence counter is kept as is: it counts absences over the whole lifetime.
// Frame size stays the one vehicle has been created with.
func (vehicle *Vehicle) Rematch(detection *Detection) error {
	newBBox := detection.GetBBox()
	vehicle.visible = true
	vehicle.velocity = newBBox.TopLeft().Sub(vehicle.currentBBox.TopLeft())
	vehicle.currentBBox = newBBox
	vehicle.color = detection.GetColor()
	probable, err := vehicle.motion.Correct(vehicle.currentBBox.TopLeft(), vehicle.velocity)
	if err != nil {
		return errors.Wrapf(err, "Can't update vehicle with id %d", vehicle.id)
	}
	vehicle.probablePosition = probable
	return nil
}

// ResetAbsence resets absence counter
func (vehicle *Vehicle) ResetAbsence() {
	vehicle.absentFrames = 0
}

// GetID returns vehicle's identifier
func (vehicle *Vehicle) GetID() int {
	return vehicle.id
}

// GetBBox returns vehicle's last matched bounding box
func (vehicle *Vehicle) GetBBox() Rectangle {
	return vehicle.currentBBox
}

// GetPosition returns top-left corner of the last matched bounding box
func (vehicle *Vehicle) GetPosition() Point {
	return vehicle.currentBBox.TopLeft()
}

// GetProbablePosition returns extrapolated top-left corner
func (vehicle *Vehicle) GetProbablePosition() Point {
	return vehicle.probablePosition
}

// GetProbableBBox returns bounding box placed at extrapolated position
func (vehicle *Vehicle) GetProbableBBox() Rectangle {
	return NewRect(vehicle.probablePosition.X, vehicle.probablePosition.Y, vehicle.currentBBox.Width, vehicle.currentBBox.Height)
}

// IsVisible returns true if vehicle has been matched on the latest processed frame
func (vehicle *Vehicle) IsVisible() bool {
	return vehicle.visible
}

// GetAbsentFrames returns number of frames vehicle has not been matched on
func (vehicle *Vehicle) GetAbsentFrames() int {
	return vehicle.absentFrames
}

// GetVelocity returns displacement between two last matched positions
func (vehicle *Vehicle) GetVelocity() Point {
	return vehicle.velocity
}

// GetColor returns vehicle's mean color
func (vehicle *Vehicle) GetColor() Color {
	return vehicle.color
}

// GetFrameSize returns size of the frame vehicle has been matched on last time
func (vehicle *Vehicle) GetFrameSize() FrameSize {
	return vehicle.frameSize
}

// FeatureVector returns vehicle's feature vector.
// Position is current one for visible vehicle and probable one otherwise.
func (vehicle *Vehicle) FeatureVector() FeatureVector {
	position := vehicle.probablePosition
	if vehicle.visible {
		position = vehicle.currentBBox.TopLeft()
	}
	return newFeatureVector(position, vehicle.currentBBox, vehicle.frameSize, vehicle.color)
}
