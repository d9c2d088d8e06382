package mot

import (
	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/pkg/errors"
)

// MotionModel estimates probable (extrapolated) top-left position of a vehicle while it is not matched.
type MotionModel interface {
	// Predict is called when vehicle stays unmatched for one more frame
	Predict(position, velocity Point) Point
	// Correct is called when vehicle is matched at the given position
	Correct(position, velocity Point) (Point, error)
}

// MotionFactory creates motion model for a newly spawned vehicle
type MotionFactory func(initial Point) MotionModel

// VelocityMotion extrapolates position as last known position plus last velocity.
// It keeps no state: repeated predictions do not accumulate.
type VelocityMotion struct{}

// NewVelocityMotion is MotionFactory for VelocityMotion
func NewVelocityMotion(Point) MotionModel {
	return VelocityMotion{}
}

// Predict returns position + velocity
func (VelocityMotion) Predict(position, velocity Point) Point {
	return position.Add(velocity)
}

// Correct returns position + velocity
func (VelocityMotion) Correct(position, velocity Point) (Point, error) {
	return position.Add(velocity), nil
}

// KalmanMotion smooths top-left corner with 2D Kalman filter.
// Unlike VelocityMotion, predictions accumulate while vehicle stays unmatched.
type KalmanMotion struct {
	tracker   *kalman_filter.Kalman2D
	predicted bool
}

// NewKalmanMotionWithTime creates KalmanMotion with specified time step
func NewKalmanMotionWithTime(initial Point, dt float64) *KalmanMotion {
	/* Kalman filter props */
	ux := 1.0
	uy := 1.0
	stdDevA := 2.0
	stdDevMx := 0.1
	stdDevMy := 0.1
	kf := kalman_filter.NewKalman2D(dt, ux, uy, stdDevA, stdDevMx, stdDevMy, kalman_filter.WithState2D(initial.X, initial.Y))
	return &KalmanMotion{
		tracker: kf,
	}
}

// NewKalmanMotion is MotionFactory for KalmanMotion with time step of 1 frame
func NewKalmanMotion(initial Point) MotionModel {
	return NewKalmanMotionWithTime(initial, 1.0)
}

// Predict executes Kalman filter's first step and returns predicted state
func (motion *KalmanMotion) Predict(_, _ Point) Point {
	motion.tracker.Predict()
	motion.predicted = true
	stateX, stateY := motion.tracker.GetState()
	return Point{X: stateX, Y: stateY}
}

// Correct evaluates state vector with the measured position and returns smoothed position shifted by velocity
func (motion *KalmanMotion) Correct(position, velocity Point) (Point, error) {
	// Filter must predict exactly once per frame before update
	if !motion.predicted {
		motion.tracker.Predict()
	}
	motion.predicted = false
	err := motion.tracker.Update(position.X, position.Y)
	if err != nil {
		return Point{}, errors.Wrap(err, "Can't update motion tracker")
	}
	stateX, stateY := motion.tracker.GetState()
	return Point{X: stateX, Y: stateY}.Add(velocity), nil
}
