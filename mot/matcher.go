package mot

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Matcher assigns identities to detections frame by frame.
// It greedily pairs detections (in the given order) with the nearest remaining vehicle by feature distance.
// Matcher is not safe for concurrent use: frames must be fed sequentially.
type Matcher struct {
	// Main storage. Order of creation is preserved
	objects []*Vehicle
	// Maximum feature distance for detection to be considered the same vehicle
	detectionThreshold float64
	// Vehicle is removed once its absence counter exceeds this value
	memoryFramesNumber int
	// Identifier for the next spawned vehicle
	nextID int

	motionFactory        MotionFactory
	resetAbsencesOnMatch bool
	logger               *zap.SugaredLogger
}

// MatcherOption configures Matcher
type MatcherOption func(*Matcher)

// WithMotionFactory sets motion model for newly spawned vehicles. Default is NewVelocityMotion
func WithMotionFactory(factory MotionFactory) MatcherOption {
	return func(matcher *Matcher) {
		if factory != nil {
			matcher.motionFactory = factory
		}
	}
}

// WithResetAbsencesOnMatch makes absence counter count consecutive misses only
func WithResetAbsencesOnMatch(reset bool) MatcherOption {
	return func(matcher *Matcher) {
		matcher.resetAbsencesOnMatch = reset
	}
}

// WithLogger sets logger. Default one discards everything
func WithLogger(logger *zap.SugaredLogger) MatcherOption {
	return func(matcher *Matcher) {
		if logger != nil {
			matcher.logger = logger
		}
	}
}

// NewMatcher creates new instance of Matcher
func NewMatcher(detectionThreshold float64, memoryFramesNumber int, options ...MatcherOption) *Matcher {
	matcher := &Matcher{
		objects:            make([]*Vehicle, 0),
		detectionThreshold: detectionThreshold,
		memoryFramesNumber: memoryFramesNumber,
		nextID:             0,
		motionFactory:      NewVelocityMotion,
		logger:             zap.NewNop().Sugar(),
	}
	for _, option := range options {
		option(matcher)
	}
	return matcher
}

// MatchObjects processes detections of a single frame and returns identifiers of visible vehicles in pool order.
// On error the pool may be partially updated, so the matcher must not be used afterwards.
func (matcher *Matcher) MatchObjects(detections []*Detection) ([]int, error) {
	matcher.forgetAbsent()

	// Every vehicle left in the pool is a candidate, including ones just marked absent
	candidates := make([]int, len(matcher.objects))
	for i := range matcher.objects {
		candidates[i] = i
	}

	spawned := make([]*Detection, 0)
	for _, detection := range detections {
		if len(candidates) == 0 {
			spawned = append(spawned, detection)
			continue
		}
		minCandidate := -1
		minDistance := math.MaxFloat64
		for j, objectIdx := range candidates {
			dist := detection.DistanceTo(matcher.objects[objectIdx])
			if dist < minDistance {
				minDistance = dist
				minCandidate = j
			}
		}
		if minCandidate < 0 || minDistance >= matcher.detectionThreshold {
			spawned = append(spawned, detection)
			continue
		}
		vehicle := matcher.objects[candidates[minCandidate]]
		err := vehicle.Rematch(detection)
		if err != nil {
			return nil, errors.Wrap(err, "Can't rematch vehicle")
		}
		if matcher.resetAbsencesOnMatch {
			vehicle.ResetAbsence()
		}
		// Vehicle can't be claimed twice on the same frame
		candidates = append(candidates[:minCandidate], candidates[minCandidate+1:]...)
	}

	for _, detection := range spawned {
		vehicle := NewVehicle(detection, matcher.nextID, matcher.motionFactory(detection.GetBBox().TopLeft()))
		matcher.objects = append(matcher.objects, vehicle)
		matcher.logger.Debugw("spawned vehicle", "id", vehicle.GetID(), "bbox", vehicle.GetBBox())
		matcher.nextID++
	}

	return matcher.VisibleIDs(), nil
}

// forgetAbsent marks every vehicle absent and drops ones which have been absent for too long.
// Pool is rebuilt so every expired vehicle is evicted.
func (matcher *Matcher) forgetAbsent() {
	retained := matcher.objects[:0]
	for _, vehicle := range matcher.objects {
		vehicle.MarkAbsent()
		if vehicle.GetAbsentFrames() > matcher.memoryFramesNumber {
			matcher.logger.Debugw("removed vehicle", "id", vehicle.GetID(), "absent_frames", vehicle.GetAbsentFrames())
			continue
		}
		retained = append(retained, vehicle)
	}
	// Drop references to evicted vehicles
	for i := len(retained); i < len(matcher.objects); i++ {
		matcher.objects[i] = nil
	}
	matcher.objects = retained
}

// VisibleIDs returns identifiers of vehicles matched on the latest frame, in pool order
func (matcher *Matcher) VisibleIDs() []int {
	ids := make([]int, 0, len(matcher.objects))
	for _, vehicle := range matcher.objects {
		if vehicle.IsVisible() {
			ids = append(ids, vehicle.GetID())
		}
	}
	return ids
}

// Objects returns vehicles in pool. Be careful: this is not copy of pool, but reference to it
func (matcher *Matcher) Objects() []*Vehicle {
	return matcher.objects
}

// NextID returns identifier the next spawned vehicle will get. It also equals to number of vehicles ever spawned
func (matcher *Matcher) NextID() int {
	return matcher.nextID
}
