// Package session drives vehicle tracking over an ordered sequence of frames.
package session

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/LdDl/vehicletrack/config"
	"github.com/LdDl/vehicletrack/mot"
)

// Session is a single tracking run. It owns its own matcher, so independent sessions may run concurrently.
type Session struct {
	id     uuid.UUID
	cfg    config.Config
	boxes  BoxSource
	frames FrameSource
	logger *zap.SugaredLogger
}

// Option configures Session
type Option func(*Session)

// WithLogger sets logger. Default one discards everything
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithID sets session identifier. Random one is generated by default
func WithID(id uuid.UUID) Option {
	return func(s *Session) {
		s.id = id
	}
}

// New creates session. Configuration is validated eagerly.
func New(cfg config.Config, boxes BoxSource, frames FrameSource, options ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if boxes == nil || frames == nil {
		return nil, errors.New("both bounding-box and frame sources are required")
	}
	s := &Session{
		id:     uuid.New(),
		cfg:    cfg,
		boxes:  boxes,
		frames: frames,
		logger: zap.NewNop().Sugar(),
	}
	for _, option := range options {
		option(s)
	}
	s.logger = s.logger.With("session", s.id.String())
	return s, nil
}

// ID returns session identifier
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Run tracks vehicles over every frame and returns the report.
// Inputs are listed and validated before the first frame is matched; images are decoded one at a time.
// Context is checked between frames.
func (s *Session) Run(ctx context.Context) (*Report, error) {
	names, err := s.frames.Frames()
	if err != nil {
		return nil, err
	}
	boxFrames, err := s.boxes.Load()
	if err != nil {
		return nil, err
	}
	if s.cfg.BoxOrder == config.BoxOrderNumeric {
		SortFramesNumeric(boxFrames)
	}

	count := len(names)
	if len(boxFrames) != len(names) {
		if s.cfg.StrictPairing {
			return nil, errors.Wrapf(ErrCountMismatch, "%d frames, %d bounding-box lists", len(names), len(boxFrames))
		}
		count = min(len(names), len(boxFrames))
		s.logger.Warnw("frames and bounding-box lists differ in length, extra ones are ignored",
			"frames", len(names), "box_lists", len(boxFrames), "tracked_frames", count)
	}

	s.logger.Infow("tracking started", "frames", count, "detection_threshold", s.cfg.DetectionThreshold,
		"memory_frames_number", s.cfg.MemoryFramesNumber, "motion_model", s.cfg.MotionModel)

	matcher := mot.NewMatcher(s.cfg.DetectionThreshold, s.cfg.MemoryFramesNumber,
		mot.WithMotionFactory(motionFactory(s.cfg.MotionModel)),
		mot.WithResetAbsencesOnMatch(s.cfg.ResetAbsencesOnMatch),
		mot.WithLogger(s.logger),
	)
	report := NewReport()
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "tracking aborted at frame %d", i)
		}
		detections, err := s.detections(names[i], boxFrames[i].Boxes)
		if err != nil {
			return nil, errors.Wrapf(err, "frame %d (%s)", i, names[i])
		}
		ids, err := matcher.MatchObjects(detections)
		if err != nil {
			return nil, errors.Wrapf(err, "frame %d (%s)", i, names[i])
		}
		report.Append(ids)
	}

	s.logger.Infow("tracking finished", "frames", report.Len(), "vehicles", matcher.NextID())
	return report, nil
}

// detections decodes frame and builds detection for every raw box
func (s *Session) detections(name string, boxes []RawBox) ([]*mot.Detection, error) {
	img, err := s.frames.Decode(name)
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, errors.Wrapf(mot.ErrDegenerateFrame, "got %dx%d", bounds.Dx(), bounds.Dy())
	}
	detections := make([]*mot.Detection, 0, len(boxes))
	for j, box := range boxes {
		color, err := MeanColor(img, box.Rect())
		if err != nil {
			return nil, errors.Wrapf(err, "box #%d", j)
		}
		detection, err := mot.NewDetection(box.Rect(), bounds.Dx(), bounds.Dy(), color)
		if err != nil {
			return nil, errors.Wrapf(err, "box #%d", j)
		}
		detections = append(detections, detection)
	}
	return detections, nil
}

func motionFactory(model string) mot.MotionFactory {
	if model == config.MotionKalman {
		return mot.NewKalmanMotion
	}
	return mot.NewVelocityMotion
}
