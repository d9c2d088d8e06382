package session

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LdDl/vehicletrack/config"
	"github.com/LdDl/vehicletrack/mot"
)

func movingFrames(n int) [][]RawBox {
	frames := make([][]RawBox, n)
	for i := range frames {
		offset := 10.0 + 5.0*float64(i)
		frames[i] = []RawBox{{X: offset, Y: offset, Width: 20, Height: 20}}
	}
	return frames
}

func boxesJSON(t *testing.T, frames [][]RawBox) string {
	t.Helper()
	parts := make([]string, len(frames))
	for i, boxes := range frames {
		data, err := json.Marshal(boxes)
		require.NoError(t, err)
		parts[i] = fmt.Sprintf("%q: %s", fmt.Sprintf("frame%d", i+1), data)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func frameNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("image%d.png", i+1)
	}
	return names
}

func runSession(t *testing.T, cfg config.Config, boxes BoxSource, frames FrameSource) (*Report, error) {
	t.Helper()
	s, err := New(cfg, boxes, frames)
	require.NoError(t, err)
	return s.Run(context.Background())
}

func TestRunMovingVehicle(t *testing.T) {
	t.Parallel()
	frames := movingFrames(3)
	dir := writeFrames(t, frameNames(3), frames)

	report, err := runSession(t, config.Default(), StringBoxSource{JSON: boxesJSON(t, frames)}, DirFrameSource{Dir: dir})
	require.NoError(t, err)

	data, err := json.Marshal(report)
	require.NoError(t, err)
	assert.JSONEq(t, `{"frame 0": [0], "frame 1": [0], "frame 2": [0]}`, string(data))
}

func TestRunKalmanMotion(t *testing.T) {
	t.Parallel()
	frames := movingFrames(6)
	dir := writeFrames(t, frameNames(6), frames)
	cfg := config.Default()
	cfg.MotionModel = config.MotionKalman
	cfg.DetectionThreshold = 0.3

	report, err := runSession(t, cfg, StringBoxSource{JSON: boxesJSON(t, frames)}, DirFrameSource{Dir: dir})
	require.NoError(t, err)
	for _, frame := range report.Frames {
		assert.Equal(t, []int{0}, frame.IDs, frame.Key)
	}
}

func TestRunOcclusion(t *testing.T) {
	t.Parallel()
	frames := movingFrames(4)
	frames[2] = []RawBox{}
	dir := writeFrames(t, frameNames(4), frames)
	cfg := config.Default()
	cfg.MemoryFramesNumber = 1

	report, err := runSession(t, cfg, StringBoxSource{JSON: boxesJSON(t, frames)}, DirFrameSource{Dir: dir})
	require.NoError(t, err)

	require.Equal(t, 4, report.Len())
	expected := [][]int{{0}, {0}, {}, {0}}
	for i, frame := range report.Frames {
		assert.Equal(t, FrameKey(i), frame.Key)
		assert.Equal(t, expected[i], frame.IDs, frame.Key)
	}
}

func TestRunReportCompleteness(t *testing.T) {
	t.Parallel()
	frames := make([][]RawBox, 12)
	for i := range frames {
		frames[i] = []RawBox{}
	}
	frames[5] = []RawBox{{X: 40, Y: 40, Width: 10, Height: 10}}
	dir := writeFrames(t, frameNames(12), frames)

	report, err := runSession(t, config.Default(), StringBoxSource{JSON: boxesJSON(t, frames)}, DirFrameSource{Dir: dir})
	require.NoError(t, err)

	data, err := json.Marshal(report)
	require.NoError(t, err)
	var decoded map[string][]int
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 12)
	for i := 0; i < 12; i++ {
		ids, ok := decoded[FrameKey(i)]
		require.True(t, ok, FrameKey(i))
		assert.NotNil(t, ids)
	}
	assert.Equal(t, []int{0}, decoded["frame 5"])
	_, ok := decoded["frame 12"]
	assert.False(t, ok)
}

func TestRunBoxSources(t *testing.T) {
	t.Parallel()
	frames := movingFrames(3)
	dir := writeFrames(t, frameNames(3), frames)
	doc := boxesJSON(t, frames)
	path := filepath.Join(t.TempDir(), "bounding_box.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	parsed := make([]FrameBoxes, len(frames))
	for i, boxes := range frames {
		parsed[i] = FrameBoxes{Key: fmt.Sprintf("frame%d", i+1), Boxes: boxes}
	}

	sources := map[string]BoxSource{
		"file":          FileBoxSource{Path: path},
		"string":        StringBoxSource{JSON: doc},
		"parsed":        ParsedBoxSource{Frames: parsed},
		"dispatch file": ParseBoxSource(path),
		"dispatch json": ParseBoxSource(doc),
	}
	for name, source := range sources {
		t.Run(name, func(t *testing.T) {
			report, err := runSession(t, config.Default(), source, DirFrameSource{Dir: dir})
			require.NoError(t, err)
			require.Equal(t, 3, report.Len())
			for _, frame := range report.Frames {
				assert.Equal(t, []int{0}, frame.IDs)
			}
		})
	}
}

func TestRunMalformedBoxFile(t *testing.T) {
	t.Parallel()
	dir := writeFrames(t, frameNames(1), movingFrames(1))
	cases := map[string]string{
		"directory": t.TempDir() + "/boxes.json",
		"broken":    filepath.Join(t.TempDir(), "broken.json"),
	}
	require.NoError(t, os.Mkdir(cases["directory"], 0o755))
	require.NoError(t, os.WriteFile(cases["broken"], []byte(`{"frame1": [`), 0o644))

	for name, path := range cases {
		t.Run(name, func(t *testing.T) {
			report, err := runSession(t, config.Default(), ParseBoxSource(path), DirFrameSource{Dir: dir})
			require.Error(t, err)
			assert.Nil(t, report)
			var userErr *UserError
			require.True(t, errors.As(err, &userErr))
			assert.Equal(t, "Provide a json file or similar", userErr.Error())
			assert.True(t, IsInputError(err))
		})
	}
}

func TestRunMalformedBoxString(t *testing.T) {
	t.Parallel()
	dir := writeFrames(t, frameNames(1), movingFrames(1))
	cases := map[string]struct {
		doc    string
		target error
	}{
		"not json":      {doc: `frames please`, target: ErrMalformedBoxes},
		"not an object": {doc: `[[]]`, target: ErrMalformedBoxes},
		"not a list":    {doc: `{"frame1": {"x": 1}}`, target: ErrMalformedBoxes},
		"missing field": {doc: `{"frame1": [{"x": 1, "y": 2, "width": 3}]}`, target: ErrMissingField},
		"string field":  {doc: `{"frame1": [{"x": "1", "y": 2, "width": 3, "height": 4}]}`, target: ErrMissingField},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := runSession(t, config.Default(), StringBoxSource{JSON: tc.doc}, DirFrameSource{Dir: dir})
			assert.True(t, errors.Is(err, tc.target), "got %v", err)
			assert.True(t, IsInputError(err))
		})
	}
}

func TestRunCountMismatch(t *testing.T) {
	t.Parallel()
	frames := movingFrames(3)
	dir := writeFrames(t, frameNames(3), frames)
	doc := boxesJSON(t, frames[:2])

	t.Run("pairs to shorter sequence", func(t *testing.T) {
		report, err := runSession(t, config.Default(), StringBoxSource{JSON: doc}, DirFrameSource{Dir: dir})
		require.NoError(t, err)
		assert.Equal(t, 2, report.Len())
	})

	t.Run("strict pairing", func(t *testing.T) {
		cfg := config.Default()
		cfg.StrictPairing = true
		_, err := runSession(t, cfg, StringBoxSource{JSON: doc}, DirFrameSource{Dir: dir})
		assert.True(t, errors.Is(err, ErrCountMismatch))
	})
}

func TestRunNumericOrder(t *testing.T) {
	t.Parallel()
	// Vehicle moves right: frame10 is the last one
	names := []string{"frame10.png", "frame2.png", "frame1.png"}
	boxes := [][]RawBox{
		{{X: 60, Y: 40, Width: 20, Height: 20}},
		{{X: 35, Y: 40, Width: 20, Height: 20}},
		{{X: 10, Y: 40, Width: 20, Height: 20}},
	}
	dir := writeFrames(t, names, boxes)

	source := DirFrameSource{Dir: dir}
	listed, err := source.Frames()
	require.NoError(t, err)
	assert.Equal(t, []string{"frame1.png", "frame2.png", "frame10.png"}, listed)

	// Keys are listed out of order in the document
	doc := `{
		"frame10": [{"x": 60, "y": 40, "width": 20, "height": 20}],
		"frame1": [{"x": 10, "y": 40, "width": 20, "height": 20}],
		"frame2": [{"x": 35, "y": 40, "width": 20, "height": 20, "label": "car"}]
	}`
	cfg := config.Default()
	cfg.DetectionThreshold = 0.3
	cfg.BoxOrder = config.BoxOrderNumeric
	report, err := runSession(t, cfg, StringBoxSource{JSON: doc}, source)
	require.NoError(t, err)
	for _, frame := range report.Frames {
		assert.Equal(t, []int{0}, frame.IDs, frame.Key)
	}

	// Source order pairs frame1 image with frame10 boxes
	frames, err := StringBoxSource{JSON: doc}.Load()
	require.NoError(t, err)
	assert.Equal(t, "frame10", frames[0].Key)
	SortFramesNumeric(frames)
	assert.Equal(t, []string{"frame1", "frame2", "frame10"}, []string{frames[0].Key, frames[1].Key, frames[2].Key})
}

func TestRunDegenerateFrame(t *testing.T) {
	t.Parallel()
	source := memoryFrames{
		names: []string{"ok", "empty"},
		images: map[string]image.Image{
			"ok":    paintFrame(),
			"empty": image.NewNRGBA(image.Rect(0, 0, 0, 0)),
		},
	}
	parsed := ParsedBoxSource{Frames: []FrameBoxes{{Key: "0"}, {Key: "1"}}}
	report, err := runSession(t, config.Default(), parsed, source)
	assert.Nil(t, report)
	assert.True(t, errors.Is(err, mot.ErrDegenerateFrame), "got %v", err)
	assert.Contains(t, err.Error(), "frame 1")
}

func TestRunEmptyRegion(t *testing.T) {
	t.Parallel()
	dir := writeFrames(t, frameNames(1), [][]RawBox{{}})
	doc := `{"frame1": [{"x": 150, "y": 150, "width": 10, "height": 10}]}`
	_, err := runSession(t, config.Default(), StringBoxSource{JSON: doc}, DirFrameSource{Dir: dir})
	assert.True(t, errors.Is(err, ErrEmptyRegion), "got %v", err)
}

func TestRunMissingFrameDir(t *testing.T) {
	t.Parallel()
	_, err := runSession(t, config.Default(), StringBoxSource{JSON: `{}`}, DirFrameSource{Dir: filepath.Join(t.TempDir(), "nope")})
	assert.True(t, errors.Is(err, ErrBadFramePath))
	assert.True(t, IsInputError(err))
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()
	frames := movingFrames(2)
	dir := writeFrames(t, frameNames(2), frames)
	s, err := New(config.Default(), StringBoxSource{JSON: boxesJSON(t, frames)}, DirFrameSource{Dir: dir})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNewSession(t *testing.T) {
	t.Parallel()
	id := uuid.New()
	s, err := New(config.Default(), StringBoxSource{}, DirFrameSource{}, WithID(id))
	require.NoError(t, err)
	assert.Equal(t, id, s.ID())

	cfg := config.Default()
	cfg.DetectionThreshold = -1
	_, err = New(cfg, StringBoxSource{}, DirFrameSource{})
	assert.True(t, errors.Is(err, config.ErrInvalidConfig))

	_, err = New(config.Default(), nil, DirFrameSource{})
	assert.Error(t, err)
}
