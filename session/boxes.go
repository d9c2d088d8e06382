package session

import (
	"os"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/LdDl/vehicletrack/mot"
)

// RawBox is a bounding box as produced by detector. Fields besides geometry are ignored.
type RawBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect converts raw box into rectangle
func (box RawBox) Rect() mot.Rectangle {
	return mot.NewRect(box.X, box.Y, box.Width, box.Height)
}

// FrameBoxes is list of bounding boxes for a single frame
type FrameBoxes struct {
	// Key is frame's key in the source document
	Key   string
	Boxes []RawBox
}

// BoxSource provides per-frame bounding boxes in the source's own order
type BoxSource interface {
	Load() ([]FrameBoxes, error)
}

// FileBoxSource reads bounding boxes from JSON document on disk
type FileBoxSource struct {
	Path string
}

// Load reads and parses the file. Any read or parse failure becomes UserError.
func (source FileBoxSource) Load() ([]FrameBoxes, error) {
	data, err := os.ReadFile(source.Path)
	if err != nil {
		return nil, &UserError{Message: badBoxFileMessage, Err: errors.Wrapf(err, "can't read %s", source.Path)}
	}
	frames, err := parseBoxDocument(data)
	if err != nil {
		return nil, &UserError{Message: badBoxFileMessage, Err: errors.Wrapf(err, "can't parse %s", source.Path)}
	}
	return frames, nil
}

// StringBoxSource parses bounding boxes from JSON-encoded string
type StringBoxSource struct {
	JSON string
}

// Load parses the string
func (source StringBoxSource) Load() ([]FrameBoxes, error) {
	return parseBoxDocument([]byte(source.JSON))
}

// ParsedBoxSource holds already parsed bounding boxes
type ParsedBoxSource struct {
	Frames []FrameBoxes
}

// Load returns copy of frames list
func (source ParsedBoxSource) Load() ([]FrameBoxes, error) {
	return slices.Clone(source.Frames), nil
}

// ParseBoxSource picks source kind for user-provided value: path to file when it ends with ".json", JSON string otherwise.
func ParseBoxSource(value string) BoxSource {
	if strings.HasSuffix(value, ".json") {
		return FileBoxSource{Path: value}
	}
	return StringBoxSource{JSON: value}
}

// SortFramesNumeric re-keys frames by number embedded into each key: "frame2" goes before "frame10"
func SortFramesNumeric(frames []FrameBoxes) {
	slices.SortStableFunc(frames, func(a, b FrameBoxes) int {
		return naturalCompare(a.Key, b.Key)
	})
}

// parseBoxDocument walks JSON object of frames in document order
func parseBoxDocument(data []byte) ([]FrameBoxes, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.Wrap(ErrMalformedBoxes, "not a valid JSON document")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, errors.Wrap(ErrMalformedBoxes, "expected object of frames")
	}
	frames := make([]FrameBoxes, 0)
	var parseErr error
	doc.ForEach(func(key, value gjson.Result) bool {
		if !value.IsArray() {
			parseErr = errors.Wrapf(ErrMalformedBoxes, "frame %q: expected list of boxes", key.String())
			return false
		}
		items := value.Array()
		boxes := make([]RawBox, 0, len(items))
		for i, item := range items {
			box, err := parseRawBox(item)
			if err != nil {
				parseErr = errors.Wrapf(err, "frame %q, box #%d", key.String(), i)
				return false
			}
			boxes = append(boxes, box)
		}
		frames = append(frames, FrameBoxes{Key: key.String(), Boxes: boxes})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return frames, nil
}

func parseRawBox(item gjson.Result) (RawBox, error) {
	if !item.IsObject() {
		return RawBox{}, errors.Wrap(ErrMalformedBoxes, "expected object")
	}
	values := make([]float64, 0, 4)
	for _, field := range []string{"x", "y", "width", "height"} {
		value := item.Get(field)
		if value.Type != gjson.Number {
			return RawBox{}, errors.Wrapf(ErrMissingField, "field %q", field)
		}
		values = append(values, value.Float())
	}
	return RawBox{X: values[0], Y: values[1], Width: values[2], Height: values[3]}, nil
}
