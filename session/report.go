package session

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// FrameKey returns report key for 0-based frame index
func FrameKey(index int) string {
	return "frame " + strconv.Itoa(index)
}

// FrameReport holds identifiers visible on a single frame
type FrameReport struct {
	Key string
	IDs []int
}

// Report is tracking result: identifiers of visible vehicles per frame, in frame order.
// JSON form is an object keyed by FrameKey; keys keep frame order.
type Report struct {
	Frames []FrameReport
}

// NewReport creates empty report
func NewReport() *Report {
	return &Report{
		Frames: make([]FrameReport, 0),
	}
}

// Append adds next frame
func (report *Report) Append(ids []int) {
	if ids == nil {
		ids = []int{}
	}
	report.Frames = append(report.Frames, FrameReport{Key: FrameKey(len(report.Frames)), IDs: ids})
}

// Len returns number of frames
func (report *Report) Len() int {
	return len(report.Frames)
}

// IDs returns identifiers for frame key
func (report *Report) IDs(key string) ([]int, bool) {
	for _, frame := range report.Frames {
		if frame.Key == key {
			return frame.IDs, true
		}
	}
	return nil, false
}

// MarshalJSON implements json.Marshaler
func (report *Report) MarshalJSON() ([]byte, error) {
	doc := []byte("{}")
	var err error
	for _, frame := range report.Frames {
		doc, err = sjson.SetBytes(doc, frame.Key, frame.IDs)
		if err != nil {
			return nil, errors.Wrapf(err, "can't encode %s", frame.Key)
		}
	}
	return doc, nil
}

// UnmarshalJSON implements json.Unmarshaler
func (report *Report) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return errors.New("report is not a valid JSON document")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return errors.New("report must be an object")
	}
	frames := make([]FrameReport, 0)
	var parseErr error
	doc.ForEach(func(key, value gjson.Result) bool {
		if !value.IsArray() {
			parseErr = errors.Errorf("report frame %q is not a list", key.String())
			return false
		}
		items := value.Array()
		ids := make([]int, 0, len(items))
		for _, item := range items {
			if item.Type != gjson.Number {
				parseErr = errors.Errorf("report frame %q holds non-numeric id", key.String())
				return false
			}
			ids = append(ids, int(item.Int()))
		}
		frames = append(frames, FrameReport{Key: key.String(), IDs: ids})
		return true
	})
	if parseErr != nil {
		return parseErr
	}
	report.Frames = frames
	return nil
}
