package session

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	background = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	vehicleRed = color.NRGBA{R: 200, G: 20, B: 20, A: 255}
)

// paintFrame creates 100x100 white frame with red rectangles
func paintFrame(boxes ...RawBox) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			img.SetNRGBA(x, y, background)
		}
	}
	for _, box := range boxes {
		for y := int(box.Y); y < int(box.Y+box.Height); y++ {
			for x := int(box.X); x < int(box.X+box.Width); x++ {
				img.SetNRGBA(x, y, vehicleRed)
			}
		}
	}
	return img
}

// writeFrames stores frames as PNG files in a temporary directory and returns it
func writeFrames(t *testing.T, names []string, frames [][]RawBox) string {
	t.Helper()
	require.Equal(t, len(names), len(frames))
	dir := t.TempDir()
	for i, name := range names {
		file, err := os.Create(filepath.Join(dir, name))
		require.NoError(t, err)
		require.NoError(t, png.Encode(file, paintFrame(frames[i]...)))
		require.NoError(t, file.Close())
	}
	return dir
}

// memoryFrames is in-memory FrameSource
type memoryFrames struct {
	names  []string
	images map[string]image.Image
}

func (source memoryFrames) Frames() ([]string, error) {
	return source.names, nil
}

func (source memoryFrames) Decode(name string) (image.Image, error) {
	return source.images[name], nil
}
