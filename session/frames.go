package session

import (
	"image"
	"os"
	"path/filepath"
	"slices"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	// webp frames, the rest of formats are registered by imaging
	_ "golang.org/x/image/webp"

	"github.com/LdDl/vehicletrack/mot"
)

// FrameSource provides ordered frame images
type FrameSource interface {
	// Frames returns frame names in playback order
	Frames() ([]string, error)
	// Decode returns image for frame name
	Decode(name string) (image.Image, error)
}

// DirFrameSource reads frames from directory. Frames are ordered by numbers embedded into file names.
type DirFrameSource struct {
	Dir string
}

// Frames lists regular files in the directory
func (source DirFrameSource) Frames() ([]string, error) {
	entries, err := os.ReadDir(source.Dir)
	if err != nil {
		return nil, errors.Wrapf(ErrBadFramePath, "%s: %v", source.Dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	slices.SortFunc(names, naturalCompare)
	return names, nil
}

// Decode opens and decodes frame file
func (source DirFrameSource) Decode(name string) (image.Image, error) {
	img, err := imaging.Open(filepath.Join(source.Dir, name))
	if err != nil {
		return nil, errors.Wrapf(err, "can't decode frame %s", name)
	}
	return img, nil
}

// MeanColor returns mean color of the image region covered by bbox. Region is clipped to image bounds.
func MeanColor(img image.Image, bbox mot.Rectangle) (mot.Color, error) {
	region := bbox.Image().Intersect(img.Bounds())
	if region.Empty() {
		return mot.Color{}, errors.Wrapf(ErrEmptyRegion, "bbox %v, frame %v", bbox, mot.NewRectFrom(img.Bounds()))
	}
	crop := imaging.Crop(img, region)
	var sumR, sumG, sumB float64
	pixels := 0
	for y := 0; y < crop.Rect.Dy(); y++ {
		row := crop.Pix[y*crop.Stride : y*crop.Stride+crop.Rect.Dx()*4]
		for x := 0; x < len(row); x += 4 {
			sumR += float64(row[x])
			sumG += float64(row[x+1])
			sumB += float64(row[x+2])
			pixels++
		}
	}
	n := float64(pixels) * 255.0
	return mot.Color{R: sumR / n, G: sumG / n, B: sumB / n}, nil
}
