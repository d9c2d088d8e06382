package mot

import (
	"image"
	"math"
)

// Rectangle is a bounding box in pixel coordinates. X and Y point to the top-left corner.
type Rectangle struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

func NewRect(x, y, width, height float64) Rectangle {
	return Rectangle{
		X:      x,
		Y:      y,
		Width:  width,
		Height: height,
	}
}

func NewRectFrom(rect image.Rectangle) Rectangle {
	return Rectangle{
		X:      float64(rect.Min.X),
		Y:      float64(rect.Min.Y),
		Width:  float64(rect.Dx()),
		Height: float64(rect.Dy()),
	}
}

// TopLeft returns top-left corner of the rectangle
func (rect Rectangle) TopLeft() Point {
	return Point{X: rect.X, Y: rect.Y}
}

// Image converts rectangle to integer pixel bounds. Fractional edges are expanded outwards.
func (rect Rectangle) Image() image.Rectangle {
	return image.Rect(
		int(math.Floor(rect.X)),
		int(math.Floor(rect.Y)),
		int(math.Ceil(rect.X+rect.Width)),
		int(math.Ceil(rect.Y+rect.Height)),
	)
}

type Point struct {
	X float64
	Y float64
}

func NewPoint(x, y float64) Point {
	return Point{
		X: x,
		Y: y,
	}
}

// Add returns p shifted by other
func (p Point) Add(other Point) Point {
	return Point{X: p.X + other.X, Y: p.Y + other.Y}
}

// Sub returns vector from other to p
func (p Point) Sub(other Point) Point {
	return Point{X: p.X - other.X, Y: p.Y - other.Y}
}
