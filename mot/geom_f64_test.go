package mot

import (
	"image"
	"testing"
)

const (
	eps = 0.00001
)

func TestRectangleImage(t *testing.T) {
	rect := NewRect(10.5, 20.2, 30.0, 40.1)
	correctAnswer := image.Rect(10, 20, 41, 61)
	answer := rect.Image()
	if answer != correctAnswer {
		t.Errorf("Wrong answer: %v, correct answer: %v", answer, correctAnswer)
	}
	back := NewRectFrom(image.Rect(10, 20, 40, 60))
	if back != NewRect(10, 20, 30, 40) {
		t.Errorf("Wrong answer: %v, correct answer: %v", back, NewRect(10, 20, 30, 40))
	}
}

func TestPointArithmetic(t *testing.T) {
	p1 := Point{X: 341, Y: 264}
	p2 := Point{X: 421, Y: 427}
	diff := p2.Sub(p1)
	if diff != NewPoint(80, 163) {
		t.Errorf("Wrong answer: %v, correct answer: %v", diff, NewPoint(80, 163))
	}
	if p1.Add(diff) != p2 {
		t.Errorf("Wrong answer: %v, correct answer: %v", p1.Add(diff), p2)
	}
}
