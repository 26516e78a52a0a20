package yolotrack

import "math"

// iouEpsilon is added to the IoU denominator so two degenerate (zero area)
// boxes do not divide by zero
const iouEpsilon = 1e-6

// Box is an axis aligned bounding box in corner format
type Box struct {
	X1 float32
	Y1 float32
	X2 float32
	Y2 float32
}

// BoxFromCenter converts a center-size (cx, cy, w, h) box as emitted by the
// detector into corner format
func BoxFromCenter(cx, cy, w, h float32) Box {
	return Box{
		X1: cx - w/2,
		Y1: cy - h/2,
		X2: cx + w/2,
		Y2: cy + h/2,
	}
}

// Width returns the width of the box
func (b Box) Width() float32 {
	return b.X2 - b.X1
}

// Height returns the height of the box
func (b Box) Height() float32 {
	return b.Y2 - b.Y1
}

// Area returns the area of the box.  Malformed boxes (X2 < X1 or Y2 < Y1)
// have a zero area.
func (b Box) Area() float32 {
	w := b.Width()
	h := b.Height()

	if w <= 0 || h <= 0 {
		return 0
	}

	return w * h
}

// Center returns the center point of the box
func (b Box) Center() (float32, float32) {
	return b.X1 + b.Width()/2, b.Y1 + b.Height()/2
}

// Valid reports whether all coordinates of the box are finite numbers
func (b Box) Valid() bool {
	for _, v := range [4]float32{b.X1, b.Y1, b.X2, b.Y2} {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}

	return true
}

// IoU calculates the Intersection over Union of two boxes.  It returns 0
// when the boxes do not overlap.  Malformed boxes degrade to a zero
// intersection rather than producing a negative overlap.
func IoU(a, b Box) float32 {

	iw := minf(a.X2, b.X2) - maxf(a.X1, b.X1)
	ih := minf(a.Y2, b.Y2) - maxf(a.Y1, b.Y1)

	if iw <= 0 || ih <= 0 {
		return 0
	}

	inter := iw * ih
	areaA := (a.X2 - a.X1) * (a.Y2 - a.Y1)
	areaB := (b.X2 - b.X1) * (b.Y2 - b.Y1)

	return inter / (areaA + areaB - inter + iouEpsilon)
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
