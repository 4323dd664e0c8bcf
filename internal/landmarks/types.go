// Package landmarks turns raw detector output into the immutable face
// snapshot shared between the frame path and the render path.
package landmarks

import "fmt"

// Point represents a 2D point in frame coordinates
type Point struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// Mid returns the midpoint of p and q
func (p Point) Mid(q Point) Point {
	return Point{X: (p.X + q.X) / 2, Y: (p.Y + q.Y) / 2}
}

// BoundingBox represents a face bounding box
type BoundingBox struct {
	X1 float32 `json:"x1"` // top-left
	Y1 float32 `json:"y1"`
	X2 float32 `json:"x2"` // bottom-right
	Y2 float32 `json:"y2"`
}

// Width returns box width
func (b BoundingBox) Width() float32 {
	return b.X2 - b.X1
}

// Height returns box height
func (b BoundingBox) Height() float32 {
	return b.Y2 - b.Y1
}

// Center returns box center point
func (b BoundingBox) Center() Point {
	return Point{
		X: (b.X1 + b.X2) / 2,
		Y: (b.Y1 + b.Y2) / 2,
	}
}

// Area returns box area
func (b BoundingBox) Area() float32 {
	return b.Width() * b.Height()
}

// Kind names one landmark point
type Kind uint8

const (
	LeftEye Kind = iota
	RightEye
	NoseBase
	LeftCheek
	RightCheek
	LeftMouth
	RightMouth

	numKinds
)

var kindNames = [numKinds]string{
	LeftEye:    "leftEye",
	RightEye:   "rightEye",
	NoseBase:   "noseBase",
	LeftCheek:  "leftCheek",
	RightCheek: "rightCheek",
	LeftMouth:  "leftMouth",
	RightMouth: "rightMouth",
}

// Kinds returns every landmark kind
func Kinds() []Kind {
	out := make([]Kind, numKinds)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// RawFace is one candidate face as reported by a detector. Points may be
// missing if the detector could not locate them.
type RawFace struct {
	Bounds BoundingBox
	Points map[Kind]Point
	Score  float32
}

// EstimateCheeks derives cheek points for detectors that only report eyes,
// nose and mouth corners. Each cheek sits between the eye and the mouth
// corner on its side, pushed outward by a tenth of the face width.
func EstimateCheeks(f *RawFace) {
	if f.Points == nil {
		return
	}
	push := f.Bounds.Width() * 0.1
	estimate := func(eye, mouth, cheek Kind, dir float32) {
		if _, ok := f.Points[cheek]; ok {
			return
		}
		e, okE := f.Points[eye]
		m, okM := f.Points[mouth]
		if !okE || !okM {
			return
		}
		c := e.Mid(m)
		c.X += dir * push
		f.Points[cheek] = c
	}
	// LeftEye is on the image left
	estimate(LeftEye, LeftMouth, LeftCheek, -1)
	estimate(RightEye, RightMouth, RightCheek, 1)
}
