package detector

import "github.com/dudu/beautycam/internal/landmarks"

// Point and BoundingBox are shared with the landmark model
type (
	Point       = landmarks.Point
	BoundingBox = landmarks.BoundingBox
)

// FivePoint holds the SCRFD keypoints
type FivePoint struct {
	LeftEye    Point // index 0
	RightEye   Point // index 1
	Nose       Point // index 2
	LeftMouth  Point // index 3
	RightMouth Point // index 4
}

// Landmarks106 represents 106 facial landmark points from insightface
type Landmarks106 [106]Point

// contour indices 0-32 trace the jaw line
const contourPoints = 33

// Cheeks picks one contour point per side at the height between the eyes
// and the mouth, and moves it a third of the way toward the nose.
func (l *Landmarks106) Cheeks(five FivePoint) (left, right Point, ok bool) {
	targetY := (five.LeftEye.Y + five.LeftMouth.Y + five.RightEye.Y + five.RightMouth.Y) / 4
	nose := five.Nose

	var bestL, bestR = -1, -1
	var distL, distR float32
	for i := 0; i < contourPoints; i++ {
		p := l[i]
		d := abs32(p.Y - targetY)
		if p.X < nose.X {
			if bestL < 0 || d < distL {
				bestL, distL = i, d
			}
		} else if bestR < 0 || d < distR {
			bestR, distR = i, d
		}
	}
	if bestL < 0 || bestR < 0 {
		return Point{}, Point{}, false
	}
	toward := func(p Point) Point {
		return Point{X: p.X + (nose.X-p.X)/3, Y: p.Y + (nose.Y-p.Y)/3}
	}
	return toward(l[bestL]), toward(l[bestR]), true
}

// Face represents a detected face
type Face struct {
	BoundingBox  BoundingBox
	Landmarks    FivePoint     // 5-point from SCRFD
	Landmarks106 *Landmarks106 // 106-point from 2d106det (optional)
	Score        float32
}

// Raw converts the face into detector-neutral landmark output. Cheeks come
// from the 106-point contour when present and are estimated otherwise.
func (f Face) Raw() landmarks.RawFace {
	raw := landmarks.RawFace{
		Bounds: f.BoundingBox,
		Score:  f.Score,
		Points: map[landmarks.Kind]landmarks.Point{
			landmarks.LeftEye:    f.Landmarks.LeftEye,
			landmarks.RightEye:   f.Landmarks.RightEye,
			landmarks.NoseBase:   f.Landmarks.Nose,
			landmarks.LeftMouth:  f.Landmarks.LeftMouth,
			landmarks.RightMouth: f.Landmarks.RightMouth,
		},
	}
	if f.Landmarks106 != nil {
		if l, r, ok := f.Landmarks106.Cheeks(f.Landmarks); ok {
			raw.Points[landmarks.LeftCheek] = l
			raw.Points[landmarks.RightCheek] = r
		}
	}
	landmarks.EstimateCheeks(&raw)
	return raw
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
