package landmarks

import "encoding/json"

// Snapshot is the landmark model of one face from one detection pass.
// It is never modified after construction.
type Snapshot struct {
	bounds  BoundingBox
	points  [numKinds]Point
	present uint8
	score   float32
}

// NewSnapshot copies the points of f into a new snapshot
func NewSnapshot(f RawFace) *Snapshot {
	s := &Snapshot{bounds: f.Bounds, score: f.Score}
	for k, p := range f.Points {
		if k >= numKinds {
			continue
		}
		s.points[k] = p
		s.present |= 1 << k
	}
	return s
}

func (s *Snapshot) Bounds() BoundingBox {
	return s.bounds
}

func (s *Snapshot) Score() float32 {
	return s.score
}

// Has reports whether every kind in ks is present
func (s *Snapshot) Has(ks ...Kind) bool {
	for _, k := range ks {
		if k >= numKinds || s.present&(1<<k) == 0 {
			return false
		}
	}
	return true
}

// Point returns the point of kind k and whether it was detected
func (s *Snapshot) Point(k Kind) (Point, bool) {
	if !s.Has(k) {
		return Point{}, false
	}
	return s.points[k], true
}

// Points returns a copy of all present points
func (s *Snapshot) Points() map[Kind]Point {
	out := make(map[Kind]Point, numKinds)
	for k := Kind(0); k < numKinds; k++ {
		if s.Has(k) {
			out[k] = s.points[k]
		}
	}
	return out
}

// EyeDistance returns the distance between the eyes, or 0 if either is missing
func (s *Snapshot) EyeDistance() float32 {
	l, okL := s.Point(LeftEye)
	r, okR := s.Point(RightEye)
	if !okL || !okR {
		return 0
	}
	return distance(l, r)
}

type snapshotJSON struct {
	Bounds BoundingBox      `json:"bounds"`
	Points map[string]Point `json:"points"`
	Score  float32          `json:"score"`
}

func (s *Snapshot) MarshalJSON() ([]byte, error) {
	out := snapshotJSON{Bounds: s.bounds, Score: s.score, Points: make(map[string]Point)}
	for k, p := range s.Points() {
		out.Points[k.String()] = p
	}
	return json.Marshal(out)
}
