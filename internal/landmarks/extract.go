package landmarks

import "math"

// Result is the outcome of one detection attempt
type Result struct {
	FaceDetected bool
	Faces        int
	// Snapshot is nil when no face was found
	Snapshot *Snapshot
}

// Extract selects the first reported face as primary. Ordering is whatever
// the detector returned; there is no tracking between frames.
func Extract(faces []RawFace) Result {
	if len(faces) == 0 {
		return Result{}
	}
	return Result{
		FaceDetected: true,
		Faces:        len(faces),
		Snapshot:     NewSnapshot(faces[0]),
	}
}

func distance(a, b Point) float32 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return float32(math.Hypot(dx, dy))
}
