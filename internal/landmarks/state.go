package landmarks

import (
	"sync/atomic"
	"time"
)

// Retention decides what happens to the published snapshot when a
// detection attempt finds no face
type Retention int

const (
	// RetainStale keeps the last confirmed snapshot
	RetainStale Retention = iota
	// ClearOnMiss drops the snapshot as soon as a detection finds nothing
	ClearOnMiss
)

// Published is the state visible to readers
type Published struct {
	FaceDetected bool      `json:"faceDetected"`
	Faces        int       `json:"faces"`
	Snapshot     *Snapshot `json:"snapshot,omitempty"`
	SnapshotSeq  uint64    `json:"snapshotSeq"`
	AttemptSeq   uint64    `json:"attemptSeq"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// State holds the latest Published value. Publish has a single writer;
// Load may be called from any goroutine.
type State struct {
	cur atomic.Pointer[Published]
}

func NewState() *State {
	s := &State{}
	s.cur.Store(&Published{})
	return s
}

// Load returns the current published state
func (s *State) Load() Published {
	return *s.cur.Load()
}

// Publish records the result of the detection attempt on frame seq
func (s *State) Publish(seq uint64, r Result, retention Retention) Published {
	prev := s.cur.Load()
	next := &Published{
		FaceDetected: r.FaceDetected,
		Faces:        r.Faces,
		Snapshot:     prev.Snapshot,
		SnapshotSeq:  prev.SnapshotSeq,
		AttemptSeq:   seq,
		UpdatedAt:    time.Now(),
	}
	switch {
	case r.Snapshot != nil:
		next.Snapshot = r.Snapshot
		next.SnapshotSeq = seq
	case retention == ClearOnMiss:
		next.Snapshot = nil
		next.SnapshotSeq = 0
	}
	s.cur.Store(next)
	return *next
}
