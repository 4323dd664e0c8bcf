package landmarks

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func face(offset float32) RawFace {
	return RawFace{
		Bounds: BoundingBox{X1: 100 + offset, Y1: 100, X2: 300 + offset, Y2: 340},
		Points: map[Kind]Point{
			LeftEye:    {X: 150 + offset, Y: 180},
			RightEye:   {X: 250 + offset, Y: 180},
			NoseBase:   {X: 200 + offset, Y: 240},
			LeftCheek:  {X: 140 + offset, Y: 250},
			RightCheek: {X: 260 + offset, Y: 250},
			LeftMouth:  {X: 170 + offset, Y: 290},
			RightMouth: {X: 230 + offset, Y: 290},
		},
		Score: 0.9,
	}
}

func TestBoundingBox(t *testing.T) {
	b := BoundingBox{X1: 10, Y1: 20, X2: 30, Y2: 60}
	require.Equal(t, float32(20), b.Width())
	require.Equal(t, float32(40), b.Height())
	require.Equal(t, Point{X: 20, Y: 40}, b.Center())
	require.Equal(t, float32(800), b.Area())
}

func TestExtractNoFaces(t *testing.T) {
	r := Extract(nil)
	require.False(t, r.FaceDetected)
	require.Zero(t, r.Faces)
	require.Nil(t, r.Snapshot)
}

func TestExtractSelectsFirstFace(t *testing.T) {
	first, second := face(0), face(500)
	r := Extract([]RawFace{first, second})

	require.True(t, r.FaceDetected)
	require.Equal(t, 2, r.Faces)
	require.Equal(t, first.Bounds, r.Snapshot.Bounds())
	require.Equal(t, first.Points, r.Snapshot.Points())
	require.Equal(t, float32(0.9), r.Snapshot.Score())
}

func TestExtractIsPure(t *testing.T) {
	in := []RawFace{face(0)}
	a, b := Extract(in), Extract(in)
	require.Equal(t, a.Snapshot.Points(), b.Snapshot.Points())
	require.NotSame(t, a.Snapshot, b.Snapshot)
}

func TestSnapshotDoesNotAliasInput(t *testing.T) {
	f := face(0)
	s := NewSnapshot(f)
	f.Points[LeftEye] = Point{X: -1, Y: -1}

	p, ok := s.Point(LeftEye)
	require.True(t, ok)
	require.Equal(t, Point{X: 150, Y: 180}, p)
}

func TestSnapshotMissingPoints(t *testing.T) {
	s := NewSnapshot(RawFace{Points: map[Kind]Point{LeftEye: {X: 1, Y: 2}}})
	require.True(t, s.Has(LeftEye))
	require.False(t, s.Has(LeftEye, RightEye))
	_, ok := s.Point(NoseBase)
	require.False(t, ok)
	require.Zero(t, s.EyeDistance())
	require.False(t, s.Has(Kind(42)))
}

func TestEyeDistance(t *testing.T) {
	s := NewSnapshot(face(0))
	require.InDelta(t, 100, s.EyeDistance(), 1e-4)
}

func TestEstimateCheeks(t *testing.T) {
	f := RawFace{
		Bounds: BoundingBox{X1: 0, Y1: 0, X2: 200, Y2: 200},
		Points: map[Kind]Point{
			LeftEye:    {X: 60, Y: 80},
			RightEye:   {X: 140, Y: 80},
			LeftMouth:  {X: 80, Y: 160},
			RightMouth: {X: 120, Y: 160},
		},
	}
	EstimateCheeks(&f)
	require.Equal(t, Point{X: 50, Y: 120}, f.Points[LeftCheek])
	require.Equal(t, Point{X: 150, Y: 120}, f.Points[RightCheek])

	// existing cheeks are kept
	f.Points[LeftCheek] = Point{X: 1, Y: 1}
	EstimateCheeks(&f)
	require.Equal(t, Point{X: 1, Y: 1}, f.Points[LeftCheek])
}

func TestSnapshotJSON(t *testing.T) {
	data, err := json.Marshal(NewSnapshot(face(0)))
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	points := out["points"].(map[string]any)
	require.Len(t, points, 7)
	require.Contains(t, points, "noseBase")
}

func TestPublishKeepsStaleSnapshotOnMiss(t *testing.T) {
	s := NewState()
	require.False(t, s.Load().FaceDetected)

	hit := s.Publish(3, Extract([]RawFace{face(0)}), RetainStale)
	require.True(t, hit.FaceDetected)
	require.Equal(t, uint64(3), hit.SnapshotSeq)

	miss := s.Publish(6, Extract(nil), RetainStale)
	require.False(t, miss.FaceDetected)
	require.Same(t, hit.Snapshot, miss.Snapshot)
	require.Equal(t, uint64(3), miss.SnapshotSeq)
	require.Equal(t, uint64(6), miss.AttemptSeq)
}

func TestPublishClearOnMiss(t *testing.T) {
	s := NewState()
	s.Publish(3, Extract([]RawFace{face(0)}), ClearOnMiss)

	miss := s.Publish(6, Extract(nil), ClearOnMiss)
	require.False(t, miss.FaceDetected)
	require.Nil(t, miss.Snapshot)
	require.Nil(t, s.Load().Snapshot)
}

func TestPublishReadersSeeWholeSnapshots(t *testing.T) {
	s := NewState()
	a, b := Extract([]RawFace{face(0)}), Extract([]RawFace{face(500)})

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				p := s.Load()
				if p.Snapshot == nil {
					continue
				}
				eye, _ := p.Snapshot.Point(LeftEye)
				nose, _ := p.Snapshot.Point(NoseBase)
				// both points come from the same face
				require.Equal(t, eye.X+50, nose.X)
			}
		}()
	}
	for seq := uint64(0); seq < 2000; seq++ {
		r := a
		if seq%2 == 1 {
			r = b
		}
		s.Publish(seq, r, RetainStale)
	}
	close(done)
	wg.Wait()
}
