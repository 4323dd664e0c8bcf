package pipeline

import (
	"context"

	"github.com/dudu/beautycam/internal/landmarks"
)

// Detector finds candidate faces in one frame
type Detector[T any] interface {
	Detect(ctx context.Context, frame T) ([]landmarks.RawFace, error)
}

// DetectorFunc adapts a function to Detector
type DetectorFunc[T any] func(ctx context.Context, frame T) ([]landmarks.RawFace, error)

func (f DetectorFunc[T]) Detect(ctx context.Context, frame T) ([]landmarks.RawFace, error) {
	return f(ctx, frame)
}

// Frame is one camera frame. Seq increases by one per delivered frame.
type Frame[T any] struct {
	Seq       uint64
	Timestamp int64 // unix nanoseconds
	Buffer    T
}
