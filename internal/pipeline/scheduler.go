// Package pipeline decides which camera frames are sent to the face
// detector and publishes the results to the shared landmark state.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dudu/beautycam/internal/landmarks"
	"github.com/dudu/beautycam/internal/logging"
)

// DefaultInterval samples every third frame
const DefaultInterval = 3

// Config holds scheduler configuration
type Config[T any] struct {
	// Interval is the sampling period in frames. Zero means DefaultInterval.
	Interval  uint64
	Retention landmarks.Retention
	// Retain is called before a frame is handed to the background detector
	// and must return a buffer the caller no longer owns (e.g. a clone).
	Retain func(T) T
	// Release is called once the detector is done with a retained buffer
	Release func(T)
	// OnPublish is called after every published detection. It runs on the
	// detection goroutine and must not block.
	OnPublish func(landmarks.Published)
}

// Stats holds counters since the scheduler was created
type Stats struct {
	Frames        uint64        `json:"frames"`
	Sampled       uint64        `json:"sampled"`
	Detections    uint64        `json:"detections"`
	Errors        uint64        `json:"errors"`
	Dropped       uint64        `json:"dropped"`
	LastDetection time.Duration `json:"lastDetection"`
}

// Scheduler samples frames for detection. It never blocks frame delivery:
// Offer hands a frame to Run through a one-slot queue and drops it if the
// detector is still busy.
type Scheduler[T any] struct {
	config   Config[T]
	detector Detector[T]
	state    *landmarks.State
	settings *SettingsStore
	queue    chan Frame[T]
	stopped  atomic.Bool
	log      *slog.Logger

	frames, sampled, detections, errors, dropped atomic.Uint64
	lastDetection                                atomic.Int64
}

// NewScheduler creates a scheduler publishing to state
func NewScheduler[T any](config Config[T], det Detector[T], state *landmarks.State, settings *SettingsStore) *Scheduler[T] {
	if config.Interval == 0 {
		config.Interval = DefaultInterval
	}
	return &Scheduler[T]{
		config:   config,
		detector: det,
		state:    state,
		settings: settings,
		queue:    make(chan Frame[T], 1),
		log:      logging.GetLogger().With("component", "scheduler"),
	}
}

// ShouldDetect is the sampling and gating decision for one frame
func (s *Scheduler[T]) ShouldDetect(seq uint64, settings Settings) bool {
	return settings.DetectionEnabled() && seq%s.config.Interval == 0
}

// Step runs the decision and, if selected, the detection inline.
// It reports whether the detector was invoked.
func (s *Scheduler[T]) Step(ctx context.Context, frame Frame[T]) bool {
	s.frames.Add(1)
	if !s.ShouldDetect(frame.Seq, s.settings.Load()) {
		return false
	}
	s.sampled.Add(1)
	s.detect(ctx, frame)
	return true
}

// Offer queues a sampled frame for Run. It reports whether the frame was
// accepted; frames that are not sampled or arrive while the queue is full
// are skipped without blocking. Once Run has returned nothing is accepted.
func (s *Scheduler[T]) Offer(frame Frame[T]) bool {
	s.frames.Add(1)
	if !s.ShouldDetect(frame.Seq, s.settings.Load()) {
		return false
	}
	s.sampled.Add(1)
	if s.stopped.Load() {
		s.dropped.Add(1)
		return false
	}

	if s.config.Retain != nil {
		frame.Buffer = s.config.Retain(frame.Buffer)
	}
	select {
	case s.queue <- frame:
		// Run may have drained the queue between the check above and the send
		if s.stopped.Load() {
			s.drain()
			return false
		}
		return true
	default:
		s.dropped.Add(1)
		s.release(frame.Buffer)
		return false
	}
}

// Run consumes frames accepted by Offer until ctx is done
func (s *Scheduler[T]) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.stopped.Store(true)
			s.drain()
			return ctx.Err()
		case frame := <-s.queue:
			// Settings may have changed while the frame was queued
			if s.settings.Load().DetectionEnabled() {
				s.detect(ctx, frame)
			}
			s.release(frame.Buffer)
		}
	}
}

// Stats returns a copy of the counters
func (s *Scheduler[T]) Stats() Stats {
	return Stats{
		Frames:        s.frames.Load(),
		Sampled:       s.sampled.Load(),
		Detections:    s.detections.Load(),
		Errors:        s.errors.Load(),
		Dropped:       s.dropped.Load(),
		LastDetection: time.Duration(s.lastDetection.Load()),
	}
}

func (s *Scheduler[T]) detect(ctx context.Context, frame Frame[T]) {
	start := time.Now()
	faces, err := s.safeDetect(ctx, frame.Buffer)
	s.lastDetection.Store(int64(time.Since(start)))
	s.detections.Add(1)

	if err != nil {
		s.errors.Add(1)
		s.log.Warn("Detection failed", "seq", frame.Seq, "error", err)
		return
	}

	published := s.state.Publish(frame.Seq, landmarks.Extract(faces), s.config.Retention)
	if s.config.OnPublish != nil {
		s.config.OnPublish(published)
	}
}

func (s *Scheduler[T]) safeDetect(ctx context.Context, buf T) (faces []landmarks.RawFace, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("detector panic: %v", r)
		}
	}()
	return s.detector.Detect(ctx, buf)
}

func (s *Scheduler[T]) release(buf T) {
	if s.config.Release != nil {
		s.config.Release(buf)
	}
}

func (s *Scheduler[T]) drain() {
	for {
		select {
		case frame := <-s.queue:
			s.release(frame.Buffer)
		default:
			return
		}
	}
}
