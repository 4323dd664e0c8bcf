package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/dudu/beautycam/internal/effects"
	"github.com/dudu/beautycam/internal/logging"
)

// Config holds finisher configuration
type Config struct {
	// OnFinish is called after every successful capture
	OnFinish func(*StillCapture)
	Now      func() time.Time
}

// Finisher runs the capture path: still, effects, save. It keeps every
// finished capture until dismissed.
type Finisher struct {
	config    Config
	capturer  Capturer
	processor Processor
	writer    Writer
	captures  cmap.ConcurrentMap[string, *StillCapture]
	log       *slog.Logger
}

func NewFinisher(config Config, capturer Capturer, processor Processor, writer Writer) *Finisher {
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Finisher{
		config:    config,
		capturer:  capturer,
		processor: processor,
		writer:    writer,
		captures:  cmap.New[*StillCapture](),
		log:       logging.GetLogger().With("component", "capture"),
	}
}

// OutputName returns the file name for a capture taken at t
func OutputName(t time.Time) string {
	return fmt.Sprintf("BeautyCamera_%d.jpg", t.UnixMilli())
}

// Finish captures, processes and saves one photo. Effect failures fall back
// to the original frame; capture and save failures are returned.
func (f *Finisher) Finish(ctx context.Context, req Request) (*StillCapture, error) {
	original, err := f.capturer.CaptureStill(ctx, req.Quality, req.Flash)
	if err != nil {
		return nil, fmt.Errorf("failed to capture still: %w", err)
	}

	now := f.config.Now()
	sc := &StillCapture{
		ID:        uuid.NewString(),
		Original:  original,
		Processed: original,
		Params:    req.Params,
		CreatedAt: now,
	}

	if req.needsProcessing() {
		params := req.Params.ForMode(req.Mode)
		if !req.FiltersEnabled {
			params = onlyAdvanced(params)
		}
		processed, err := f.processor.ApplyEffects(ctx, original, params, req.Snapshot)
		if err != nil {
			f.log.Warn("Effect processing failed, keeping original", "error", err)
			sc.Degraded = true
			sc.Reason = err.Error()
		} else {
			sc.Processed = processed
		}
	}

	location, err := f.writer.WriteImage(ctx, sc.Processed, OutputName(now))
	if err != nil {
		return nil, fmt.Errorf("failed to save capture: %w", err)
	}
	sc.Location = location

	f.captures.Set(sc.ID, sc)
	f.log.Info("Saved capture", "id", sc.ID, "location", location, "degraded", sc.Degraded)
	if f.config.OnFinish != nil {
		f.config.OnFinish(sc)
	}
	return sc, nil
}

// FinishAsync runs Finish on its own goroutine
func (f *Finisher) FinishAsync(ctx context.Context, req Request) <-chan Outcome {
	out := make(chan Outcome, 1)
	go func() {
		sc, err := f.Finish(ctx, req)
		out <- Outcome{Capture: sc, Err: err}
		close(out)
	}()
	return out
}

// Get returns a retained capture
func (f *Finisher) Get(id string) (*StillCapture, bool) {
	return f.captures.Get(id)
}

// List returns retained captures, oldest first
func (f *Finisher) List() []*StillCapture {
	out := make([]*StillCapture, 0, f.captures.Count())
	for _, sc := range f.captures.Items() {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Dismiss forgets a capture. The saved photo is not touched.
func (f *Finisher) Dismiss(id string) bool {
	_, ok := f.captures.Pop(id)
	return ok
}

// onlyAdvanced keeps the reshaping block and neutralizes color adjustments
func onlyAdvanced(p effects.Parameters) effects.Parameters {
	n := effects.Neutral()
	n.Advanced = p.Advanced
	return n
}
