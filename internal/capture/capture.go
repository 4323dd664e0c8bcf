// Package capture turns a capture event into a saved photo, keeping the
// original and the final frame around for before/after viewing.
package capture

import (
	"context"
	"errors"
	"time"

	"github.com/dudu/beautycam/internal/effects"
	"github.com/dudu/beautycam/internal/landmarks"
)

var (
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrDeviceBusy       = errors.New("camera device busy")
	ErrNotFound         = errors.New("capture not found")
	ErrInvalidWidth     = errors.New("invalid preview width")
)

// Quality is a hint to the still-capture device
type Quality string

const (
	QualityBest     Quality = "quality"
	QualityBalanced Quality = "balanced"
	QualitySpeed    Quality = "speed"
)

type Flash string

const (
	FlashOff  Flash = "off"
	FlashOn   Flash = "on"
	FlashAuto Flash = "auto"
)

// Capturer grabs a still frame and returns a local file handle for it
type Capturer interface {
	CaptureStill(ctx context.Context, quality Quality, flash Flash) (string, error)
}

// Processor applies effect parameters to a still frame and returns a new handle.
// snap may be nil; reshaping is skipped then.
type Processor interface {
	ApplyEffects(ctx context.Context, src string, params effects.Parameters, snap *landmarks.Snapshot) (string, error)
}

// Writer persists a frame under name and returns where it was stored
type Writer interface {
	WriteImage(ctx context.Context, src, name string) (string, error)
}

// Request carries the state captured at the moment the shutter was pressed
type Request struct {
	Params         effects.Parameters
	Mode           effects.Mode
	FiltersEnabled bool
	Snapshot       *landmarks.Snapshot
	Quality        Quality
	Flash          Flash
}

// needsProcessing reports whether any effect applies to the still
func (r Request) needsProcessing() bool {
	if r.FiltersEnabled {
		return true
	}
	return r.Mode == effects.ModeAdvanced && !r.Params.Advanced.IsZero()
}

// StillCapture is one finished capture event
type StillCapture struct {
	ID string `json:"id"`
	// Original is the unmodified still frame
	Original string `json:"original"`
	// Processed equals Original when no processing ran or it failed
	Processed string             `json:"processed"`
	Location  string             `json:"location"`
	Params    effects.Parameters `json:"params"`
	Degraded  bool               `json:"degraded"`
	Reason    string             `json:"reason,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
}

// Outcome is delivered by FinishAsync
type Outcome struct {
	Capture *StillCapture
	Err     error
}
