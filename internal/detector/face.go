// Package detector runs the ONNX face models and reports faces as
// detector-neutral landmark output.
package detector

import (
	"context"
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/dudu/beautycam/internal/landmarks"
)

// Config holds detector configuration
type Config struct {
	ModelPath     string
	LandmarkPath  string // optional
	InputSize     int
	ConfThreshold float32
	NMSThreshold  float32
}

// FaceDetector combines SCRFD with the optional 106-point model
type FaceDetector struct {
	scrfd    *SCRFD
	landmark *Landmark106
}

// New creates the detector. inference.Initialize must have been called.
func New(config Config) (*FaceDetector, error) {
	scrfd, err := NewSCRFD(config.ModelPath, config.InputSize, config.ConfThreshold, config.NMSThreshold)
	if err != nil {
		return nil, err
	}
	d := &FaceDetector{scrfd: scrfd}

	if config.LandmarkPath != "" {
		d.landmark, err = NewLandmark106(config.LandmarkPath)
		if err != nil {
			scrfd.Close()
			return nil, err
		}
	}
	return d, nil
}

// Detect finds faces in frame. Only the first face gets 106-point landmarks.
func (d *FaceDetector) Detect(ctx context.Context, frame gocv.Mat) ([]landmarks.RawFace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	faces, err := d.scrfd.Detect(frame)
	if err != nil {
		return nil, fmt.Errorf("detection failed: %w", err)
	}

	if d.landmark != nil && len(faces) > 0 {
		if err := d.landmark.Detect(frame, &faces[0]); err != nil {
			// cheeks fall back to the estimate
			faces[0].Landmarks106 = nil
		}
	}

	out := make([]landmarks.RawFace, len(faces))
	for i, f := range faces {
		out[i] = f.Raw()
	}
	return out, nil
}

// Close releases detector resources
func (d *FaceDetector) Close() error {
	var errs []error
	if d.scrfd != nil {
		errs = append(errs, d.scrfd.Close())
	}
	if d.landmark != nil {
		errs = append(errs, d.landmark.Close())
	}
	return errors.Join(errs...)
}
