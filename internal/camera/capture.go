// Package camera reads frames from a webcam and serves still captures.
package camera

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/dudu/beautycam/internal/capture"
	"github.com/dudu/beautycam/internal/logging"
)

// Config holds camera configuration
type Config struct {
	Front, Back   int
	Facing        string // "front" or "back"
	Width, Height int
	FPS           int
	// CacheDir receives still captures
	CacheDir    string
	JPEGQuality int
}

// Capture manages webcam capture. Frames are numbered from zero; the
// counter keeps running across camera switches.
type Capture struct {
	config  Config
	webcam  *gocv.VideoCapture
	facing  string
	width   int
	height  int
	seq     uint64
	last    gocv.Mat
	hasLast bool
	mu      sync.Mutex
}

// NewCapture opens the camera for config.Facing
func NewCapture(config Config) (*Capture, error) {
	c := &Capture{config: config, last: gocv.NewMat()}
	if err := c.open(config.Facing); err != nil {
		c.last.Close()
		return nil, err
	}
	return c, nil
}

func (c *Capture) deviceFor(facing string) int {
	if facing == "back" {
		return c.config.Back
	}
	return c.config.Front
}

// open must be called with mu held or before the capture is shared
func (c *Capture) open(facing string) error {
	deviceID := c.deviceFor(facing)
	webcam, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return fmt.Errorf("failed to open camera %d: %w", deviceID, err)
	}
	if !webcam.IsOpened() {
		webcam.Close()
		// macOS and most Linux setups report a denied device this way
		return fmt.Errorf("camera %d: %w", deviceID, capture.ErrPermissionDenied)
	}

	webcam.Set(gocv.VideoCaptureFrameWidth, float64(c.config.Width))
	webcam.Set(gocv.VideoCaptureFrameHeight, float64(c.config.Height))
	webcam.Set(gocv.VideoCaptureFPS, float64(c.config.FPS))

	// camera may not support the requested resolution
	c.width = int(webcam.Get(gocv.VideoCaptureFrameWidth))
	c.height = int(webcam.Get(gocv.VideoCaptureFrameHeight))
	c.webcam = webcam
	c.facing = facing

	logging.GetLogger().Info("Camera opened", "device", deviceID, "facing", facing, "width", c.width, "height", c.height)
	return nil
}

// Read captures a frame into the provided Mat and returns its sequence number
func (c *Capture) Read(frame *gocv.Mat) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.webcam == nil || !c.webcam.Read(frame) || frame.Empty() {
		return 0, false
	}
	if err := frame.CopyTo(&c.last); err != nil {
		return 0, false
	}
	c.hasLast = true

	seq := c.seq
	c.seq++
	return seq, true
}

// Switch closes the current device and opens the one facing the other way.
// On failure the previous device is reopened.
func (c *Capture) Switch() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := "back"
	if c.facing == "back" {
		next = "front"
	}
	prev := c.facing
	if c.webcam != nil {
		c.webcam.Close()
		c.webcam = nil
	}
	c.hasLast = false

	if err := c.open(next); err != nil {
		if reopenErr := c.open(prev); reopenErr != nil {
			return prev, fmt.Errorf("switch failed: %w (reopen: %v)", err, reopenErr)
		}
		return prev, fmt.Errorf("switch failed: %w", err)
	}
	return next, nil
}

// CaptureStill writes the most recent frame to the cache directory
func (c *Capture) CaptureStill(ctx context.Context, quality capture.Quality, flash capture.Flash) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	if c.webcam == nil || !c.hasLast {
		c.mu.Unlock()
		return "", capture.ErrDeviceBusy
	}
	still := c.last.Clone()
	c.mu.Unlock()
	defer still.Close()

	if flash != "" && flash != capture.FlashOff {
		logging.GetLogger().Debug("Flash is not supported by webcams", "flash", flash)
	}

	if err := os.MkdirAll(c.config.CacheDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache dir: %w", err)
	}
	path := filepath.Join(c.config.CacheDir, fmt.Sprintf("still_%d.jpg", time.Now().UnixNano()))
	if !gocv.IMWriteWithParams(path, still, []int{gocv.IMWriteJpegQuality, jpegQuality(quality, c.config.JPEGQuality)}) {
		return "", fmt.Errorf("failed to write still to %s", path)
	}
	return path, nil
}

func jpegQuality(q capture.Quality, best int) int {
	switch q {
	case capture.QualitySpeed:
		return min(best, 70)
	case capture.QualityBalanced:
		return min(best, 85)
	}
	return best
}

// Facing returns "front" or "back"
func (c *Capture) Facing() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.facing
}

// Width returns frame width
func (c *Capture) Width() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width
}

// Height returns frame height
func (c *Capture) Height() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.height
}

// Close releases the camera
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.last.Close()
	if c.webcam != nil {
		err := c.webcam.Close()
		c.webcam = nil
		return err
	}
	return nil
}
