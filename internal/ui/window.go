// Package ui shows the live preview with stickers and status overlays and
// turns key presses into user intents.
package ui

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"gocv.io/x/gocv"

	"github.com/dudu/beautycam/internal/overlay"
)

var (
	green = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	red   = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Status is the text shown in the preview corner
type Status struct {
	FaceDetected bool
	Mode         string
	Filters      bool
	Preset       string
	Sticker      string
	Message      string
}

// Window manages the preview display
type Window struct {
	window     *gocv.Window
	name       string
	lastFrame  time.Time
	frameCount int
	fps        float64
}

// NewWindow creates a new preview window
func NewWindow(name string, width, height int) *Window {
	window := gocv.NewWindow(name)
	window.ResizeWindow(width, height)
	window.MoveWindow(100, 100)
	return &Window{
		window:    window,
		name:      name,
		lastFrame: time.Now(),
	}
}

// Show draws stickers and status on frame, displays it and updates the FPS counter
func (w *Window) Show(frame *gocv.Mat, cmds []overlay.Command, status Status) {
	w.frameCount++
	now := time.Now()
	if elapsed := now.Sub(w.lastFrame); elapsed >= time.Second {
		w.fps = float64(w.frameCount) / elapsed.Seconds()
		w.frameCount = 0
		w.lastFrame = now
	}

	for _, cmd := range cmds {
		drawSticker(frame, cmd)
	}

	indicator := red
	faceText := "no face"
	if status.FaceDetected {
		indicator = green
		faceText = "face"
	}
	gocv.Circle(frame, image.Pt(20, 25), 8, indicator, -1)
	gocv.PutText(frame, fmt.Sprintf("%s  FPS: %.1f", faceText, w.fps), image.Pt(36, 32),
		gocv.FontHersheyPlain, 1.6, indicator, 2)

	filters := "off"
	if status.Filters {
		filters = "on"
	}
	line := fmt.Sprintf("mode:%s filters:%s preset:%s sticker:%s", status.Mode, filters, orDash(status.Preset), status.Sticker)
	gocv.PutText(frame, line, image.Pt(10, 60), gocv.FontHersheyPlain, 1.3, white, 1)
	if status.Message != "" {
		gocv.PutText(frame, status.Message, image.Pt(10, frame.Rows()-20), gocv.FontHersheyPlain, 1.5, white, 2)
	}

	w.window.IMShow(*frame)
}

// WaitKey waits for key press, returns key code or -1
func (w *Window) WaitKey(delayMs int) int {
	return w.window.WaitKey(delayMs)
}

// FPS returns current frames per second
func (w *Window) FPS() float64 {
	return w.fps
}

// Close closes the window
func (w *Window) Close() error {
	if w.window != nil {
		return w.window.Close()
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
