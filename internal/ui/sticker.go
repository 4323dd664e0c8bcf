package ui

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"github.com/dudu/beautycam/internal/overlay"
)

// Hershey fonts have no emoji, so every sticker is drawn from primitives

var (
	black = color.RGBA{A: 255}
	gold  = color.RGBA{R: 0, G: 200, B: 255, A: 255}
	pink  = color.RGBA{R: 180, G: 120, B: 255, A: 255}
	brown = color.RGBA{R: 30, G: 60, B: 90, A: 255}
	ivory = color.RGBA{R: 230, G: 240, B: 250, A: 255}
)

func drawSticker(frame *gocv.Mat, cmd overlay.Command) {
	c := image.Pt(int(cmd.X), int(cmd.Y))
	w, h := cmd.Width, cmd.Height
	cos, sin := math.Cos(cmd.Rotation), math.Sin(cmd.Rotation)
	// rotate an offset from the sticker center
	at := func(dx, dy float64) image.Point {
		return image.Pt(int(cmd.X+dx*cos-dy*sin), int(cmd.Y+dx*sin+dy*cos))
	}
	deg := cmd.Rotation * 180 / math.Pi

	switch cmd.Sticker {
	case "glasses", "sunglasses":
		r := int(h / 2)
		thickness := 3
		if cmd.Sticker == "sunglasses" {
			thickness = -1
		}
		l, rr := at(-w/4, 0), at(w/4, 0)
		gocv.Circle(frame, l, r, black, thickness)
		gocv.Circle(frame, rr, r, black, thickness)
		gocv.Line(frame, at(-w/4+h/2, 0), at(w/4-h/2, 0), black, 3)

	case "crown":
		pts := [][2]float64{{-w / 2, h / 2}, {-w / 2, -h / 2}, {-w / 4, 0}, {0, -h / 2}, {w / 4, 0}, {w / 2, -h / 2}, {w / 2, h / 2}}
		fillPoly(frame, at, pts, gold)

	case "catEars":
		for _, side := range []float64{-1, 1} {
			pts := [][2]float64{{side * w / 2, h / 2}, {side * w * 0.4, -h / 2}, {side * w * 0.15, h / 2}}
			fillPoly(frame, at, pts, brown)
		}

	case "bunnyEars":
		for _, side := range []float64{-1, 1} {
			center := at(side*w/5, 0)
			axes := image.Pt(int(w/10), int(h/2))
			gocv.EllipseWithParams(frame, center, axes, deg, 0, 360, ivory, -1, gocv.LineAA, 0)
			gocv.EllipseWithParams(frame, center, image.Pt(axes.X/2, axes.Y*3/4), deg, 0, 360, pink, -1, gocv.LineAA, 0)
		}

	case "mustache":
		for _, side := range []float64{-1, 1} {
			gocv.EllipseWithParams(frame, at(side*w/4, 0), image.Pt(int(w/4), int(h/2)), deg, 0, 360, brown, -1, gocv.LineAA, 0)
		}

	case "blush":
		blend(frame, func(layer *gocv.Mat) {
			gocv.EllipseWithParams(layer, c, image.Pt(int(w/2), int(h/2)), 0, 0, 360, pink, -1, gocv.LineAA, 0)
		}, cmd.Opacity)

	case "hearts":
		r := int(w / 4)
		gocv.Circle(frame, at(-w/4, -h/8), r, pink, -1)
		gocv.Circle(frame, at(w/4, -h/8), r, pink, -1)
		fillPoly(frame, at, [][2]float64{{-w / 2, 0}, {w / 2, 0}, {0, h / 2}}, pink)
	}
}

func fillPoly(frame *gocv.Mat, at func(dx, dy float64) image.Point, offsets [][2]float64, c color.RGBA) {
	pts := make([]image.Point, len(offsets))
	for i, o := range offsets {
		pts[i] = at(o[0], o[1])
	}
	pv := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
	defer pv.Close()
	gocv.FillPoly(frame, pv, c)
}

// blend draws on a copy of frame and mixes it back with the given opacity
func blend(frame *gocv.Mat, draw func(layer *gocv.Mat), opacity float64) {
	layer := frame.Clone()
	defer layer.Close()
	draw(&layer)
	gocv.AddWeighted(layer, opacity, *frame, 1-opacity, 0, frame)
}
