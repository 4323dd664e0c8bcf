// Package reshape builds landmark-anchored displacement fields for the
// advanced beauty adjustments (eye enlarge, face/chin/nose slimming).
package reshape

import (
	"math"

	"github.com/dudu/beautycam/internal/effects"
	"github.com/dudu/beautycam/internal/landmarks"
)

// Field maps every destination pixel to the source pixel it samples:
// src = (x + DX[i], y + DY[i]) with i = y*W + x.
type Field struct {
	W, H   int
	DX, DY []float32
}

func newField(w, h int) *Field {
	return &Field{W: w, H: h, DX: make([]float32, w*h), DY: make([]float32, w*h)}
}

// Source returns the sampling position for destination pixel (x, y)
func (f *Field) Source(x, y int) (float32, float32) {
	i := y*f.W + x
	return float32(x) + f.DX[i], float32(y) + f.DY[i]
}

// MaxDisplacement returns the largest displacement magnitude in the field
func (f *Field) MaxDisplacement() float64 {
	var m float64
	for i := range f.DX {
		if d := math.Hypot(float64(f.DX[i]), float64(f.DY[i])); d > m {
			m = d
		}
	}
	return m
}

type vec struct{ x, y float64 }

func toVec(p landmarks.Point) vec {
	return vec{float64(p.X), float64(p.Y)}
}

func strength(level int) float64 {
	return float64(level) / 10
}

// Build returns the combined field for adv over snap in a w x h frame.
// It reports false when nothing would move.
func Build(w, h int, snap *landmarks.Snapshot, adv effects.Advanced) (*Field, bool) {
	if w <= 0 || h <= 0 || snap == nil || adv.IsZero() {
		return nil, false
	}
	eyeDist := float64(snap.EyeDistance())
	if eyeDist <= 0 {
		return nil, false
	}

	f := newField(w, h)
	applied := false

	if adv.EyeEnlarge > 0 {
		amount := strength(adv.EyeEnlarge) * 0.35
		for _, k := range []landmarks.Kind{landmarks.LeftEye, landmarks.RightEye} {
			p, _ := snap.Point(k)
			f.bulge(toVec(p), eyeDist*0.45, amount)
		}
		applied = true
	}

	if adv.FaceSlim > 0 && snap.Has(landmarks.LeftCheek, landmarks.RightCheek, landmarks.NoseBase) {
		nose, _ := snap.Point(landmarks.NoseBase)
		for _, k := range []landmarks.Kind{landmarks.LeftCheek, landmarks.RightCheek} {
			c, _ := snap.Point(k)
			cv := toVec(c)
			nv := toVec(nose)
			s := strength(adv.FaceSlim) * 0.25
			f.shift(cv, eyeDist*0.8, vec{(nv.x - cv.x) * s, (nv.y - cv.y) * s})
		}
		applied = true
	}

	b := snap.Bounds()
	if adv.ChinSlim > 0 && b.Width() > 0 && b.Height() > 0 {
		bh := float64(b.Height())
		chin := vec{float64(b.Center().X), float64(b.Y2) - bh*0.08}
		f.shift(chin, float64(b.Width())*0.35, vec{0, -strength(adv.ChinSlim) * bh * 0.06})
		applied = true
	}

	if adv.NoseSlim > 0 && snap.Has(landmarks.NoseBase) {
		nose, _ := snap.Point(landmarks.NoseBase)
		f.bulge(toVec(nose), eyeDist*0.35, -strength(adv.NoseSlim)*0.25)
		applied = true
	}

	if !applied {
		return nil, false
	}
	return f, true
}

// bulge magnifies (amount > 0) or shrinks (amount < 0) a disc
func (f *Field) bulge(c vec, radius, amount float64) {
	f.each(c, radius, func(x, y int, dx, dy, r float64) (float64, float64) {
		k := amount * (1 - r*r)
		return -dx * k, -dy * k
	})
}

// shift drags the content of a disc along v with a smooth falloff
func (f *Field) shift(c vec, radius float64, v vec) {
	f.each(c, radius, func(x, y int, dx, dy, r float64) (float64, float64) {
		w := (1 - r*r) * (1 - r*r)
		return -v.x * w, -v.y * w
	})
}

// each visits pixels within radius of c and adds the returned displacement.
// r is the normalized distance in [0,1).
func (f *Field) each(c vec, radius float64, fn func(x, y int, dx, dy, r float64) (float64, float64)) {
	if radius <= 0 {
		return
	}
	x0 := max(0, int(math.Floor(c.x-radius)))
	x1 := min(f.W-1, int(math.Ceil(c.x+radius)))
	y0 := max(0, int(math.Floor(c.y-radius)))
	y1 := min(f.H-1, int(math.Ceil(c.y+radius)))

	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			dx := float64(x) - c.x
			dy := float64(y) - c.y
			r := math.Hypot(dx, dy) / radius
			if r >= 1 {
				continue
			}
			ox, oy := fn(x, y, dx, dy, r)
			i := y*f.W + x
			f.DX[i] += float32(ox)
			f.DY[i] += float32(oy)
		}
	}
}
