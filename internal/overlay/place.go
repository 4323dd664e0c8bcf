package overlay

import (
	"math"

	"github.com/dudu/beautycam/internal/landmarks"
)

// Size is a width/height pair in pixels
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Command is one sticker draw instruction in screen coordinates.
// X and Y are the center of the sticker.
type Command struct {
	Sticker  string  `json:"sticker"`
	Glyph    string  `json:"glyph"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"`
	Opacity  float64 `json:"opacity"`
}

type vec struct{ x, y float64 }

type mapper struct {
	sx, sy float64
}

func (m mapper) pt(p landmarks.Point) vec {
	return vec{float64(p.X) * m.sx, float64(p.Y) * m.sy}
}

func mid(a, b vec) vec {
	return vec{(a.x + b.x) / 2, (a.y + b.y) / 2}
}

func dist(a, b vec) float64 {
	return math.Hypot(b.x-a.x, b.y-a.y)
}

// Place computes draw commands for st over snap. phase is the animation
// position in [0,1). It reports false when the landmarks the sticker needs
// are missing or the sizes are degenerate.
func Place(st Sticker, snap *landmarks.Snapshot, frame, screen Size, phase float64) ([]Command, bool) {
	if st.Key == None || snap == nil || frame.W <= 0 || frame.H <= 0 || screen.W <= 0 || screen.H <= 0 {
		return nil, false
	}
	m := mapper{sx: screen.W / frame.W, sy: screen.H / frame.H}

	pulse := 1.0
	if st.Style == StyleAnimated {
		pulse = 1 + 0.08*math.Sin(2*math.Pi*phase)
	}
	cmd := func(c vec, w, h, rot float64) Command {
		return Command{
			Sticker:  st.Key,
			Glyph:    st.Glyph,
			X:        c.x,
			Y:        c.y,
			Width:    w * pulse,
			Height:   h * pulse,
			Rotation: rot,
			Opacity:  1,
		}
	}

	b := snap.Bounds()
	faceW := float64(b.Width()) * m.sx
	faceH := float64(b.Height()) * m.sy

	switch st.Anchor {
	case AnchorEyes:
		if !snap.Has(landmarks.LeftEye, landmarks.RightEye) {
			return nil, false
		}
		l, _ := snap.Point(landmarks.LeftEye)
		r, _ := snap.Point(landmarks.RightEye)
		lv, rv := m.pt(l), m.pt(r)
		d := dist(lv, rv)
		if d == 0 {
			return nil, false
		}
		w := d * st.Scale
		return []Command{cmd(mid(lv, rv), w, w*0.45, roll(lv, rv))}, true

	case AnchorFaceTop:
		if faceW <= 0 || faceH <= 0 {
			return nil, false
		}
		w := faceW * st.Scale
		h := w * 0.6
		c := vec{float64(b.Center().X) * m.sx, float64(b.Y1)*m.sy - h*0.35}
		return []Command{cmd(c, w, h, eyeRoll(snap, m))}, true

	case AnchorMouth:
		if !snap.Has(landmarks.NoseBase, landmarks.LeftMouth, landmarks.RightMouth) {
			return nil, false
		}
		n, _ := snap.Point(landmarks.NoseBase)
		lm, _ := snap.Point(landmarks.LeftMouth)
		rm, _ := snap.Point(landmarks.RightMouth)
		lv, rv := m.pt(lm), m.pt(rm)
		d := dist(lv, rv)
		if d == 0 {
			return nil, false
		}
		w := d * st.Scale
		return []Command{cmd(mid(m.pt(n), mid(lv, rv)), w, w*0.4, roll(lv, rv))}, true

	case AnchorCheeks:
		if !snap.Has(landmarks.LeftCheek, landmarks.RightCheek) {
			return nil, false
		}
		lc, _ := snap.Point(landmarks.LeftCheek)
		rc, _ := snap.Point(landmarks.RightCheek)
		lv, rv := m.pt(lc), m.pt(rc)
		base := dist(lv, rv) / 2
		if ed := float64(snap.EyeDistance()) * m.sx; ed > 0 {
			base = ed
		}
		w := base * st.Scale
		if w <= 0 {
			return nil, false
		}
		out := []Command{cmd(lv, w, w*0.6, 0), cmd(rv, w, w*0.6, 0)}
		for i := range out {
			out[i].Opacity = 0.6
		}
		return out, true

	case AnchorFace:
		if faceW <= 0 || faceH <= 0 {
			return nil, false
		}
		c := vec{float64(b.Center().X) * m.sx, float64(b.Center().Y) * m.sy}
		radius := math.Max(faceW, faceH) * 0.65
		w := faceW * st.Scale
		const count = 3
		out := make([]Command, 0, count)
		for i := 0; i < count; i++ {
			a := 2*math.Pi*phase + float64(i)*2*math.Pi/count
			p := vec{c.x + radius*math.Cos(a), c.y + radius*math.Sin(a)}
			out = append(out, cmd(p, w, w, 0))
		}
		return out, true
	}
	return nil, false
}

func roll(l, r vec) float64 {
	return math.Atan2(r.y-l.y, r.x-l.x)
}

// eyeRoll tilts head-anchored stickers with the eye line when available
func eyeRoll(snap *landmarks.Snapshot, m mapper) float64 {
	l, okL := snap.Point(landmarks.LeftEye)
	r, okR := snap.Point(landmarks.RightEye)
	if !okL || !okR {
		return 0
	}
	return roll(m.pt(l), m.pt(r))
}
