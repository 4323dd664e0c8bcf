package effects

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrUnknownField = errors.New("unknown effect field")
	ErrUnknownMode  = errors.New("unknown beauty mode")
)

// Mode selects between the lightweight and the landmark-dependent parameter set
type Mode string

const (
	ModeBasic    Mode = "basic"
	ModeAdvanced Mode = "advanced"
)

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeBasic:
		return ModeBasic, nil
	case ModeAdvanced:
		return ModeAdvanced, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Field names a single adjustable parameter
type Field string

const (
	Smoothing  Field = "smoothing"
	Brightness Field = "brightness"
	Saturation Field = "saturation"
	Contrast   Field = "contrast"
	Warmth     Field = "warmth"
	EyeEnlarge Field = "eyeEnlarge"
	FaceSlim   Field = "faceSlim"
	ChinSlim   Field = "chinSlim"
	NoseSlim   Field = "noseSlim"
)

// Range is the closed interval a field is clamped to
type Range struct {
	Min, Max float64
	Integer  bool
}

var ranges = map[Field]Range{
	Smoothing:  {Min: 0, Max: 10, Integer: true},
	Brightness: {Min: -30, Max: 30},
	Saturation: {Min: 0.5, Max: 2.0},
	Contrast:   {Min: 0.5, Max: 2.0},
	Warmth:     {Min: -1, Max: 1},
	EyeEnlarge: {Min: 0, Max: 10, Integer: true},
	FaceSlim:   {Min: 0, Max: 10, Integer: true},
	ChinSlim:   {Min: 0, Max: 10, Integer: true},
	NoseSlim:   {Min: 0, Max: 10, Integer: true},
}

// Fields returns every field in display order
func Fields() []Field {
	return []Field{Smoothing, Brightness, Saturation, Contrast, Warmth, EyeEnlarge, FaceSlim, ChinSlim, NoseSlim}
}

// ParseField resolves a field name (case-insensitive)
func ParseField(s string) (Field, error) {
	for _, f := range Fields() {
		if strings.EqualFold(string(f), strings.TrimSpace(s)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// RangeOf returns the declared range of a field
func RangeOf(f Field) (Range, bool) {
	r, ok := ranges[f]
	return r, ok
}

// Clamp bounds v to the range. NaN maps to fallback.
func (r Range) Clamp(v, fallback float64) float64 {
	if math.IsNaN(v) {
		v = fallback
	}
	if math.IsNaN(v) {
		v = r.Min
	}
	if r.Integer {
		v = math.Round(v)
	}
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Advanced holds the landmark-driven reshaping strengths. Zero is a no-op.
type Advanced struct {
	EyeEnlarge int `json:"eyeEnlarge"`
	FaceSlim   int `json:"faceSlim"`
	ChinSlim   int `json:"chinSlim"`
	NoseSlim   int `json:"noseSlim"`
}

// IsZero reports whether no reshaping is requested
func (a Advanced) IsZero() bool {
	return a == Advanced{}
}

// Parameters is one complete set of beauty/color adjustments
type Parameters struct {
	Smoothing  int      `json:"smoothing"`
	Brightness float64  `json:"brightness"`
	Saturation float64  `json:"saturation"`
	Contrast   float64  `json:"contrast"`
	Warmth     float64  `json:"warmth"`
	Advanced   Advanced `json:"advanced"`
}

// Defaults returns the parameters the camera starts with
func Defaults() Parameters {
	return Parameters{
		Smoothing:  5,
		Brightness: 0,
		Saturation: 1.1,
		Contrast:   1.0,
		Warmth:     0,
	}
}

// Neutral returns parameters that leave a frame untouched
func Neutral() Parameters {
	return Parameters{Saturation: 1.0, Contrast: 1.0}
}

// Get reads a field as a float
func (p Parameters) Get(f Field) (float64, error) {
	switch f {
	case Smoothing:
		return float64(p.Smoothing), nil
	case Brightness:
		return p.Brightness, nil
	case Saturation:
		return p.Saturation, nil
	case Contrast:
		return p.Contrast, nil
	case Warmth:
		return p.Warmth, nil
	case EyeEnlarge:
		return float64(p.Advanced.EyeEnlarge), nil
	case FaceSlim:
		return float64(p.Advanced.FaceSlim), nil
	case ChinSlim:
		return float64(p.Advanced.ChinSlim), nil
	case NoseSlim:
		return float64(p.Advanced.NoseSlim), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownField, f)
}

// With returns a copy with one field set, clamped to its range
func (p Parameters) With(f Field, v float64) (Parameters, error) {
	r, ok := ranges[f]
	if !ok {
		return p, fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
	current, _ := p.Get(f)
	v = r.Clamp(v, current)

	switch f {
	case Smoothing:
		p.Smoothing = int(v)
	case Brightness:
		p.Brightness = v
	case Saturation:
		p.Saturation = v
	case Contrast:
		p.Contrast = v
	case Warmth:
		p.Warmth = v
	case EyeEnlarge:
		p.Advanced.EyeEnlarge = int(v)
	case FaceSlim:
		p.Advanced.FaceSlim = int(v)
	case ChinSlim:
		p.Advanced.ChinSlim = int(v)
	case NoseSlim:
		p.Advanced.NoseSlim = int(v)
	}
	return p, nil
}

// Clamp bounds every field to its declared range
func Clamp(p Parameters) Parameters {
	d := Defaults()
	for _, f := range Fields() {
		v, _ := p.Get(f)
		if math.IsNaN(v) {
			v, _ = d.Get(f)
		}
		p, _ = p.With(f, v)
	}
	return p
}

// ForMode drops the advanced block when the mode does not use it
func (p Parameters) ForMode(m Mode) Parameters {
	if m != ModeAdvanced {
		p.Advanced = Advanced{}
	}
	return p
}
