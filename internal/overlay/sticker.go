// Package overlay places AR stickers relative to the latest face landmarks.
package overlay

import (
	"errors"
	"fmt"
)

var ErrUnknownSticker = errors.New("unknown sticker")

// Anchor names the landmark subset a sticker is positioned from
type Anchor string

const (
	AnchorEyes    Anchor = "eyes"
	AnchorFaceTop Anchor = "faceTop"
	AnchorMouth   Anchor = "mouth"
	AnchorCheeks  Anchor = "cheeks"
	AnchorFace    Anchor = "face"
)

// Style selects static or continuously animated rendering
type Style string

const (
	StyleStatic   Style = "static"
	StyleAnimated Style = "animated"
)

// None is the key of the empty selection
const None = "none"

// Sticker describes one catalogue entry
type Sticker struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	Glyph  string `json:"glyph"`
	Anchor Anchor `json:"anchor"`
	Style  Style  `json:"style"`
	// Scale multiplies the anchor's natural size
	Scale float64 `json:"scale"`
}

var catalogue = []Sticker{
	{Key: None, Name: "None"},
	{Key: "glasses", Name: "Glasses", Glyph: "👓", Anchor: AnchorEyes, Style: StyleStatic, Scale: 2.2},
	{Key: "sunglasses", Name: "Sunglasses", Glyph: "🕶️", Anchor: AnchorEyes, Style: StyleStatic, Scale: 2.3},
	{Key: "crown", Name: "Crown", Glyph: "👑", Anchor: AnchorFaceTop, Style: StyleAnimated, Scale: 0.8},
	{Key: "catEars", Name: "Cat ears", Glyph: "🐱", Anchor: AnchorFaceTop, Style: StyleStatic, Scale: 1.1},
	{Key: "bunnyEars", Name: "Bunny ears", Glyph: "🐰", Anchor: AnchorFaceTop, Style: StyleAnimated, Scale: 1.0},
	{Key: "mustache", Name: "Mustache", Glyph: "🥸", Anchor: AnchorMouth, Style: StyleStatic, Scale: 1.6},
	{Key: "blush", Name: "Blush", Glyph: "🩷", Anchor: AnchorCheeks, Style: StyleStatic, Scale: 0.6},
	{Key: "hearts", Name: "Hearts", Glyph: "💕", Anchor: AnchorFace, Style: StyleAnimated, Scale: 0.25},
}

// Catalogue returns every sticker, None first
func Catalogue() []Sticker {
	out := make([]Sticker, len(catalogue))
	copy(out, catalogue)
	return out
}

// Lookup finds a sticker by key
func Lookup(key string) (Sticker, error) {
	for _, s := range catalogue {
		if s.Key == key {
			return s, nil
		}
	}
	return Sticker{}, fmt.Errorf("%w: %q", ErrUnknownSticker, key)
}
