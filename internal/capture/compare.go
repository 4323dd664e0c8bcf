package capture

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"github.com/nfnt/resize"
)

// MaxCompareWidth bounds the width of a comparison image
const MaxCompareWidth = 4096

// Compare renders a before/after composite of a retained capture: the
// original left of split (0..1), the processed frame right of it, scaled
// to width. The filter pipeline is not run again.
func (f *Finisher) Compare(id string, split float64, width int) (image.Image, error) {
	sc, ok := f.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if width <= 0 || width > MaxCompareWidth {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWidth, width)
	}
	if split < 0 || math.IsNaN(split) {
		split = 0
	}
	if split > 1 {
		split = 1
	}

	before, err := loadImage(sc.Original)
	if err != nil {
		return nil, err
	}
	after := before
	if sc.Processed != sc.Original {
		if after, err = loadImage(sc.Processed); err != nil {
			return nil, err
		}
	}

	left := resize.Resize(uint(width), 0, before, resize.Lanczos3)
	right := resize.Resize(uint(width), 0, after, resize.Lanczos3)

	h := min(left.Bounds().Dy(), right.Bounds().Dy())
	dst := image.NewRGBA(image.Rect(0, 0, width, h))
	cut := int(split * float64(width))

	draw.Draw(dst, image.Rect(0, 0, cut, h), left, left.Bounds().Min, draw.Src)
	draw.Draw(dst, image.Rect(cut, 0, width, h), right, right.Bounds().Min.Add(image.Pt(cut, 0)), draw.Src)

	if cut > 0 && cut < width {
		line := image.Rect(max(0, cut-1), 0, min(width, cut+1), h)
		draw.Draw(dst, line, image.NewUniform(color.White), image.Point{}, draw.Src)
	}
	return dst, nil
}

func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}
