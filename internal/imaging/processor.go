// Package imaging applies effect parameters to frames with OpenCV.
package imaging

import (
	"context"
	"encoding/binary"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"time"

	"gocv.io/x/gocv"

	"github.com/dudu/beautycam/internal/effects"
	"github.com/dudu/beautycam/internal/landmarks"
	"github.com/dudu/beautycam/internal/reshape"
)

// warmthShift is the channel offset at warmth 1
const warmthShift = 20

// Processor applies beauty and color adjustments
type Processor struct {
	cacheDir    string
	jpegQuality int
}

func NewProcessor(cacheDir string, jpegQuality int) *Processor {
	return &Processor{cacheDir: cacheDir, jpegQuality: jpegQuality}
}

// Apply adjusts a BGR frame in place. snap may be nil; reshaping is skipped then.
func (p *Processor) Apply(frame *gocv.Mat, params effects.Parameters, snap *landmarks.Snapshot) error {
	if frame.Empty() {
		return fmt.Errorf("empty frame")
	}

	if field, ok := reshape.Build(frame.Cols(), frame.Rows(), snap, params.Advanced); ok {
		if err := remap(frame, field); err != nil {
			return err
		}
	}

	if params.Smoothing > 0 {
		if err := smooth(frame, params.Smoothing, snap); err != nil {
			return err
		}
	}

	if params.Contrast != 1 || params.Brightness != 0 {
		alpha := float32(params.Contrast)
		beta := float32(params.Brightness + 128*(1-params.Contrast))
		if err := frame.ConvertToWithParams(frame, gocv.MatTypeCV8UC3, alpha, beta); err != nil {
			return fmt.Errorf("failed to adjust contrast: %w", err)
		}
	}

	if params.Saturation != 1 {
		if err := saturate(frame, params.Saturation); err != nil {
			return err
		}
	}

	if params.Warmth != 0 {
		if err := warm(frame, params.Warmth); err != nil {
			return err
		}
	}
	return nil
}

// ApplyEffects reads src, applies params and writes a new JPEG to the cache directory
func (p *Processor) ApplyEffects(ctx context.Context, src string, params effects.Parameters, snap *landmarks.Snapshot) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	img := gocv.IMRead(src, gocv.IMReadColor)
	if img.Empty() {
		return "", fmt.Errorf("failed to load image: %s", src)
	}
	defer img.Close()

	if err := p.Apply(&img, params, snap); err != nil {
		return "", err
	}

	if err := os.MkdirAll(p.cacheDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache dir: %w", err)
	}
	dst := filepath.Join(p.cacheDir, fmt.Sprintf("filtered_%d.jpg", time.Now().UnixMilli()))
	if !gocv.IMWriteWithParams(dst, img, []int{gocv.IMWriteJpegQuality, p.jpegQuality}) {
		return "", fmt.Errorf("failed to write %s", dst)
	}
	return dst, nil
}

// smooth runs an edge-preserving bilateral filter; level is 1-10. With a
// face only the skin area is smoothed.
func smooth(frame *gocv.Mat, level int, snap *landmarks.Snapshot) error {
	dst := gocv.NewMat()
	defer dst.Close()
	sigma := float64(level) * 10
	if err := gocv.BilateralFilter(*frame, &dst, 5+level/2*2, sigma, sigma); err != nil {
		return fmt.Errorf("failed to smooth: %w", err)
	}

	mask, ok := faceMask(frame.Rows(), frame.Cols(), snap)
	if !ok {
		if err := dst.CopyTo(frame); err != nil {
			return fmt.Errorf("failed to copy smoothed frame: %w", err)
		}
		return nil
	}
	defer mask.Close()
	if err := dst.CopyToWithMask(frame, mask); err != nil {
		return fmt.Errorf("failed to copy smoothed skin: %w", err)
	}
	return nil
}

func saturate(frame *gocv.Mat, factor float64) error {
	hsv := gocv.NewMat()
	defer hsv.Close()
	if err := gocv.CvtColor(*frame, &hsv, gocv.ColorBGRToHSV); err != nil {
		return fmt.Errorf("failed to convert to HSV: %w", err)
	}

	channels := gocv.Split(hsv)
	defer closeAll(channels)
	if len(channels) != 3 {
		return fmt.Errorf("expected 3 HSV channels, got %d", len(channels))
	}
	if err := channels[1].ConvertToWithParams(&channels[1], gocv.MatTypeCV8U, float32(factor), 0); err != nil {
		return fmt.Errorf("failed to scale saturation: %w", err)
	}

	if err := gocv.Merge(channels, &hsv); err != nil {
		return fmt.Errorf("failed to merge HSV channels: %w", err)
	}
	if err := gocv.CvtColor(hsv, frame, gocv.ColorHSVToBGR); err != nil {
		return fmt.Errorf("failed to convert from HSV: %w", err)
	}
	return nil
}

// warm shifts red up and blue down for positive values
func warm(frame *gocv.Mat, warmth float64) error {
	channels := gocv.Split(*frame)
	defer closeAll(channels)
	if len(channels) != 3 {
		return fmt.Errorf("warmth needs a BGR frame, got %d channels", len(channels))
	}

	shift := float32(warmth * warmthShift)
	if err := channels[2].ConvertToWithParams(&channels[2], gocv.MatTypeCV8U, 1, shift); err != nil {
		return fmt.Errorf("failed to shift red: %w", err)
	}
	if err := channels[0].ConvertToWithParams(&channels[0], gocv.MatTypeCV8U, 1, -shift); err != nil {
		return fmt.Errorf("failed to shift blue: %w", err)
	}
	if err := gocv.Merge(channels, frame); err != nil {
		return fmt.Errorf("failed to merge channels: %w", err)
	}
	return nil
}

func remap(frame *gocv.Mat, field *reshape.Field) error {
	mapX, err := floatMat(field, func(x, y int) float32 { sx, _ := field.Source(x, y); return sx })
	if err != nil {
		return err
	}
	defer mapX.Close()
	mapY, err := floatMat(field, func(x, y int) float32 { _, sy := field.Source(x, y); return sy })
	if err != nil {
		return err
	}
	defer mapY.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	if err := gocv.Remap(*frame, &dst, &mapX, &mapY, gocv.InterpolationLinear, gocv.BorderReplicate, color.RGBA{}); err != nil {
		return fmt.Errorf("failed to reshape: %w", err)
	}
	if err := dst.CopyTo(frame); err != nil {
		return fmt.Errorf("failed to copy reshaped frame: %w", err)
	}
	return nil
}

func floatMat(field *reshape.Field, at func(x, y int) float32) (gocv.Mat, error) {
	buf := make([]byte, field.W*field.H*4)
	for y := 0; y < field.H; y++ {
		for x := 0; x < field.W; x++ {
			binary.LittleEndian.PutUint32(buf[(y*field.W+x)*4:], math.Float32bits(at(x, y)))
		}
	}
	m, err := gocv.NewMatFromBytes(field.H, field.W, gocv.MatTypeCV32F, buf)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to build remap table: %w", err)
	}
	return m, nil
}

func closeAll(mats []gocv.Mat) {
	for i := range mats {
		mats[i].Close()
	}
}
