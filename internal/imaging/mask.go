package imaging

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/dudu/beautycam/internal/landmarks"
)

// maskBlur is the Gaussian kernel that feathers the face mask
const maskBlur = 31

// faceMask returns a soft elliptical mask over the face in snap, or false
// when there is no usable face
func faceMask(rows, cols int, snap *landmarks.Snapshot) (gocv.Mat, bool) {
	if snap == nil {
		return gocv.Mat{}, false
	}
	b := snap.Bounds()
	if b.Width() <= 0 || b.Height() <= 0 {
		return gocv.Mat{}, false
	}

	// Center on the landmarks when present; the box is padded above the brows
	center := b.Center()
	if pts := snap.Points(); len(pts) > 0 {
		var sx, sy float32
		for _, p := range pts {
			sx += p.X
			sy += p.Y
		}
		center = landmarks.Point{X: sx / float32(len(pts)), Y: sy / float32(len(pts))}
	}
	axes := image.Pt(int(b.Width()*0.5), int(b.Height()*0.6))

	mask := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8U)
	gocv.Ellipse(&mask,
		image.Pt(int(center.X), int(center.Y)),
		axes,
		0, 0, 360,
		color.RGBA{R: 255, G: 255, B: 255, A: 255},
		-1,
	)
	soft := softenMask(mask)
	mask.Close()
	return soft, true
}

// softenMask erodes and blurs a mask for soft edges
func softenMask(mask gocv.Mat) gocv.Mat {
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(3, 3))
	defer kernel.Close()

	eroded := gocv.NewMat()
	defer eroded.Close()
	gocv.Erode(mask, &eroded, kernel)

	blurred := gocv.NewMat()
	gocv.GaussianBlur(eroded, &blurred, image.Pt(maskBlur, maskBlur), 0, 0, gocv.BorderDefault)
	return blurred
}
