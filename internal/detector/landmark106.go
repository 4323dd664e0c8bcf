package detector

import (
	"fmt"
	"image"

	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"github.com/dudu/beautycam/internal/inference"
)

// Landmark106 detects 106 facial landmarks using insightface's 2d106det model
type Landmark106 struct {
	session   *inference.Session
	inputSize int
	inputMean float64
	inputStd  float64
}

// 2d106det tensor names
var (
	Landmark106Inputs  = []string{"data"}
	Landmark106Outputs = []string{"fc1"}
)

// NewLandmark106 creates a new 106-point landmark detector
func NewLandmark106(modelPath string) (*Landmark106, error) {
	session, err := inference.NewSession(modelPath, Landmark106Inputs, Landmark106Outputs)
	if err != nil {
		return nil, fmt.Errorf("failed to create landmark session: %w", err)
	}

	return &Landmark106{
		session:   session,
		inputSize: 192,
		inputMean: 127.5,
		inputStd:  128.0,
	}, nil
}

// Detect fills face.Landmarks106 from a 1.5x crop around the bounding box
func (l *Landmark106) Detect(img gocv.Mat, face *Face) error {
	bbox := face.BoundingBox
	center := bbox.Center()
	scale := float32(l.inputSize) / (max(bbox.Width(), bbox.Height()) * 1.5)
	if scale <= 0 {
		return fmt.Errorf("degenerate face box %+v", bbox)
	}

	// scale + translate only, no rotation
	m := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	defer m.Close()
	half := float64(l.inputSize) / 2
	m.SetDoubleAt(0, 0, float64(scale))
	m.SetDoubleAt(0, 2, half-float64(center.X*scale))
	m.SetDoubleAt(1, 1, float64(scale))
	m.SetDoubleAt(1, 2, half-float64(center.Y*scale))

	aligned := gocv.NewMat()
	defer aligned.Close()
	gocv.WarpAffine(img, &aligned, m, image.Pt(l.inputSize, l.inputSize))

	blob := gocv.BlobFromImage(aligned, 1.0/l.inputStd, image.Pt(l.inputSize, l.inputSize),
		gocv.NewScalar(l.inputMean, l.inputMean, l.inputMean, 0), true, false)
	defer blob.Close()

	inputTensor, err := inference.CreateTensor(
		[]int64{1, 3, int64(l.inputSize), int64(l.inputSize)},
		bytesToFloat32(blob.ToBytes()),
	)
	if err != nil {
		return fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	// 106 landmarks * 2 coords
	outputTensor, err := inference.CreateEmptyTensor[float32]([]int64{1, 212})
	if err != nil {
		return fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	if err := l.session.Run([]ort.Value{inputTensor}, []ort.Value{outputTensor}); err != nil {
		return fmt.Errorf("landmark inference failed: %w", err)
	}

	points := l.postprocess(outputTensor.GetData(), center, scale)
	face.Landmarks106 = &points
	return nil
}

// postprocess maps model output in [-1, 1] back to image coordinates
func (l *Landmark106) postprocess(output []float32, center Point, scale float32) Landmarks106 {
	var points Landmarks106
	half := float32(l.inputSize) / 2
	for i := range points {
		points[i] = Point{
			X: output[i*2]*half/scale + center.X,
			Y: output[i*2+1]*half/scale + center.Y,
		}
	}
	return points
}

// Close releases detector resources
func (l *Landmark106) Close() error {
	return l.session.Destroy()
}
