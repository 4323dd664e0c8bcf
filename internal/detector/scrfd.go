package detector

import (
	"fmt"
	"image"
	"math"

	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"github.com/dudu/beautycam/internal/inference"
)

// SCRFD implements the SCRFD face detector
type SCRFD struct {
	session        *inference.Session
	inputSize      int
	confThreshold  float32
	nmsThreshold   float32
	featureStrides []int
	numAnchors     int
}

// SCRFD tensor names: 1 input and 9 outputs (3 levels x score, bbox, kps)
var (
	SCRFDInputs  = []string{"input.1"}
	SCRFDOutputs = []string{
		"score_8", "score_16", "score_32",
		"bbox_8", "bbox_16", "bbox_32",
		"kps_8", "kps_16", "kps_32",
	}
)

// NewSCRFD creates a new SCRFD detector
func NewSCRFD(modelPath string, inputSize int, confThreshold, nmsThreshold float32) (*SCRFD, error) {
	session, err := inference.NewSession(modelPath, SCRFDInputs, SCRFDOutputs)
	if err != nil {
		return nil, fmt.Errorf("failed to create SCRFD session: %w", err)
	}

	return &SCRFD{
		session:        session,
		inputSize:      inputSize,
		confThreshold:  confThreshold,
		nmsThreshold:   nmsThreshold,
		featureStrides: []int{8, 16, 32},
		numAnchors:     2,
	}, nil
}

// Detect finds faces in a BGR image, highest score first
func (s *SCRFD) Detect(img gocv.Mat) ([]Face, error) {
	if img.Empty() {
		return nil, fmt.Errorf("empty frame")
	}
	origWidth, origHeight := img.Cols(), img.Rows()

	inputBlob, scale := s.preprocess(img)
	defer inputBlob.Close()

	inputTensor, err := inference.CreateTensor(
		[]int64{1, 3, int64(s.inputSize), int64(s.inputSize)},
		bytesToFloat32(inputBlob.ToBytes()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputs := make([]ort.Value, 9)
	outputTensors := make([]*ort.Tensor[float32], 0, 9)
	defer func() {
		for _, t := range outputTensors {
			t.Destroy()
		}
	}()

	widths := []int64{1, 4, 10} // score, bbox, kps
	for kind, width := range widths {
		for level, stride := range s.featureStrides {
			fm := s.inputSize / stride
			anchors := int64(fm * fm * s.numAnchors)
			t, err := inference.CreateEmptyTensor[float32]([]int64{anchors, width})
			if err != nil {
				return nil, fmt.Errorf("failed to create output tensor: %w", err)
			}
			outputs[kind*3+level] = t
			outputTensors = append(outputTensors, t)
		}
	}

	if err := s.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	var faces []Face
	for level := range s.featureStrides {
		faces = append(faces, s.decodeLevel(level,
			outputTensors[level].GetData(),
			outputTensors[level+3].GetData(),
			outputTensors[level+6].GetData(),
			scale, origWidth, origHeight)...)
	}
	return nms(faces, s.nmsThreshold), nil
}

// preprocess letterboxes the image into the model input and normalizes it
func (s *SCRFD) preprocess(img gocv.Mat) (gocv.Mat, float32) {
	height, width := img.Rows(), img.Cols()
	scale := float32(s.inputSize) / float32(max(height, width))
	newWidth := int(float32(width) * scale)
	newHeight := int(float32(height) * scale)

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(img, &resized, image.Pt(newWidth, newHeight), 0, 0, gocv.InterpolationLinear)

	padded := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), s.inputSize, s.inputSize, gocv.MatTypeCV8UC3)
	defer padded.Close()
	roi := padded.Region(image.Rect(0, 0, newWidth, newHeight))
	resized.CopyTo(&roi)
	roi.Close()

	// (x - 127.5) / 128, RGB, NCHW
	blob := gocv.BlobFromImage(padded, 1.0/128.0, image.Pt(s.inputSize, s.inputSize),
		gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	return blob, scale
}

// decodeLevel turns one stride's raw outputs into faces in image coordinates
func (s *SCRFD) decodeLevel(level int, scores, boxes, kps []float32, scale float32, origWidth, origHeight int) []Face {
	stride := float32(s.featureStrides[level])
	fm := s.inputSize / s.featureStrides[level]

	var faces []Face
	anchor := 0
	for y := 0; y < fm; y++ {
		for x := 0; x < fm; x++ {
			for a := 0; a < s.numAnchors; a, anchor = a+1, anchor+1 {
				score := scores[anchor]
				if score < 0 || score > 1 {
					score = sigmoid(score)
				}
				if score <= s.confThreshold {
					continue
				}

				cx := (float32(x) + 0.5) * stride
				cy := (float32(y) + 0.5) * stride
				b := boxes[anchor*4 : anchor*4+4]
				box := BoundingBox{
					X1: clamp((cx-b[0]*stride)/scale, 0, float32(origWidth)),
					Y1: clamp((cy-b[1]*stride)/scale, 0, float32(origHeight)),
					X2: clamp((cx+b[2]*stride)/scale, 0, float32(origWidth)),
					Y2: clamp((cy+b[3]*stride)/scale, 0, float32(origHeight)),
				}

				k := kps[anchor*10 : anchor*10+10]
				point := func(i int) Point {
					return Point{X: (cx + k[i*2]*stride) / scale, Y: (cy + k[i*2+1]*stride) / scale}
				}
				faces = append(faces, Face{
					BoundingBox: box,
					Landmarks: FivePoint{
						LeftEye:    point(0),
						RightEye:   point(1),
						Nose:       point(2),
						LeftMouth:  point(3),
						RightMouth: point(4),
					},
					Score: score,
				})
			}
		}
	}
	return faces
}

// Close releases detector resources
func (s *SCRFD) Close() error {
	return s.session.Destroy()
}

func sigmoid(x float32) float32 {
	return 1.0 / (1.0 + float32(math.Exp(float64(-x))))
}

func clamp(x, lo, hi float32) float32 {
	return min(max(x, lo), hi)
}

func bytesToFloat32(data []byte) []float32 {
	result := make([]float32, len(data)/4)
	for i := range result {
		bits := uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
		result[i] = math.Float32frombits(bits)
	}
	return result
}
