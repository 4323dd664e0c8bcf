package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dudu/beautycam/internal/effects"
	"github.com/dudu/beautycam/internal/landmarks"
)

func writePNG(t *testing.T, path string, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, c)
		}
	}
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()
	require.NoError(t, png.Encode(file, img))
}

type fakeCapturer struct {
	path string
	err  error
}

func (f *fakeCapturer) CaptureStill(ctx context.Context, q Quality, flash Flash) (string, error) {
	return f.path, f.err
}

type fakeProcessor struct {
	path   string
	err    error
	calls  atomic.Int32
	params effects.Parameters
	snap   *landmarks.Snapshot
}

func (f *fakeProcessor) ApplyEffects(ctx context.Context, src string, params effects.Parameters, snap *landmarks.Snapshot) (string, error) {
	f.calls.Add(1)
	f.params = params
	f.snap = snap
	return f.path, f.err
}

type fakeWriter struct {
	dir  string
	err  error
	srcs []string
}

func (f *fakeWriter) WriteImage(ctx context.Context, src, name string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.srcs = append(f.srcs, src)
	return filepath.Join(f.dir, name), nil
}

type fixture struct {
	finisher  *Finisher
	capturer  *fakeCapturer
	processor *fakeProcessor
	writer    *fakeWriter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	original := filepath.Join(dir, "original.png")
	processed := filepath.Join(dir, "processed.png")
	writePNG(t, original, color.RGBA{R: 255, A: 255})
	writePNG(t, processed, color.RGBA{B: 255, A: 255})

	fx := &fixture{
		capturer:  &fakeCapturer{path: original},
		processor: &fakeProcessor{path: processed},
		writer:    &fakeWriter{dir: dir},
	}
	clock := time.UnixMilli(1700000000000)
	fx.finisher = NewFinisher(Config{Now: func() time.Time {
		clock = clock.Add(time.Millisecond)
		return clock
	}}, fx.capturer, fx.processor, fx.writer)
	return fx
}

func TestOutputName(t *testing.T) {
	require.Equal(t, "BeautyCamera_1700000000123.jpg", OutputName(time.UnixMilli(1700000000123)))
}

func TestFinishWithFilters(t *testing.T) {
	fx := newFixture(t)
	params := effects.Defaults()
	params.Advanced.EyeEnlarge = 4

	sc, err := fx.finisher.Finish(context.Background(), Request{
		Params:         params,
		Mode:           effects.ModeBasic,
		FiltersEnabled: true,
	})
	require.NoError(t, err)
	require.False(t, sc.Degraded)
	require.Equal(t, fx.capturer.path, sc.Original)
	require.Equal(t, fx.processor.path, sc.Processed)
	require.Equal(t, []string{fx.processor.path}, fx.writer.srcs)
	require.Equal(t, "BeautyCamera_1700000000001.jpg", filepath.Base(sc.Location))

	// basic mode never reshapes
	require.True(t, fx.processor.params.Advanced.IsZero())

	got, ok := fx.finisher.Get(sc.ID)
	require.True(t, ok)
	require.Same(t, sc, got)
}

func TestFinishWithoutFiltersSkipsProcessing(t *testing.T) {
	fx := newFixture(t)
	sc, err := fx.finisher.Finish(context.Background(), Request{Params: effects.Defaults(), Mode: effects.ModeBasic})
	require.NoError(t, err)
	require.Zero(t, fx.processor.calls.Load())
	require.Equal(t, sc.Original, sc.Processed)
	require.Equal(t, []string{sc.Original}, fx.writer.srcs)
}

func TestFinishAdvancedWithoutFiltersOnlyReshapes(t *testing.T) {
	fx := newFixture(t)
	params := effects.Defaults()
	params.Advanced.FaceSlim = 6
	snap := landmarks.NewSnapshot(landmarks.RawFace{})

	_, err := fx.finisher.Finish(context.Background(), Request{Params: params, Mode: effects.ModeAdvanced, Snapshot: snap})
	require.NoError(t, err)
	require.Equal(t, int32(1), fx.processor.calls.Load())
	require.Equal(t, 6, fx.processor.params.Advanced.FaceSlim)
	require.Equal(t, 0, fx.processor.params.Smoothing)
	require.Equal(t, 1.0, fx.processor.params.Saturation)
	require.Same(t, snap, fx.processor.snap)
}

func TestFinishFallsBackToOriginal(t *testing.T) {
	fx := newFixture(t)
	fx.processor.err = errors.New("opencv: bad mat")

	sc, err := fx.finisher.Finish(context.Background(), Request{Params: effects.Defaults(), FiltersEnabled: true})
	require.NoError(t, err)
	require.True(t, sc.Degraded)
	require.Contains(t, sc.Reason, "bad mat")
	require.Equal(t, sc.Original, sc.Processed)
	require.Equal(t, []string{sc.Original}, fx.writer.srcs)
}

func TestFinishCaptureErrors(t *testing.T) {
	for _, cause := range []error{ErrPermissionDenied, ErrDeviceBusy} {
		fx := newFixture(t)
		fx.capturer.err = cause
		_, err := fx.finisher.Finish(context.Background(), Request{})
		require.ErrorIs(t, err, cause)
		require.Empty(t, fx.finisher.List())
	}
}

func TestFinishWriteErrorIsReturned(t *testing.T) {
	fx := newFixture(t)
	fx.writer.err = errors.New("no space left on device")

	var finished atomic.Int32
	fx.finisher.config.OnFinish = func(*StillCapture) { finished.Add(1) }

	_, err := fx.finisher.Finish(context.Background(), Request{FiltersEnabled: true})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to save capture")
	require.Empty(t, fx.finisher.List())
	require.Zero(t, finished.Load())
}

func TestFinishAsync(t *testing.T) {
	fx := newFixture(t)
	var finished atomic.Int32
	fx.finisher.config.OnFinish = func(*StillCapture) { finished.Add(1) }

	select {
	case out := <-fx.finisher.FinishAsync(context.Background(), Request{FiltersEnabled: true}):
		require.NoError(t, out.Err)
		require.NotNil(t, out.Capture)
	case <-time.After(time.Second):
		t.Fatal("capture did not finish")
	}
	require.Equal(t, int32(1), finished.Load())
}

func TestListAndDismiss(t *testing.T) {
	fx := newFixture(t)
	var ids []string
	for i := 0; i < 3; i++ {
		sc, err := fx.finisher.Finish(context.Background(), Request{})
		require.NoError(t, err)
		ids = append(ids, sc.ID)
	}

	list := fx.finisher.List()
	require.Len(t, list, 3)
	for i, sc := range list {
		require.Equal(t, ids[i], sc.ID, fmt.Sprintf("position %d", i))
	}

	require.True(t, fx.finisher.Dismiss(ids[1]))
	require.False(t, fx.finisher.Dismiss(ids[1]))
	_, ok := fx.finisher.Get(ids[1])
	require.False(t, ok)
	require.Len(t, fx.finisher.List(), 2)
}

func TestCompareComposite(t *testing.T) {
	fx := newFixture(t)
	sc, err := fx.finisher.Finish(context.Background(), Request{FiltersEnabled: true})
	require.NoError(t, err)
	calls := fx.processor.calls.Load()

	img, err := fx.finisher.Compare(sc.ID, 0.5, 20)
	require.NoError(t, err)
	require.Equal(t, 20, img.Bounds().Dx())
	require.Equal(t, 15, img.Bounds().Dy())

	r, _, b, _ := img.At(2, 7).RGBA()
	require.Greater(t, r, b, "left half shows the original")
	r, _, b, _ = img.At(17, 7).RGBA()
	require.Greater(t, b, r, "right half shows the processed frame")

	_, err = fx.finisher.Compare(sc.ID, 0.5, 20)
	require.NoError(t, err)
	require.Equal(t, calls, fx.processor.calls.Load(), "comparison must not reprocess")
}

func TestCompareErrors(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.finisher.Compare("missing", 0.5, 20)
	require.ErrorIs(t, err, ErrNotFound)

	sc, err := fx.finisher.Finish(context.Background(), Request{})
	require.NoError(t, err)
	_, err = fx.finisher.Compare(sc.ID, 0.5, 0)
	require.ErrorIs(t, err, ErrInvalidWidth)
	_, err = fx.finisher.Compare(sc.ID, 0.5, MaxCompareWidth+1)
	require.ErrorIs(t, err, ErrInvalidWidth)

	img, err := fx.finisher.Compare(sc.ID, 7, 10)
	require.NoError(t, err)
	require.Equal(t, 10, img.Bounds().Dx())
}
