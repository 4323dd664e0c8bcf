package control

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/dudu/beautycam/internal/capture"
	"github.com/dudu/beautycam/internal/effects"
	"github.com/dudu/beautycam/internal/kv"
	"github.com/dudu/beautycam/internal/landmarks"
	"github.com/dudu/beautycam/internal/overlay"
	"github.com/dudu/beautycam/internal/pipeline"
	"github.com/dudu/beautycam/internal/presets"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stillCapturer struct {
	dir string
	err error
}

func (f *stillCapturer) CaptureStill(ctx context.Context, q capture.Quality, flash capture.Flash) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 150, B: 120, A: 255})
		}
	}
	path := filepath.Join(f.dir, "still.png")
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	return path, png.Encode(file, img)
}

type passProcessor struct{}

func (passProcessor) ApplyEffects(ctx context.Context, src string, params effects.Parameters, snap *landmarks.Snapshot) (string, error) {
	return src, nil
}

type memWriter struct{}

func (memWriter) WriteImage(ctx context.Context, src, name string) (string, error) {
	return "mem://" + name, nil
}

type fixture struct {
	server   *Server
	model    *effects.Model
	settings *pipeline.SettingsStore
	state    *landmarks.State
	capturer *stillCapturer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	model := effects.NewModel()
	state := landmarks.NewState()
	settings := pipeline.NewSettingsStore(pipeline.Settings{Mode: effects.ModeBasic})
	capturer := &stillCapturer{dir: t.TempDir()}
	srv := NewServer(Deps{
		Model:        model,
		Presets:      presets.NewStore(kv.NewMemory(), model),
		Settings:     settings,
		Compositor:   overlay.NewCompositor(state),
		State:        state,
		Finisher:     capture.NewFinisher(capture.Config{}, capturer, passProcessor{}, memWriter{}),
		SwitchCamera: func() (string, error) { return "back", nil },
		Stats:        func() pipeline.Stats { return pipeline.Stats{Frames: 9, Detections: 3} },
	})
	return &fixture{server: srv, model: model, settings: settings, state: state, capturer: capturer}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestGetState(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	st := decode[stateResponse](t, rec)
	require.Equal(t, effects.Defaults(), st.Params)
	require.Equal(t, effects.ModeBasic, st.Settings.Mode)
	require.Equal(t, overlay.None, st.Sticker)
	require.False(t, st.Face.FaceDetected)
	require.NotNil(t, st.Stats)
	require.EqualValues(t, 3, st.Stats.Detections)
}

func TestSetParam(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/params/brightness", map[string]any{"value": 20})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 20.0, decode[effects.Parameters](t, rec).Brightness)
	require.Equal(t, 20.0, f.model.Snapshot().Brightness)

	// out of range values are clamped
	rec = f.do(t, http.MethodPut, "/params/smoothing", map[string]any{"value": 99})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 10, f.model.Snapshot().Smoothing)

	rec = f.do(t, http.MethodPut, "/params/sharpness", map[string]any{"value": 1})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, decode[errorBody](t, rec).Error, "unknown effect field")

	rec = f.do(t, http.MethodPut, "/params/warmth", map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetParams(t *testing.T) {
	f := newFixture(t)
	_, err := f.model.Set(effects.Contrast, 1.4)
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/params/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, effects.Defaults(), f.model.Snapshot())
	require.Equal(t, "NONE", f.model.Selected())
}

func TestBuiltinPresets(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/presets/builtin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]presets.Builtin](t, rec), len(presets.Builtins()))

	rec = f.do(t, http.MethodPost, "/presets/builtin/SEPIA/apply", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "SEPIA", f.model.Selected())

	before := f.model.Snapshot()
	rec = f.do(t, http.MethodPost, "/presets/builtin/NOPE/apply", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, before, f.model.Snapshot())
}

func TestUserPresets(t *testing.T) {
	f := newFixture(t)
	_, err := f.model.Set(effects.Warmth, 0.5)
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/presets", map[string]any{"name": "  Warm  "})
	require.Equal(t, http.StatusCreated, rec.Code)
	saved := decode[presets.Preset](t, rec)
	require.Equal(t, "Warm", saved.Name)
	require.Equal(t, 0.5, saved.Params.Warmth)

	rec = f.do(t, http.MethodPost, "/presets", map[string]any{"name": "   "})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/presets", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]presets.Preset](t, rec), 1)

	f.model.Reset()
	rec = f.do(t, http.MethodPost, "/presets/"+saved.ID+"/apply", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 0.5, f.model.Snapshot().Warmth)

	rec = f.do(t, http.MethodPost, "/presets/missing/apply", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodDelete, "/presets/"+saved.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodGet, "/presets", nil)
	require.Empty(t, decode[[]presets.Preset](t, rec))
}

func TestModeAndFilters(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/mode", map[string]any{"mode": "advanced"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, effects.ModeAdvanced, f.settings.Load().Mode)
	require.True(t, f.settings.Load().DetectionEnabled())

	rec = f.do(t, http.MethodPut, "/mode", map[string]any{"mode": "pro"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, effects.ModeAdvanced, f.settings.Load().Mode)

	rec = f.do(t, http.MethodPut, "/filters", map[string]any{"enabled": true})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, f.settings.Load().FiltersEnabled)

	rec = f.do(t, http.MethodPut, "/filters", map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStickers(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/stickers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]overlay.Sticker](t, rec), len(overlay.Catalogue()))

	rec = f.do(t, http.MethodPut, "/sticker", map[string]any{"sticker": "crown"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "crown", f.server.deps.Compositor.Selected().Key)

	rec = f.do(t, http.MethodPut, "/sticker", map[string]any{"sticker": "monocle"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "crown", f.server.deps.Compositor.Selected().Key)
}

func TestOverlay(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/overlay?w=640&h=480", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// no face yet
	rec = f.do(t, http.MethodGet, "/overlay?w=640&h=480&fw=640&fh=480", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, decode[[]overlay.Command](t, rec))

	f.state.Publish(0, landmarks.Extract([]landmarks.RawFace{{
		Bounds: landmarks.BoundingBox{X1: 200, Y1: 120, X2: 440, Y2: 420},
		Points: map[landmarks.Kind]landmarks.Point{
			landmarks.LeftEye:  {X: 270, Y: 220},
			landmarks.RightEye: {X: 370, Y: 220},
		},
		Score: 0.9,
	}}), landmarks.RetainStale)
	require.NoError(t, f.server.deps.Compositor.Select("glasses"))

	rec = f.do(t, http.MethodGet, "/overlay?w=640&h=480&fw=640&fh=480", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cmds := decode[[]overlay.Command](t, rec)
	require.Len(t, cmds, 1)
	require.InDelta(t, 320, cmds[0].X, 1e-6)
	require.InDelta(t, 220, cmds[0].Y, 1e-6)
}

func TestCaptureFlow(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/capture?wait=true", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	sc := decode[capture.StillCapture](t, rec)
	require.True(t, strings.HasPrefix(sc.Location, "mem://BeautyCamera_"))
	require.Equal(t, sc.Original, sc.Processed)

	rec = f.do(t, http.MethodGet, "/captures", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]capture.StillCapture](t, rec), 1)

	rec = f.do(t, http.MethodGet, "/captures/"+sc.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/captures/"+sc.ID+"/compare?split=0.3&width=32", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	img, err := jpeg.Decode(rec.Body)
	require.NoError(t, err)
	require.Equal(t, 32, img.Bounds().Dx())
	require.Equal(t, 24, img.Bounds().Dy())

	rec = f.do(t, http.MethodGet, "/captures/"+sc.ID+"/compare?width=0", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(t, http.MethodGet, "/captures/"+sc.ID+"/compare?width=100000", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodDelete, "/captures/"+sc.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodGet, "/captures/"+sc.ID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.do(t, http.MethodGet, "/captures/"+sc.ID+"/compare", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCompareUnreadableOriginal(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/capture?wait=true", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	sc := decode[capture.StillCapture](t, rec)
	require.NoError(t, os.Remove(sc.Original))

	rec = f.do(t, http.MethodGet, "/captures/"+sc.ID+"/compare", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCaptureRejectedAfterShutdown(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, f.server.Run(ctx, "127.0.0.1:0"))

	res := <-f.server.Capture(context.Background())
	require.ErrorIs(t, res.Err, ErrShuttingDown)
	require.Nil(t, res.Capture)

	rec := f.do(t, http.MethodPost, "/capture?wait=true", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Empty(t, f.server.deps.Finisher.List())
}

func TestCaptureErrors(t *testing.T) {
	f := newFixture(t)
	f.capturer.err = capture.ErrDeviceBusy

	rec := f.do(t, http.MethodPost, "/capture?wait=true", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	f.capturer.err = errors.New("sensor fault")
	rec = f.do(t, http.MethodPost, "/capture?wait=true", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Empty(t, f.server.deps.Finisher.List())
}

func TestCaptureAsync(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/capture", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Eventually(t, func() bool {
		return len(f.server.deps.Finisher.List()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSwitchCamera(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/camera/switch", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "back", decode[map[string]string](t, rec)["facing"])

	f.server.deps.SwitchCamera = func() (string, error) { return "", capture.ErrDeviceBusy }
	rec = f.do(t, http.MethodPost, "/camera/switch", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	f.server.deps.SwitchCamera = nil
	rec = f.do(t, http.MethodPost, "/camera/switch", nil)
	require.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestEvents(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.server.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/events", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return f.server.Hub().Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	read := func() Event {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var ev Event
		require.NoError(t, json.Unmarshal(data, &ev))
		return ev
	}

	_, err = f.model.Set(effects.Saturation, 1.5)
	require.NoError(t, err)
	require.Equal(t, EventParams, read().Type)

	f.server.PublishFace(landmarks.Published{FaceDetected: true, Faces: 1})
	// unchanged presence is not repeated
	f.server.PublishFace(landmarks.Published{FaceDetected: true, Faces: 1})
	f.server.PublishFace(landmarks.Published{FaceDetected: false})

	ev := read()
	require.Equal(t, EventFace, ev.Type)
	require.Equal(t, true, ev.Data.(map[string]any)["faceDetected"])
	ev = read()
	require.Equal(t, EventFace, ev.Type)
	require.Equal(t, false, ev.Data.(map[string]any)["faceDetected"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, "pong", string(data))

	conn.Close()
	require.Eventually(t, func() bool { return f.server.Hub().Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.server.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
