// Package control exposes the camera state over HTTP for control panels
// and streams face, parameter and capture events over a websocket.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/dudu/beautycam/internal/capture"
	"github.com/dudu/beautycam/internal/effects"
	"github.com/dudu/beautycam/internal/landmarks"
	"github.com/dudu/beautycam/internal/logging"
	"github.com/dudu/beautycam/internal/overlay"
	"github.com/dudu/beautycam/internal/pipeline"
	"github.com/dudu/beautycam/internal/presets"
)

// ErrShuttingDown is returned for captures requested after Run began stopping
var ErrShuttingDown = errors.New("control server is shutting down")

// Deps are the components the server drives
type Deps struct {
	Model      *effects.Model
	Presets    *presets.Store
	Settings   *pipeline.SettingsStore
	Compositor *overlay.Compositor
	State      *landmarks.State
	Finisher   *capture.Finisher
	// SwitchCamera toggles front/back and returns the new facing. Optional.
	SwitchCamera func() (string, error)
	// Stats reports scheduler counters. Optional.
	Stats func() pipeline.Stats
	// Quality is the still capture hint used for every capture
	Quality capture.Quality
	Flash   capture.Flash
}

// Server is the control API
type Server struct {
	deps   Deps
	hub    *Hub
	router *gin.Engine
	log    *slog.Logger

	face atomic.Int32 // -1 unknown, 0 no face, 1 face

	mu       sync.Mutex
	closing  bool
	captures sync.WaitGroup
}

func NewServer(deps Deps) *Server {
	if deps.Quality == "" {
		deps.Quality = capture.QualityBest
	}
	if deps.Flash == "" {
		deps.Flash = capture.FlashOff
	}
	log := logging.GetLogger().With("component", "control")
	s := &Server{
		deps: deps,
		hub:  NewHub(log),
		log:  log,
	}
	s.face.Store(-1)
	s.router = s.routes()

	deps.Model.OnChange(func(p effects.Parameters) {
		s.hub.Broadcast(EventParams, p)
	})
	return s
}

// Hub returns the event hub
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Control API listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("control server stopped: %w", err)
	case <-ctx.Done():
	}

	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.captures.Wait()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("control server shutdown: %w", err)
	}
	return nil
}

// PublishFace forwards detection results to event clients when face
// presence changes. It never blocks and is safe as a scheduler OnPublish hook.
func (s *Server) PublishFace(p landmarks.Published) {
	next := int32(0)
	if p.FaceDetected {
		next = 1
	}
	if s.face.Swap(next) == next {
		return
	}
	s.hub.Broadcast(EventFace, faceEvent{FaceDetected: p.FaceDetected, Faces: p.Faces})
}

// CaptureRequest snapshots the current parameters, settings and landmarks
func (s *Server) CaptureRequest() capture.Request {
	settings := s.deps.Settings.Load()
	return capture.Request{
		Params:         s.deps.Model.Snapshot(),
		Mode:           settings.Mode,
		FiltersEnabled: settings.FiltersEnabled,
		Snapshot:       s.deps.State.Load().Snapshot,
		Quality:        s.deps.Quality,
		Flash:          s.deps.Flash,
	}
}

// Capture starts a capture in the background. The outcome is broadcast to
// event clients and delivered on the returned channel.
func (s *Server) Capture(ctx context.Context) <-chan capture.Outcome {
	out := make(chan capture.Outcome, 1)

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		out <- capture.Outcome{Err: ErrShuttingDown}
		close(out)
		return out
	}
	s.captures.Add(1)
	s.mu.Unlock()

	results := s.deps.Finisher.FinishAsync(context.WithoutCancel(ctx), s.CaptureRequest())
	go func() {
		defer s.captures.Done()
		defer close(out)
		res := <-results
		if res.Err != nil {
			s.log.Error("Capture failed", "error", res.Err)
			s.hub.Broadcast(EventError, errorBody{Error: res.Err.Error()})
		} else {
			s.log.Info("Capture saved", "id", res.Capture.ID, "location", res.Capture.Location, "degraded", res.Capture.Degraded)
			s.hub.Broadcast(EventCapture, res.Capture)
		}
		out <- res
	}()
	return out
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	_ = router.SetTrustedProxies(nil)
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "PUT", "POST", "DELETE"},
		AllowHeaders:  []string{"Origin", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	router.GET("/state", s.getState)
	router.GET("/events", s.hub.serve)

	router.GET("/params", s.getParams)
	router.PUT("/params/:field", s.setParam)
	router.POST("/params/reset", s.resetParams)

	router.GET("/presets/builtin", s.listBuiltins)
	router.POST("/presets/builtin/:key/apply", s.applyBuiltin)
	router.GET("/presets", s.listPresets)
	router.POST("/presets", s.savePreset)
	router.DELETE("/presets/:id", s.removePreset)
	router.POST("/presets/:id/apply", s.applyPreset)

	router.PUT("/mode", s.setMode)
	router.PUT("/filters", s.setFilters)

	router.GET("/stickers", s.listStickers)
	router.PUT("/sticker", s.setSticker)
	router.GET("/overlay", s.getOverlay)

	router.POST("/capture", s.startCapture)
	router.GET("/captures", s.listCaptures)
	router.GET("/captures/:id", s.getCapture)
	router.GET("/captures/:id/compare", s.compareCapture)
	router.DELETE("/captures/:id", s.dismissCapture)

	router.POST("/camera/switch", s.switchCamera)
	return router
}
