package control

import (
	"errors"
	"image/jpeg"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dudu/beautycam/internal/capture"
	"github.com/dudu/beautycam/internal/effects"
	"github.com/dudu/beautycam/internal/landmarks"
	"github.com/dudu/beautycam/internal/overlay"
	"github.com/dudu/beautycam/internal/pipeline"
	"github.com/dudu/beautycam/internal/presets"
)

const defaultCompareWidth = 640

type errorBody struct {
	Error string `json:"error"`
}

type faceEvent struct {
	FaceDetected bool `json:"faceDetected"`
	Faces        int  `json:"faces"`
}

type stateResponse struct {
	Params   effects.Parameters  `json:"params"`
	Selected string              `json:"selectedPreset"`
	Settings pipeline.Settings   `json:"settings"`
	Sticker  string              `json:"sticker"`
	Face     landmarks.Published `json:"face"`
	Stats    *pipeline.Stats     `json:"stats,omitempty"`
}

type valueRequest struct {
	Value *float64 `json:"value"`
}

type presetRequest struct {
	Name string `json:"name"`
	// Params defaults to the current parameters
	Params *effects.Parameters `json:"params"`
}

type modeRequest struct {
	Mode string `json:"mode"`
}

type filtersRequest struct {
	Enabled *bool `json:"enabled"`
}

type stickerRequest struct {
	Sticker string `json:"sticker"`
}

func fail(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, errorBody{Error: err.Error()})
}

func (s *Server) getState(c *gin.Context) {
	resp := stateResponse{
		Params:   s.deps.Model.Snapshot(),
		Selected: s.deps.Model.Selected(),
		Settings: s.deps.Settings.Load(),
		Sticker:  s.deps.Compositor.Selected().Key,
		Face:     s.deps.State.Load(),
	}
	if s.deps.Stats != nil {
		stats := s.deps.Stats()
		resp.Stats = &stats
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getParams(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Model.Snapshot())
}

func (s *Server) setParam(c *gin.Context) {
	field, err := effects.ParseField(c.Param("field"))
	if err != nil {
		fail(c, http.StatusNotFound, err)
		return
	}
	var req valueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	if req.Value == nil {
		fail(c, http.StatusBadRequest, errors.New("missing value"))
		return
	}
	params, err := s.deps.Model.Set(field, *req.Value)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusOK, params)
}

func (s *Server) resetParams(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Model.Reset())
}

func (s *Server) listBuiltins(c *gin.Context) {
	c.JSON(http.StatusOK, presets.Builtins())
}

func (s *Server) applyBuiltin(c *gin.Context) {
	key := c.Param("key")
	if !s.deps.Presets.ApplyBuiltin(key) {
		fail(c, http.StatusNotFound, presets.ErrUnknownPreset)
		return
	}
	c.JSON(http.StatusOK, s.deps.Model.Snapshot())
}

func (s *Server) listPresets(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Presets.List())
}

func (s *Server) savePreset(c *gin.Context) {
	var req presetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	params := s.deps.Model.Snapshot()
	if req.Params != nil {
		params = *req.Params
	}
	p, err := s.deps.Presets.Save(c.Request.Context(), req.Name, params)
	switch {
	case errors.Is(err, presets.ErrEmptyName):
		fail(c, http.StatusBadRequest, err)
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Server) removePreset(c *gin.Context) {
	if err := s.deps.Presets.Remove(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) applyPreset(c *gin.Context) {
	err := s.deps.Presets.ApplyUser(c.Param("id"))
	if errors.Is(err, presets.ErrUnknownPreset) {
		fail(c, http.StatusNotFound, err)
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, s.deps.Model.Snapshot())
}

func (s *Server) setMode(c *gin.Context) {
	var req modeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	mode, err := effects.ParseMode(req.Mode)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	settings := s.deps.Settings.Update(func(st *pipeline.Settings) { st.Mode = mode })
	s.log.Info("Beauty mode changed", "mode", mode)
	c.JSON(http.StatusOK, settings)
}

func (s *Server) setFilters(c *gin.Context) {
	var req filtersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	if req.Enabled == nil {
		fail(c, http.StatusBadRequest, errors.New("missing enabled"))
		return
	}
	settings := s.deps.Settings.Update(func(st *pipeline.Settings) { st.FiltersEnabled = *req.Enabled })
	s.log.Info("Live filters toggled", "enabled", settings.FiltersEnabled)
	c.JSON(http.StatusOK, settings)
}

func (s *Server) listStickers(c *gin.Context) {
	c.JSON(http.StatusOK, overlay.Catalogue())
}

func (s *Server) setSticker(c *gin.Context) {
	var req stickerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	if err := s.deps.Compositor.Select(req.Sticker); err != nil {
		fail(c, http.StatusNotFound, err)
		return
	}
	c.JSON(http.StatusOK, s.deps.Compositor.Selected())
}

// getOverlay returns draw commands for a client rendering the preview at
// w x h over frames of fw x fh
func (s *Server) getOverlay(c *gin.Context) {
	var dims [4]float64
	for i, name := range []string{"w", "h", "fw", "fh"} {
		v, err := strconv.ParseFloat(c.Query(name), 64)
		if err != nil || v <= 0 {
			fail(c, http.StatusBadRequest, errors.New("w, h, fw and fh must be positive numbers"))
			return
		}
		dims[i] = v
	}
	cmds := s.deps.Compositor.Frame(
		overlay.Size{W: dims[0], H: dims[1]},
		overlay.Size{W: dims[2], H: dims[3]},
		time.Now(),
	)
	if cmds == nil {
		cmds = []overlay.Command{}
	}
	c.JSON(http.StatusOK, cmds)
}

// startCapture returns 202 at once unless wait=true is given
func (s *Server) startCapture(c *gin.Context) {
	results := s.Capture(c.Request.Context())
	if c.Query("wait") != "true" {
		c.JSON(http.StatusAccepted, gin.H{"status": "pending"})
		return
	}
	res := <-results
	if res.Err != nil {
		status := http.StatusInternalServerError
		if errors.Is(res.Err, capture.ErrPermissionDenied) || errors.Is(res.Err, capture.ErrDeviceBusy) || errors.Is(res.Err, ErrShuttingDown) {
			status = http.StatusServiceUnavailable
		}
		fail(c, status, res.Err)
		return
	}
	c.JSON(http.StatusCreated, res.Capture)
}

func (s *Server) listCaptures(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Finisher.List())
}

func (s *Server) getCapture(c *gin.Context) {
	sc, ok := s.deps.Finisher.Get(c.Param("id"))
	if !ok {
		fail(c, http.StatusNotFound, capture.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, sc)
}

func (s *Server) compareCapture(c *gin.Context) {
	split := 0.5
	if v := c.Query("split"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}
		split = f
	}
	width := defaultCompareWidth
	if v := c.Query("width"); v != "" {
		w, err := strconv.Atoi(v)
		if err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}
		width = w
	}

	img, err := s.deps.Finisher.Compare(c.Param("id"), split, width)
	switch {
	case errors.Is(err, capture.ErrNotFound):
		fail(c, http.StatusNotFound, err)
		return
	case errors.Is(err, capture.ErrInvalidWidth):
		fail(c, http.StatusBadRequest, err)
		return
	case err != nil:
		s.log.Error("Failed to build comparison", "id", c.Param("id"), "error", err)
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.Header("Content-Type", "image/jpeg")
	c.Status(http.StatusOK)
	if err := jpeg.Encode(c.Writer, img, &jpeg.Options{Quality: 90}); err != nil {
		s.log.Warn("Failed to encode comparison", "id", c.Param("id"), "error", err)
	}
}

func (s *Server) dismissCapture(c *gin.Context) {
	if !s.deps.Finisher.Dismiss(c.Param("id")) {
		fail(c, http.StatusNotFound, capture.ErrNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) switchCamera(c *gin.Context) {
	if s.deps.SwitchCamera == nil {
		fail(c, http.StatusNotImplemented, errors.New("camera switching unavailable"))
		return
	}
	facing, err := s.deps.SwitchCamera()
	if err != nil {
		fail(c, http.StatusServiceUnavailable, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"facing": facing})
}
