package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"github.com/dudu/beautycam/internal/camera"
	"github.com/dudu/beautycam/internal/capture"
	"github.com/dudu/beautycam/internal/control"
	"github.com/dudu/beautycam/internal/detector"
	"github.com/dudu/beautycam/internal/effects"
	"github.com/dudu/beautycam/internal/imaging"
	"github.com/dudu/beautycam/internal/inference"
	"github.com/dudu/beautycam/internal/landmarks"
	"github.com/dudu/beautycam/internal/logging"
	"github.com/dudu/beautycam/internal/overlay"
	"github.com/dudu/beautycam/internal/pipeline"
	"github.com/dudu/beautycam/internal/presets"
	"github.com/dudu/beautycam/internal/storage"
	"github.com/dudu/beautycam/internal/ui"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Open the camera with a live preview window",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCamera(cmd.Context(), cfg.Preview)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the camera headless, driven by the control API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.ControlAddr == "" {
			cfg.ControlAddr = ":8080"
		}
		return runCamera(cmd.Context(), false)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{runCmd, serveCmd} {
		flags := cmd.Flags()
		flags.StringVar(&cfg.Facing, "facing", cfg.Facing, "Initial camera: front or back")
		flags.IntVar(&cfg.FrontCamera, "front", cfg.FrontCamera, "Front camera device index")
		flags.IntVar(&cfg.BackCamera, "back", cfg.BackCamera, "Back camera device index")
		flags.IntVar(&cfg.Width, "width", cfg.Width, "Capture width")
		flags.IntVar(&cfg.Height, "height", cfg.Height, "Capture height")
		flags.IntVar(&cfg.FPS, "fps", cfg.FPS, "Target frames per second")

		flags.IntVar(&cfg.DetectionInterval, "interval", cfg.DetectionInterval, "Run face detection every N frames")
		flags.IntVar(&cfg.DetectionSize, "detection-size", cfg.DetectionSize, "Detector input size")
		flags.Float64Var(&cfg.ConfThreshold, "conf", cfg.ConfThreshold, "Face confidence threshold")
		flags.Float64Var(&cfg.NMSThreshold, "nms", cfg.NMSThreshold, "Face NMS threshold")
		flags.StringVar(&cfg.DetectorModel, "detector", cfg.DetectorModel, "SCRFD model path")
		flags.StringVar(&cfg.LandmarkModel, "landmarks", cfg.LandmarkModel, "106-point landmark model path (optional)")
		flags.StringVar(&cfg.ONNXLibraryPath, "onnx-lib", cfg.ONNXLibraryPath, "ONNX Runtime shared library")
		flags.BoolVar(&cfg.ClearOnMiss, "clear-on-miss", cfg.ClearOnMiss, "Drop landmarks as soon as a detection finds no face")

		flags.StringVar(&cfg.Mode, "mode", cfg.Mode, "Beauty mode: basic or advanced")
		flags.BoolVar(&cfg.FiltersEnabled, "filters", cfg.FiltersEnabled, "Start with live filters on")
		flags.StringVar(&cfg.Sticker, "sticker", cfg.Sticker, "Initial sticker")

		flags.StringVar(&cfg.OutputBackend, "output", cfg.OutputBackend, "Photo output: disk or s3")
		flags.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "Photo directory for disk output")
		flags.StringVar(&cfg.S3Bucket, "s3-bucket", cfg.S3Bucket, "S3 bucket for photos")
		flags.StringVar(&cfg.S3Region, "s3-region", cfg.S3Region, "S3 region")
		flags.StringVar(&cfg.S3Prefix, "s3-prefix", cfg.S3Prefix, "S3 key prefix")
		flags.StringVar(&cfg.S3Endpoint, "s3-endpoint", cfg.S3Endpoint, "S3 endpoint for compatible services")
		flags.StringVar(&cfg.CacheDir, "cache-dir", cfg.CacheDir, "Directory for intermediate stills")
		flags.IntVar(&cfg.JPEGQuality, "jpeg-quality", cfg.JPEGQuality, "JPEG quality for saved photos")
	}
	runCmd.Flags().BoolVar(&cfg.Preview, "preview", cfg.Preview, "Show preview window")

	rootCmd.AddCommand(runCmd, serveCmd)
}

func runCamera(ctx context.Context, preview bool) error {
	log := logging.GetLogger()
	fmt.Println("BeautyCam starting...")

	model, ps, store, err := openPresets(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	mode, _ := effects.ParseMode(cfg.Mode)
	settings := pipeline.NewSettingsStore(pipeline.Settings{Mode: mode, FiltersEnabled: cfg.FiltersEnabled})
	state := landmarks.NewState()
	compositor := overlay.NewCompositor(state)
	if err := compositor.Select(cfg.Sticker); err != nil {
		return err
	}

	fmt.Println("Loading face models...")
	if err := inference.Initialize(cfg.ONNXLibraryPath); err != nil {
		return err
	}
	defer inference.Shutdown()

	det, err := detector.New(detector.Config{
		ModelPath:     cfg.DetectorModel,
		LandmarkPath:  cfg.LandmarkModel,
		InputSize:     cfg.DetectionSize,
		ConfThreshold: float32(cfg.ConfThreshold),
		NMSThreshold:  float32(cfg.NMSThreshold),
	})
	if err != nil {
		return fmt.Errorf("failed to create detector: %w", err)
	}
	defer det.Close()

	fmt.Printf("Opening %s camera...\n", cfg.Facing)
	cam, err := camera.NewCapture(camera.Config{
		Front:       cfg.FrontCamera,
		Back:        cfg.BackCamera,
		Facing:      cfg.Facing,
		Width:       cfg.Width,
		Height:      cfg.Height,
		FPS:         cfg.FPS,
		CacheDir:    cfg.CacheDir,
		JPEGQuality: cfg.JPEGQuality,
	})
	if err != nil {
		return fmt.Errorf("failed to open camera: %w", err)
	}
	defer cam.Close()
	fmt.Printf("Camera opened: %dx%d\n", cam.Width(), cam.Height())

	output, err := storage.New(storage.Config{
		Type:     storage.Type(cfg.OutputBackend),
		Dir:      cfg.OutputDir,
		Bucket:   cfg.S3Bucket,
		Region:   cfg.S3Region,
		Prefix:   cfg.S3Prefix,
		Endpoint: cfg.S3Endpoint,
	})
	if err != nil {
		return fmt.Errorf("failed to open photo output: %w", err)
	}

	processor := imaging.NewProcessor(cfg.CacheDir, cfg.JPEGQuality)
	finisher := capture.NewFinisher(capture.Config{}, cam, processor, output)

	var sched *pipeline.Scheduler[gocv.Mat]
	server := control.NewServer(control.Deps{
		Model:        model,
		Presets:      ps,
		Settings:     settings,
		Compositor:   compositor,
		State:        state,
		Finisher:     finisher,
		SwitchCamera: cam.Switch,
		Stats:        func() pipeline.Stats { return sched.Stats() },
	})

	retention := landmarks.RetainStale
	if cfg.ClearOnMiss {
		retention = landmarks.ClearOnMiss
	}
	sched = pipeline.NewScheduler(pipeline.Config[gocv.Mat]{
		Interval:  uint64(cfg.DetectionInterval),
		Retention: retention,
		Retain:    func(m gocv.Mat) gocv.Mat { return m.Clone() },
		Release:   func(m gocv.Mat) { m.Close() },
		OnPublish: server.PublishFace,
	}, pipeline.Detector[gocv.Mat](det), state, settings)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		_ = sched.Run(ctx)
	}()
	// the detector must be idle before it is closed
	defer func() { cancel(); <-schedDone }()

	serverErr := make(chan error, 1)
	if cfg.ControlAddr != "" {
		serverDone := make(chan struct{})
		go func() {
			defer close(serverDone)
			if err := server.Run(ctx, cfg.ControlAddr); err != nil {
				serverErr <- err
			}
		}()
		// pending captures still use the camera
		defer func() { cancel(); <-serverDone }()
	}

	var window *ui.Window
	if preview {
		window = ui.NewWindow("BeautyCam", cam.Width(), cam.Height())
		defer window.Close()
		fmt.Println(ui.KeyHelp)
	}

	live := &liveLoop{
		log:        log,
		cam:        cam,
		model:      model,
		presets:    ps,
		settings:   settings,
		state:      state,
		compositor: compositor,
		processor:  processor,
		finisher:   finisher,
		server:     server,
		sched:      sched,
		window:     window,
	}
	fmt.Println("\nRunning... Press Ctrl+C to stop")
	return live.run(ctx, serverErr)
}

// liveLoop owns the frame domain: read, offer to detection, render
type liveLoop struct {
	log        *slog.Logger
	cam        *camera.Capture
	model      *effects.Model
	presets    *presets.Store
	settings   *pipeline.SettingsStore
	state      *landmarks.State
	compositor *overlay.Compositor
	processor  *imaging.Processor
	finisher   *capture.Finisher
	server     *control.Server
	sched      *pipeline.Scheduler[gocv.Mat]
	window     *ui.Window

	preset  int
	pending <-chan capture.Outcome
	message string
	until   time.Time
}

func (l *liveLoop) run(ctx context.Context, serverErr <-chan error) error {
	frame := gocv.NewMat()
	defer frame.Close()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nShutting down...")
			return nil
		case err := <-serverErr:
			return err
		default:
		}

		seq, ok := l.cam.Read(&frame)
		if !ok {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		l.sched.Offer(pipeline.Frame[gocv.Mat]{Seq: seq, Timestamp: time.Now().UnixNano(), Buffer: frame})

		if l.window == nil {
			continue
		}
		if quit := l.render(ctx, &frame); quit {
			fmt.Println("\nQuitting...")
			return nil
		}
	}
}

// render applies live effects and stickers to frame, shows it and
// handles one key press. It reports whether the user asked to quit.
func (l *liveLoop) render(ctx context.Context, frame *gocv.Mat) bool {
	l.collect()
	settings := l.settings.Load()
	pub := l.state.Load()
	if params, ok := settings.Effects(l.model.Snapshot()); ok {
		if err := l.processor.Apply(frame, params, pub.Snapshot); err != nil {
			l.log.Warn("Live effects failed", "error", err)
		}
	}

	size := overlay.Size{W: float64(frame.Cols()), H: float64(frame.Rows())}
	cmds := l.compositor.Frame(size, size, time.Now())

	status := ui.Status{
		FaceDetected: pub.FaceDetected,
		Mode:         string(settings.Mode),
		Filters:      settings.FiltersEnabled,
		Preset:       l.model.Selected(),
		Sticker:      l.compositor.Selected().Key,
	}
	if time.Now().Before(l.until) {
		status.Message = l.message
	}
	l.window.Show(frame, cmds, status)

	// WaitKey must be called to process window events on macOS
	return l.handle(ctx, ui.IntentForKey(l.window.WaitKey(1)))
}

func (l *liveLoop) handle(ctx context.Context, intent ui.Intent) bool {
	switch intent {
	case ui.IntentQuit:
		return true
	case ui.IntentCapture:
		if l.pending != nil {
			break
		}
		l.notify("Capturing...")
		l.pending = l.server.Capture(ctx)
	case ui.IntentToggleMode:
		next := l.settings.Update(func(s *pipeline.Settings) {
			if s.Mode == effects.ModeAdvanced {
				s.Mode = effects.ModeBasic
			} else {
				s.Mode = effects.ModeAdvanced
			}
		})
		l.notify("Mode: " + string(next.Mode))
	case ui.IntentToggleFilters:
		next := l.settings.Update(func(s *pipeline.Settings) { s.FiltersEnabled = !s.FiltersEnabled })
		l.notify(fmt.Sprintf("Filters: %t", next.FiltersEnabled))
	case ui.IntentNextSticker:
		l.notify("Sticker: " + l.compositor.Next().Name)
	case ui.IntentNextPreset:
		keys := presets.BuiltinKeys()
		l.preset = (l.preset + 1) % len(keys)
		l.presets.ApplyBuiltin(keys[l.preset])
		l.notify("Preset: " + keys[l.preset])
	case ui.IntentResetParams:
		l.model.Reset()
		l.preset = 0
		l.notify("Reset")
	case ui.IntentSwitchCamera:
		facing, err := l.cam.Switch()
		if err != nil {
			l.log.Error("Camera switch failed", "error", err)
			l.notify("Camera switch failed")
			break
		}
		l.notify("Camera: " + facing)
	case ui.IntentDismissCapture:
		list := l.finisher.List()
		if len(list) > 0 {
			l.finisher.Dismiss(list[len(list)-1].ID)
			l.notify("Capture dismissed")
		}
	}
	return false
}

// collect reports a finished capture without waiting for it
func (l *liveLoop) collect() {
	if l.pending == nil {
		return
	}
	select {
	case res, ok := <-l.pending:
		l.pending = nil
		switch {
		case !ok:
		case res.Err != nil:
			l.notify("Capture failed")
		case res.Capture.Degraded:
			l.notify("Saved without effects: " + res.Capture.Location)
		default:
			l.notify("Saved " + res.Capture.Location)
		}
	default:
	}
}

func (l *liveLoop) notify(msg string) {
	l.message = msg
	l.until = time.Now().Add(2 * time.Second)
}
