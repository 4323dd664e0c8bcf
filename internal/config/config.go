// Package config holds runtime settings. Defaults can be overridden by
// BEAUTYCAM_* environment variables and then by command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dudu/beautycam/internal/effects"
	"github.com/dudu/beautycam/internal/overlay"
)

const envPrefix = "BEAUTYCAM_"

// Config holds every runtime setting
type Config struct {
	// Camera
	FrontCamera int
	BackCamera  int
	Facing      string // "front" or "back"
	Width       int
	Height      int
	FPS         int
	Preview     bool

	// Detection
	DetectionInterval int
	DetectionSize     int
	ConfThreshold     float64
	NMSThreshold      float64
	DetectorModel     string
	LandmarkModel     string // optional 106-point model for cheek points
	ONNXLibraryPath   string
	ClearOnMiss       bool

	// Effects
	Mode           string
	FiltersEnabled bool
	Sticker        string

	// Presets
	PresetBackend  string // memory, sqlite or redis
	SQLitePath     string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisNamespace string

	// Output
	OutputBackend string // disk or s3
	OutputDir     string
	S3Bucket      string
	S3Region      string
	S3Prefix      string
	S3Endpoint    string
	CacheDir      string
	JPEGQuality   int

	// Control API, empty disables it
	ControlAddr string

	LogLevel string
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		FrontCamera: 0,
		BackCamera:  1,
		Facing:      "front",
		Width:       1280,
		Height:      720,
		FPS:         30,
		Preview:     true,

		DetectionInterval: 3,
		DetectionSize:     640,
		ConfThreshold:     0.5,
		NMSThreshold:      0.4,
		DetectorModel:     "models/scrfd_10g.onnx",

		Mode:    string(effects.ModeBasic),
		Sticker: overlay.None,

		PresetBackend:  "sqlite",
		SQLitePath:     "beautycam.db",
		RedisAddr:      "127.0.0.1:6379",
		RedisNamespace: "beautycam",

		OutputBackend: "disk",
		OutputDir:     "photos",
		CacheDir:      filepath.Join(os.TempDir(), "beautycam"),
		JPEGQuality:   95,

		LogLevel: "info",
	}
}

// FromEnv returns Default() with environment overrides applied
func FromEnv() Config {
	return Apply(Default(), os.LookupEnv)
}

// Apply overrides c with values found through lookup
func Apply(c Config, lookup func(string) (string, bool)) Config {
	env := reader{lookup: lookup}

	env.readInt("FRONT_CAMERA", &c.FrontCamera)
	env.readInt("BACK_CAMERA", &c.BackCamera)
	env.readString("FACING", &c.Facing)
	env.readInt("WIDTH", &c.Width)
	env.readInt("HEIGHT", &c.Height)
	env.readInt("FPS", &c.FPS)
	env.readBool("PREVIEW", &c.Preview)

	env.readInt("DETECTION_INTERVAL", &c.DetectionInterval)
	env.readInt("DETECTION_SIZE", &c.DetectionSize)
	env.readFloat("CONF_THRESHOLD", &c.ConfThreshold)
	env.readFloat("NMS_THRESHOLD", &c.NMSThreshold)
	env.readString("DETECTOR_MODEL", &c.DetectorModel)
	env.readString("LANDMARK_MODEL", &c.LandmarkModel)
	env.readString("ONNX_LIBRARY", &c.ONNXLibraryPath)
	env.readBool("CLEAR_ON_MISS", &c.ClearOnMiss)

	env.readString("MODE", &c.Mode)
	env.readBool("FILTERS", &c.FiltersEnabled)
	env.readString("STICKER", &c.Sticker)

	env.readString("PRESET_BACKEND", &c.PresetBackend)
	env.readString("SQLITE_FILE", &c.SQLitePath)
	env.readString("REDIS_ADDR", &c.RedisAddr)
	env.readString("REDIS_PASSWORD", &c.RedisPassword)
	env.readInt("REDIS_DB", &c.RedisDB)
	env.readString("REDIS_NAMESPACE", &c.RedisNamespace)

	env.readString("OUTPUT_BACKEND", &c.OutputBackend)
	env.readString("OUTPUT_DIR", &c.OutputDir)
	env.readString("S3_BUCKET", &c.S3Bucket)
	env.readString("S3_REGION", &c.S3Region)
	env.readString("S3_PREFIX", &c.S3Prefix)
	env.readString("S3_ENDPOINT", &c.S3Endpoint)
	env.readString("CACHE_DIR", &c.CacheDir)
	env.readInt("JPEG_QUALITY", &c.JPEGQuality)

	env.readString("CONTROL_ADDR", &c.ControlAddr)
	env.readString("LOG_LEVEL", &c.LogLevel)
	return c
}

// Validate reports every invalid setting
func (c Config) Validate() error {
	var errs []error
	if c.Facing != "front" && c.Facing != "back" {
		errs = append(errs, fmt.Errorf("facing must be front or back, got %q", c.Facing))
	}
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("invalid resolution %dx%d", c.Width, c.Height))
	}
	if c.FPS <= 0 {
		errs = append(errs, fmt.Errorf("invalid fps %d", c.FPS))
	}
	if c.DetectionInterval <= 0 {
		errs = append(errs, fmt.Errorf("detection interval must be positive, got %d", c.DetectionInterval))
	}
	if c.DetectionSize <= 0 || c.DetectionSize%32 != 0 {
		errs = append(errs, fmt.Errorf("detection size must be a positive multiple of 32, got %d", c.DetectionSize))
	}
	if c.ConfThreshold <= 0 || c.ConfThreshold >= 1 {
		errs = append(errs, fmt.Errorf("confidence threshold must be in (0,1), got %v", c.ConfThreshold))
	}
	if c.NMSThreshold <= 0 || c.NMSThreshold >= 1 {
		errs = append(errs, fmt.Errorf("nms threshold must be in (0,1), got %v", c.NMSThreshold))
	}
	if _, err := effects.ParseMode(c.Mode); err != nil {
		errs = append(errs, err)
	}
	if _, err := overlay.Lookup(c.Sticker); err != nil {
		errs = append(errs, err)
	}
	switch c.PresetBackend {
	case "memory":
	case "sqlite":
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("sqlite preset backend needs a file path"))
		}
	case "redis":
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("redis preset backend needs an address"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown preset backend %q", c.PresetBackend))
	}
	switch c.OutputBackend {
	case "disk":
		if c.OutputDir == "" {
			errs = append(errs, errors.New("disk output needs a directory"))
		}
	case "s3":
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("s3 output needs a bucket"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown output backend %q", c.OutputBackend))
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("jpeg quality must be 1-100, got %d", c.JPEGQuality))
	}
	return errors.Join(errs...)
}

// CameraIndex returns the device index for the current facing
func (c Config) CameraIndex() int {
	if c.Facing == "back" {
		return c.BackCamera
	}
	return c.FrontCamera
}

type reader struct {
	lookup func(string) (string, bool)
}

func (r reader) get(name string) string {
	v, _ := r.lookup(envPrefix + name)
	return strings.TrimSpace(v)
}

func (r reader) readString(name string, value *string) {
	v := r.get(name)
	if v == "" {
		return
	}
	*value = v
}

func (r reader) readBool(name string, value *bool) {
	v := strings.ToLower(r.get(name))
	if v == "true" || v == "1" || v == "yes" || v == "on" {
		*value = true
	} else if v == "false" || v == "0" || v == "no" || v == "off" {
		*value = false
	}
}

func (r reader) readFloat(name string, value *float64) {
	v := r.get(name)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return
	}
	*value = f
}

func (r reader) readInt(name string, value *int) {
	v := r.get(name)
	if v == "" {
		return
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return
	}
	*value = i
}
