package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	require.Equal(t, 3, c.DetectionInterval)
	require.Equal(t, "basic", c.Mode)
	require.Equal(t, 0, c.CameraIndex())
}

func TestApplyOverrides(t *testing.T) {
	c := Apply(Default(), lookupFrom(map[string]string{
		"BEAUTYCAM_DETECTION_INTERVAL": "5",
		"BEAUTYCAM_FACING":             "back",
		"BEAUTYCAM_BACK_CAMERA":        "2",
		"BEAUTYCAM_FILTERS":            "yes",
		"BEAUTYCAM_PREVIEW":            "off",
		"BEAUTYCAM_CONF_THRESHOLD":     "0.6",
		"BEAUTYCAM_PRESET_BACKEND":     "redis",
		"BEAUTYCAM_REDIS_DB":           "3",
		"BEAUTYCAM_STICKER":            "crown",
	}))

	require.Equal(t, 5, c.DetectionInterval)
	require.Equal(t, 2, c.CameraIndex())
	require.True(t, c.FiltersEnabled)
	require.False(t, c.Preview)
	require.Equal(t, 0.6, c.ConfThreshold)
	require.Equal(t, "redis", c.PresetBackend)
	require.Equal(t, 3, c.RedisDB)
	require.Equal(t, "crown", c.Sticker)
	require.NoError(t, c.Validate())
}

func TestApplyIgnoresMalformedValues(t *testing.T) {
	c := Apply(Default(), lookupFrom(map[string]string{
		"BEAUTYCAM_FPS":           "fast",
		"BEAUTYCAM_NMS_THRESHOLD": "x",
		"BEAUTYCAM_FILTERS":       "maybe",
		"BEAUTYCAM_OUTPUT_DIR":    "   ",
		"DETECTION_INTERVAL":      "9",
	}))
	d := Default()
	require.Equal(t, d.FPS, c.FPS)
	require.Equal(t, d.NMSThreshold, c.NMSThreshold)
	require.Equal(t, d.FiltersEnabled, c.FiltersEnabled)
	require.Equal(t, d.OutputDir, c.OutputDir)
	require.Equal(t, d.DetectionInterval, c.DetectionInterval)
}

func TestValidateCollectsErrors(t *testing.T) {
	c := Default()
	c.Facing = "side"
	c.DetectionInterval = 0
	c.DetectionSize = 100
	c.Mode = "pro"
	c.Sticker = "wings"
	c.PresetBackend = "etcd"
	c.OutputBackend = "s3"
	c.JPEGQuality = 0

	err := c.Validate()
	require.Error(t, err)
	for _, want := range []string{"facing", "detection interval", "detection size", "beauty mode", "sticker", "preset backend", "bucket", "jpeg quality"} {
		require.Contains(t, err.Error(), want)
	}
}
