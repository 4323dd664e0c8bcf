package reshape

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dudu/beautycam/internal/effects"
	"github.com/dudu/beautycam/internal/landmarks"
)

func snapshot() *landmarks.Snapshot {
	return landmarks.NewSnapshot(landmarks.RawFace{
		Bounds: landmarks.BoundingBox{X1: 100, Y1: 100, X2: 300, Y2: 340},
		Points: map[landmarks.Kind]landmarks.Point{
			landmarks.LeftEye:    {X: 150, Y: 180},
			landmarks.RightEye:   {X: 250, Y: 180},
			landmarks.NoseBase:   {X: 200, Y: 240},
			landmarks.LeftCheek:  {X: 140, Y: 250},
			landmarks.RightCheek: {X: 260, Y: 250},
			landmarks.LeftMouth:  {X: 170, Y: 290},
			landmarks.RightMouth: {X: 230, Y: 290},
		},
	})
}

func TestBuildNoop(t *testing.T) {
	_, ok := Build(400, 400, snapshot(), effects.Advanced{})
	require.False(t, ok)

	_, ok = Build(400, 400, nil, effects.Advanced{EyeEnlarge: 5})
	require.False(t, ok)

	_, ok = Build(0, 400, snapshot(), effects.Advanced{EyeEnlarge: 5})
	require.False(t, ok)

	noEyes := landmarks.NewSnapshot(landmarks.RawFace{
		Points: map[landmarks.Kind]landmarks.Point{landmarks.NoseBase: {X: 1, Y: 1}},
	})
	_, ok = Build(400, 400, noEyes, effects.Advanced{NoseSlim: 5})
	require.False(t, ok)
}

func TestEyeEnlargeMagnifiesAroundEye(t *testing.T) {
	f, ok := Build(400, 400, snapshot(), effects.Advanced{EyeEnlarge: 10})
	require.True(t, ok)

	// the eye center itself does not move
	x, y := f.Source(150, 180)
	require.InDelta(t, 150, x, 1e-4)
	require.InDelta(t, 180, y, 1e-4)

	// pixels right of the eye sample closer to it
	x, _ = f.Source(165, 180)
	require.Less(t, x, float32(165))
	require.Greater(t, x, float32(150))

	// outside the radius nothing moves
	x, y = f.Source(10, 10)
	require.Equal(t, float32(10), x)
	require.Equal(t, float32(10), y)
}

func TestNoseSlimShrinks(t *testing.T) {
	f, ok := Build(400, 400, snapshot(), effects.Advanced{NoseSlim: 10})
	require.True(t, ok)

	x, _ := f.Source(215, 240)
	require.Greater(t, x, float32(215))
}

func TestFaceSlimPullsCheeksInward(t *testing.T) {
	f, ok := Build(400, 400, snapshot(), effects.Advanced{FaceSlim: 10})
	require.True(t, ok)

	// content moves toward the nose, so the left cheek samples from further left
	x, _ := f.Source(140, 250)
	require.Less(t, x, float32(140))
	x, _ = f.Source(260, 250)
	require.Greater(t, x, float32(260))
}

func TestChinSlimLiftsChin(t *testing.T) {
	f, ok := Build(400, 400, snapshot(), effects.Advanced{ChinSlim: 10})
	require.True(t, ok)

	_, y := f.Source(200, 321)
	require.Greater(t, y, float32(321))
}

func TestStrengthScalesWithLevel(t *testing.T) {
	weak, ok := Build(400, 400, snapshot(), effects.Advanced{EyeEnlarge: 2})
	require.True(t, ok)
	strong, ok := Build(400, 400, snapshot(), effects.Advanced{EyeEnlarge: 8})
	require.True(t, ok)
	require.Greater(t, strong.MaxDisplacement(), weak.MaxDisplacement())
}

func TestFieldClipsToFrame(t *testing.T) {
	// face partly outside a small frame must not panic
	require.NotPanics(t, func() {
		f, ok := Build(160, 160, snapshot(), effects.Advanced{EyeEnlarge: 10, FaceSlim: 10, ChinSlim: 10, NoseSlim: 10})
		require.True(t, ok)
		require.Len(t, f.DX, 160*160)
	})
}
