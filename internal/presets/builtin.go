package presets

import "github.com/dudu/beautycam/internal/effects"

// Builtin is an immutable preset shipped with the camera
type Builtin struct {
	Key    string             `json:"key"`
	Name   string             `json:"name"`
	Icon   string             `json:"icon"`
	Params effects.Parameters `json:"params"`
}

func color(smoothing int, brightness, saturation, contrast, warmth float64) effects.Parameters {
	return effects.Parameters{
		Smoothing:  smoothing,
		Brightness: brightness,
		Saturation: saturation,
		Contrast:   contrast,
		Warmth:     warmth,
	}
}

// Saturation floor is 0.5, so the monochrome look leans on contrast rather than full desaturation.
var builtins = []Builtin{
	{Key: "NONE", Name: "Original", Icon: "📷", Params: color(0, 0, 1.0, 1.0, 0)},
	{Key: "CLARENDON", Name: "Clarendon", Icon: "☀️", Params: color(3, 0.1, 1.35, 1.2, 0.1)},
	{Key: "GINGHAM", Name: "Gingham", Icon: "🌸", Params: color(2, 0.05, 0.95, 1.05, -0.1)},
	{Key: "JUNO", Name: "Juno", Icon: "🌿", Params: color(3, 0.12, 1.4, 1.15, 0.2)},
	{Key: "LARK", Name: "Lark", Icon: "🌅", Params: color(2, 0.08, 1.2, 0.9, 0.15)},
	{Key: "MOON", Name: "Moon", Icon: "🌙", Params: color(5, 0.15, 0.7, 1.1, -0.2)},
	{Key: "VINTAGE", Name: "Vintage", Icon: "📸", Params: color(4, -0.05, 0.8, 1.25, 0.3)},
	{Key: "BW", Name: "Black & White", Icon: "⚫", Params: color(3, 0.05, 0.5, 1.2, 0)},
	{Key: "SEPIA", Name: "Sepia", Icon: "🍂", Params: color(3, 0.1, 0.5, 1.1, 0.4)},
	{Key: "NASHVILLE", Name: "Nashville", Icon: "🎸", Params: color(2, 0.12, 1.2, 1.2, 0.25)},
	{Key: "HUDSON", Name: "Hudson", Icon: "❄️", Params: color(2, 0.1, 1.1, 1.25, -0.15)},
}

// Builtins returns the shipped presets in display order
func Builtins() []Builtin {
	out := make([]Builtin, len(builtins))
	copy(out, builtins)
	return out
}

// BuiltinKeys returns the fixed keys in display order
func BuiltinKeys() []string {
	keys := make([]string, len(builtins))
	for i, b := range builtins {
		keys[i] = b.Key
	}
	return keys
}

// LookupBuiltin looks up a shipped preset by key
func LookupBuiltin(key string) (Builtin, bool) {
	for _, b := range builtins {
		if b.Key == key {
			return b, true
		}
	}
	return Builtin{}, false
}
