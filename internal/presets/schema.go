package presets

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dudu/beautycam/internal/effects"
)

// StorageKey is the key-value entry holding the user preset collection
const StorageKey = "customPresets"

const schemaVersion = 2

var ErrUnsupportedSchema = errors.New("unsupported preset schema version")

type envelope struct {
	Version int      `json:"version"`
	Presets []Preset `json:"presets"`
}

// rawParams tolerates missing fields so defaults can be applied explicitly
type rawParams struct {
	Smoothing  *float64 `json:"smoothing"`
	Brightness *float64 `json:"brightness"`
	Saturation *float64 `json:"saturation"`
	Contrast   *float64 `json:"contrast"`
	Warmth     *float64 `json:"warmth"`
	EyeEnlarge *float64 `json:"eyeEnlarge"`
	FaceSlim   *float64 `json:"faceSlim"`
	ChinSlim   *float64 `json:"chinSlim"`
	NoseSlim   *float64 `json:"noseSlim"`
}

type rawAdvanced struct {
	EyeEnlarge *float64 `json:"eyeEnlarge"`
	FaceSlim   *float64 `json:"faceSlim"`
	ChinSlim   *float64 `json:"chinSlim"`
	NoseSlim   *float64 `json:"noseSlim"`
}

type rawV2Params struct {
	rawParams
	Advanced *rawAdvanced `json:"advanced"`
}

type rawV2Record struct {
	ID        json.RawMessage `json:"id"`
	Name      string          `json:"name"`
	Params    *rawV2Params    `json:"params"`
	CreatedAt time.Time       `json:"createdAt"`
}

// legacy records were flat: {id, name, smoothing, ..., eyeEnlarge?}
type rawLegacyRecord struct {
	ID   json.RawMessage `json:"id"`
	Name string          `json:"name"`
	rawParams
}

func (r rawParams) resolve() effects.Parameters {
	p := effects.Defaults()
	set := func(f effects.Field, v *float64) {
		if v != nil {
			p, _ = p.With(f, *v)
		}
	}
	set(effects.Smoothing, r.Smoothing)
	set(effects.Brightness, r.Brightness)
	set(effects.Saturation, r.Saturation)
	set(effects.Contrast, r.Contrast)
	set(effects.Warmth, r.Warmth)
	set(effects.EyeEnlarge, r.EyeEnlarge)
	set(effects.FaceSlim, r.FaceSlim)
	set(effects.ChinSlim, r.ChinSlim)
	set(effects.NoseSlim, r.NoseSlim)
	return p
}

func (r *rawV2Params) resolve() effects.Parameters {
	if r == nil {
		return effects.Defaults()
	}
	flat := r.rawParams
	if a := r.Advanced; a != nil {
		pick := func(dst **float64, v *float64) {
			if v != nil {
				*dst = v
			}
		}
		pick(&flat.EyeEnlarge, a.EyeEnlarge)
		pick(&flat.FaceSlim, a.FaceSlim)
		pick(&flat.ChinSlim, a.ChinSlim)
		pick(&flat.NoseSlim, a.NoseSlim)
	}
	return flat.resolve()
}

// decodeID accepts both string ids and the numeric timestamps older records used
func decodeID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// decodeCollection parses a stored collection in any known shape and
// returns the valid records in stored order. Invalid records are dropped.
func decodeCollection(data []byte, log *slog.Logger) ([]Preset, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var candidates []Preset
	switch data[0] {
	case '[':
		var legacy []json.RawMessage
		if err := json.Unmarshal(data, &legacy); err != nil {
			return nil, fmt.Errorf("failed to decode legacy presets: %w", err)
		}
		for i, raw := range legacy {
			var rec rawLegacyRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				log.Warn("Dropping malformed preset record", "index", i, "error", err)
				continue
			}
			candidates = append(candidates, Preset{
				ID:     decodeID(rec.ID),
				Name:   strings.TrimSpace(rec.Name),
				Params: rec.resolve(),
			})
		}
		log.Info("Migrating legacy preset collection", "records", len(legacy))
	case '{':
		var head struct {
			Version int `json:"version"`
		}
		if err := json.Unmarshal(data, &head); err != nil {
			return nil, fmt.Errorf("failed to decode presets: %w", err)
		}
		if head.Version != schemaVersion {
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedSchema, head.Version)
		}
		var env struct {
			Presets []json.RawMessage `json:"presets"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("failed to decode presets: %w", err)
		}
		for i, raw := range env.Presets {
			var rec rawV2Record
			if err := json.Unmarshal(raw, &rec); err != nil {
				log.Warn("Dropping malformed preset record", "index", i, "error", err)
				continue
			}
			candidates = append(candidates, Preset{
				ID:        decodeID(rec.ID),
				Name:      strings.TrimSpace(rec.Name),
				Params:    rec.Params.resolve(),
				CreatedAt: rec.CreatedAt,
			})
		}
	default:
		return nil, fmt.Errorf("failed to decode presets: unexpected leading byte %q", data[0])
	}

	seen := make(map[string]bool, len(candidates))
	out := make([]Preset, 0, len(candidates))
	for _, p := range candidates {
		switch {
		case p.ID == "":
			log.Warn("Dropping preset without id", "name", p.Name)
			continue
		case p.Name == "":
			log.Warn("Dropping preset without name", "id", p.ID)
			continue
		case seen[p.ID]:
			log.Warn("Dropping preset with duplicate id", "id", p.ID, "name", p.Name)
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out, nil
}

func encodeCollection(presets []Preset) ([]byte, error) {
	if presets == nil {
		presets = []Preset{}
	}
	return json.Marshal(envelope{Version: schemaVersion, Presets: presets})
}
