package pipeline

import (
	"sync"
	"sync/atomic"

	"github.com/dudu/beautycam/internal/effects"
)

// Settings are the user switches that gate detection
type Settings struct {
	Mode           effects.Mode `json:"mode"`
	FiltersEnabled bool         `json:"filtersEnabled"`
}

// DetectionEnabled reports whether landmarks are needed at all. Advanced
// mode always needs them; basic mode only while live filters are on.
func (s Settings) DetectionEnabled() bool {
	return s.Mode == effects.ModeAdvanced || s.FiltersEnabled
}

// Effects returns the parameters to apply to live frames and whether any
// processing is needed. With filters off only the advanced warps remain.
func (s Settings) Effects(p effects.Parameters) (effects.Parameters, bool) {
	p = p.ForMode(s.Mode)
	if s.FiltersEnabled {
		return p, true
	}
	if s.Mode != effects.ModeAdvanced || p.Advanced.IsZero() {
		return p, false
	}
	n := effects.Neutral()
	n.Advanced = p.Advanced
	return n, true
}

// SettingsStore publishes Settings as immutable values
type SettingsStore struct {
	mu  sync.Mutex
	cur atomic.Pointer[Settings]
}

func NewSettingsStore(initial Settings) *SettingsStore {
	s := &SettingsStore{}
	s.cur.Store(&initial)
	return s
}

// Load returns the settings in effect right now
func (s *SettingsStore) Load() Settings {
	return *s.cur.Load()
}

// Update applies fn to a copy of the current settings and publishes the result
func (s *SettingsStore) Update(fn func(*Settings)) Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := *s.cur.Load()
	fn(&next)
	s.cur.Store(&next)
	return next
}
