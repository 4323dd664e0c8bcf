package effects

import (
	"sync"
	"sync/atomic"
)

// ResetPreset is the selection recorded by Reset
const ResetPreset = "NONE"

type modelState struct {
	params   Parameters
	selected string
	version  uint64
}

// Model is the live, versioned parameter record. Writers are serialized;
// readers get a whole parameter set without locking. Listeners see changes
// in version order and must not mutate the model.
type Model struct {
	mu        sync.Mutex
	notifyMu  sync.Mutex
	cur       atomic.Pointer[modelState]
	listeners []func(Parameters)
}

// NewModel creates a model holding Defaults()
func NewModel() *Model {
	m := &Model{}
	m.cur.Store(&modelState{params: Defaults()})
	return m
}

// Snapshot returns a copy of the current parameters
func (m *Model) Snapshot() Parameters {
	return m.cur.Load().params
}

// Version increases by one on every mutation
func (m *Model) Version() uint64 {
	return m.cur.Load().version
}

// Selected returns the key of the last applied built-in preset, or "" once edited
func (m *Model) Selected() string {
	return m.cur.Load().selected
}

// Set clamps v into the field's range and stores it
func (m *Model) Set(f Field, v float64) (Parameters, error) {
	m.mu.Lock()
	cur := m.cur.Load()
	next, err := cur.params.With(f, v)
	if err != nil {
		m.mu.Unlock()
		return cur.params, err
	}
	listeners := m.swap(next, "", cur.version)
	m.notify(listeners, next)
	return next, nil
}

// ApplyPreset overwrites every field, advanced block included, from p.
// key records which preset was applied ("" for user presets).
func (m *Model) ApplyPreset(p Parameters, key string) Parameters {
	next := Clamp(p)

	m.mu.Lock()
	listeners := m.swap(next, key, m.cur.Load().version)
	m.notify(listeners, next)
	return next
}

// Reset restores the start-up defaults and selects the "NONE" preset
func (m *Model) Reset() Parameters {
	return m.ApplyPreset(Defaults(), ResetPreset)
}

// OnChange registers fn to be called after every mutation
func (m *Model) OnChange(fn func(Parameters)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(append([]func(Parameters){}, m.listeners...), fn)
}

// swap must be called with mu held
func (m *Model) swap(p Parameters, selected string, version uint64) []func(Parameters) {
	m.cur.Store(&modelState{params: p, selected: selected, version: version + 1})
	return m.listeners
}

// notify takes over from mu so the next writer can swap while listeners
// run, but cannot notify before them. Must be called with mu held.
func (m *Model) notify(listeners []func(Parameters), p Parameters) {
	m.notifyMu.Lock()
	m.mu.Unlock()
	defer m.notifyMu.Unlock()
	for _, fn := range listeners {
		fn(p)
	}
}
