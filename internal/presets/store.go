// Package presets holds the shipped parameter bundles and the persisted
// collection of user presets.
package presets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dudu/beautycam/internal/effects"
	"github.com/dudu/beautycam/internal/kv"
	"github.com/dudu/beautycam/internal/logging"
)

var (
	ErrEmptyName     = errors.New("preset name is empty")
	ErrUnknownPreset = errors.New("unknown preset")
)

// Preset is a user-named snapshot of effect parameters
type Preset struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Params    effects.Parameters `json:"params"`
	CreatedAt time.Time          `json:"createdAt"`
}

// Store owns the user preset collection. Every mutation is written through
// to the key-value store before the in-memory collection changes.
type Store struct {
	mutex   sync.Mutex
	kv      kv.Store
	model   *effects.Model
	presets []Preset
	log     *slog.Logger
	newID   func() (string, error)
	now     func() time.Time
}

func NewStore(store kv.Store, model *effects.Model) *Store {
	return &Store{
		kv:    store,
		model: model,
		log:   logging.GetLogger().With("component", "presets"),
		newID: newUUID,
		now:   time.Now,
	}
}

func newUUID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Load replaces the in-memory collection with the persisted one. A missing
// entry is an empty collection. On error the collection is left empty.
func (s *Store) Load(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.presets = nil
	data, err := s.kv.Get(ctx, StorageKey)
	if errors.Is(err, kv.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read presets: %w", err)
	}

	presets, err := decodeCollection(data, s.log)
	if err != nil {
		return err
	}
	s.presets = presets
	s.log.Debug("Loaded presets", "count", len(presets))
	return nil
}

// List returns the user presets in insertion order
func (s *Store) List() []Preset {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	out := make([]Preset, len(s.presets))
	copy(out, s.presets)
	return out
}

func (s *Store) Get(id string) (Preset, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Preset{}, false
	}
	return s.presets[i], true
}

// Save appends a new preset holding params under a fresh id
func (s *Store) Save(ctx context.Context, name string, params effects.Parameters) (Preset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Preset{}, ErrEmptyName
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	id, err := s.uniqueID()
	if err != nil {
		return Preset{}, fmt.Errorf("failed to generate preset id: %w", err)
	}
	p := Preset{
		ID:        id,
		Name:      name,
		Params:    effects.Clamp(params),
		CreatedAt: s.now().UTC(),
	}

	next := make([]Preset, 0, len(s.presets)+1)
	next = append(next, s.presets...)
	next = append(next, p)
	if err := s.persist(ctx, next); err != nil {
		return Preset{}, err
	}
	s.presets = next
	s.log.Info("Saved preset", "id", p.ID, "name", p.Name)
	return p, nil
}

// Remove deletes a preset by id. An absent id is not an error.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	next := make([]Preset, 0, len(s.presets))
	for _, p := range s.presets {
		if p.ID != id {
			next = append(next, p)
		}
	}
	if len(next) == len(s.presets) {
		return nil
	}
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.log.Info("Removed preset", "id", id)
	s.presets = next
	return nil
}

// ApplyBuiltin loads a shipped preset into the model. Unknown keys are ignored.
func (s *Store) ApplyBuiltin(key string) bool {
	b, ok := LookupBuiltin(key)
	if !ok {
		s.log.Debug("Ignoring unknown builtin preset", "key", key)
		return false
	}
	s.model.ApplyPreset(b.Params, b.Key)
	return true
}

// ApplyUser loads a saved preset, advanced fields included, into the model
func (s *Store) ApplyUser(id string) error {
	p, ok := s.Get(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPreset, id)
	}
	s.model.ApplyPreset(p.Params, "")
	return nil
}

func (s *Store) indexOf(id string) int {
	for i, p := range s.presets {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) uniqueID() (string, error) {
	for attempt := 0; attempt < 8; attempt++ {
		id, err := s.newID()
		if err != nil {
			return "", err
		}
		if s.indexOf(id) < 0 {
			return id, nil
		}
	}
	return "", errors.New("exhausted attempts to find an unused id")
}

func (s *Store) persist(ctx context.Context, presets []Preset) error {
	data, err := encodeCollection(presets)
	if err != nil {
		return fmt.Errorf("failed to encode presets: %w", err)
	}
	if err := s.kv.Set(ctx, StorageKey, data); err != nil {
		return fmt.Errorf("failed to persist presets: %w", err)
	}
	return nil
}
