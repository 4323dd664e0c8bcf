package main

import (
	"context"
	"fmt"

	"github.com/dudu/beautycam/internal/config"
	"github.com/dudu/beautycam/internal/effects"
	"github.com/dudu/beautycam/internal/kv"
	"github.com/dudu/beautycam/internal/presets"
)

// openKV creates the preset key-value backend
func openKV(c config.Config) (kv.Store, error) {
	switch c.PresetBackend {
	case "memory":
		return kv.NewMemory(), nil
	case "sqlite":
		return kv.NewSQLite(c.SQLitePath)
	case "redis":
		return kv.NewRedis(&kv.RedisConfig{
			Addr:      c.RedisAddr,
			Password:  c.RedisPassword,
			DB:        c.RedisDB,
			Namespace: c.RedisNamespace,
		})
	}
	return nil, fmt.Errorf("unknown preset backend %q", c.PresetBackend)
}

// openPresets loads the user preset collection into a fresh model. A
// collection that cannot be read is reported but leaves the store usable.
func openPresets(ctx context.Context, c config.Config) (*effects.Model, *presets.Store, kv.Store, error) {
	store, err := openKV(c)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open preset store: %w", err)
	}
	model := effects.NewModel()
	ps := presets.NewStore(store, model)
	if err := ps.Load(ctx); err != nil {
		fmt.Printf("Warning: presets not loaded: %v\n", err)
	}
	return model, ps, store, nil
}
