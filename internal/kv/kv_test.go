package kv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "customPresets")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "customPresets", []byte(`[1]`)))
	v, err := s.Get(ctx, "customPresets")
	require.NoError(t, err)
	require.Equal(t, []byte(`[1]`), v)

	require.NoError(t, s.Set(ctx, "customPresets", []byte(`[1,2]`)))
	v, err = s.Get(ctx, "customPresets")
	require.NoError(t, err)
	require.Equal(t, []byte(`[1,2]`), v)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	defer s.Close()
	exerciseStore(t, s)
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	in := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", in))
	in[0] = 'x'

	out, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), out)
}

func TestMemoryStoreHonoursCancelledContext(t *testing.T) {
	s := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, s.Set(ctx, "k", []byte("v")))
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.db")
	s, err := NewSQLite(path)
	require.NoError(t, err)
	exerciseStore(t, s)
	require.NoError(t, s.Close())

	// Values survive reopening
	s, err = NewSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	v, err := s.Get(context.Background(), "customPresets")
	require.NoError(t, err)
	require.Equal(t, []byte(`[1,2]`), v)
}

func TestRedisKeyNamespacing(t *testing.T) {
	require.Equal(t, "cam:kv:customPresets", createKey("cam", "customPresets"))
	require.Equal(t, "kv:customPresets", createKey("", "customPresets"))
}

func TestNewRedisEmptyAddress(t *testing.T) {
	client, err := NewRedis(&RedisConfig{})
	require.Error(t, err)
	require.Nil(t, client)
}

func TestNewRedisUnreachable(t *testing.T) {
	client, err := NewRedis(&RedisConfig{Addr: "127.0.0.1:1"})
	require.Error(t, err)
	require.Nil(t, client)
	require.Contains(t, err.Error(), "failed to connect to Redis")
}
