// internal/storage/storage_test.go
package storage_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandk/offroad-dynamics/internal/config"
	"github.com/sandk/offroad-dynamics/internal/run"
	"github.com/sandk/offroad-dynamics/internal/storage"
)

func TestNewBackend_Memory(t *testing.T) {
	b, err := storage.NewBackend(config.StorageConfig{
		Type:   "memory",
		Memory: config.MemoryConfig{OutputDir: t.TempDir()},
	}, run.NewContext(), zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, b)

	// the memory backend produces a replay file on disk
	_, ok := b.(storage.Exportable)
	assert.True(t, ok)
}

func TestNewBackend_UnknownType(t *testing.T) {
	_, err := storage.NewBackend(config.StorageConfig{Type: "carrier-pigeon"}, run.NewContext(), zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage type")
}
