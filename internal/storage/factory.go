// internal/storage/factory.go
package storage

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sandk/offroad-dynamics/internal/config"
	"github.com/sandk/offroad-dynamics/internal/run"
	"github.com/sandk/offroad-dynamics/internal/storage/memory"
	"github.com/sandk/offroad-dynamics/internal/storage/postgres"
	sqlitestorage "github.com/sandk/offroad-dynamics/internal/storage/sqlite"
	"github.com/sandk/offroad-dynamics/internal/storage/websocket"
)

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, runCtx *run.Context, log zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return postgres.New(runCtx, log)
	case "sqlite":
		return sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: cfg.SQLite.DumpInterval,
			DumpPath:     cfg.SQLite.DumpPath,
		}, runCtx, log)
	case "websocket":
		return websocket.New(websocket.Config{
			URL:   cfg.Websocket.URL,
			Token: cfg.Websocket.Token,
		}, log), nil
	case "memory":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
