// Package postgres implements the storage.Backend interface using
// GORM/PostgreSQL. It wraps the shared GORM backend; the only
// postgres-specific concern is opening and validating the connection.
package postgres

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sandk/offroad-dynamics/internal/database"
	"github.com/sandk/offroad-dynamics/internal/run"
	gormstorage "github.com/sandk/offroad-dynamics/internal/storage/gorm"
)

// Backend wraps the GORM backend over a postgres connection.
type Backend struct {
	*gormstorage.Backend
}

// New creates a new postgres storage backend using viper db.* config.
func New(runCtx *run.Context, log zerolog.Logger) (*Backend, error) {
	db, err := database.GetPostgresDBStandalone()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to validate connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)

	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			DB:         db,
			RunContext: runCtx,
			Logger:     log,
		}),
	}, nil
}
