// Package postgres records into PostgreSQL through the gorm backend.
package postgres

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/rs/zerolog"

	"github.com/gw2overlay/linkbridge/internal/config"
	"github.com/gw2overlay/linkbridge/internal/database"
	gormstorage "github.com/gw2overlay/linkbridge/internal/storage/gorm"
)

// Dependencies holds what the postgres backend needs to connect and log.
type Dependencies struct {
	Config        config.PostgresConfig
	Logger        *slog.Logger
	DBLogger      zerolog.Logger
	FlushInterval time.Duration
	QueueLimit    int
}

// Backend connects on Init and then behaves as the gorm backend.
type Backend struct {
	*gormstorage.Backend
	deps Dependencies
}

// New creates an unconnected postgres backend.
func New(deps Dependencies) *Backend {
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			Logger:        deps.Logger,
			FlushInterval: deps.FlushInterval,
			QueueLimit:    deps.QueueLimit,
		}),
		deps: deps,
	}
}

// Init connects, migrates and starts the writer.
func (b *Backend) Init() error {
	m := database.NewManager(b.deps.DBLogger)
	if err := m.ConnectPostgres(b.deps.Config); err != nil {
		return err
	}
	b.SetDB(m.DB)
	if err := b.Backend.Init(); err != nil {
		return fmt.Errorf("postgres backend: %w", err)
	}
	return nil
}
