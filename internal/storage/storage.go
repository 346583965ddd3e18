// Package storage selects and wires the configured persistence backend.
package storage

import (
	"context"
	"fmt"

	"github.com/IgorGrieder/linkhive/internal/config"
	"github.com/IgorGrieder/linkhive/internal/infrastructure/db"
	"github.com/IgorGrieder/linkhive/internal/processing/analytics"
	"github.com/IgorGrieder/linkhive/internal/processing/links"
	"github.com/IgorGrieder/linkhive/internal/storage/memory"
	mongostorage "github.com/IgorGrieder/linkhive/internal/storage/mongo"
	pgstorage "github.com/IgorGrieder/linkhive/internal/storage/postgres"
)

// Backend is one store seen through the three ports the service layer uses.
type Backend struct {
	Name     string
	Links    links.LinkRepository
	Stats    links.StatsRepository
	Recorder analytics.Recorder

	ping  func(ctx context.Context) error
	close func()
}

func (b *Backend) Ping(ctx context.Context) error {
	if b.ping == nil {
		return nil
	}
	return b.ping(ctx)
}

func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

func Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	derived := cfg.DerivedClickCount()

	switch cfg.Storage.Backend {
	case config.StorageMemory:
		store := memory.NewStore(derived)
		return &Backend{
			Name:     config.StorageMemory,
			Links:    store,
			Stats:    store,
			Recorder: store,
			ping:     store.Ping,
		}, nil

	case config.StoragePostgres:
		pg, err := db.ConnectPostgres(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
		if err != nil {
			return nil, err
		}
		if err := pgstorage.EnsureSchema(ctx, pg); err != nil {
			pg.Close()
			return nil, err
		}
		linkRepo, err := pgstorage.NewLinksRepository(pg)
		if err != nil {
			pg.Close()
			return nil, err
		}
		statsRepo, err := pgstorage.NewStatsRepository(pg)
		if err != nil {
			pg.Close()
			return nil, err
		}
		recorder, err := pgstorage.NewClickRecorder(pg, derived)
		if err != nil {
			pg.Close()
			return nil, err
		}
		return &Backend{
			Name:     config.StoragePostgres,
			Links:    linkRepo,
			Stats:    statsRepo,
			Recorder: recorder,
			ping:     pg.Ping,
			close:    pg.Close,
		}, nil

	case config.StorageMongo:
		m, err := db.ConnectMongo(cfg.MongoDB.URI, cfg.MongoDB.Database, cfg.MongoDB.ConnectTimeout)
		if err != nil {
			return nil, err
		}
		closeMongo := func() { _ = m.Disconnect() }

		linkRepo, err := mongostorage.NewLinksRepository(m)
		if err != nil {
			closeMongo()
			return nil, err
		}
		statsRepo, err := mongostorage.NewStatsRepository(m)
		if err != nil {
			closeMongo()
			return nil, err
		}
		return &Backend{
			Name:     config.StorageMongo,
			Links:    linkRepo,
			Stats:    statsRepo,
			Recorder: mongostorage.NewClickRecorder(m, derived),
			ping:     m.Ping,
			close:    closeMongo,
		}, nil
	}

	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}
