package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campus-events/eventsvc/internal/config"
	"github.com/campus-events/eventsvc/internal/database"
	"github.com/campus-events/eventsvc/internal/repository"
	"github.com/campus-events/eventsvc/internal/service"
)

type stores struct {
	users  service.UserStore
	events service.EventStore
	close  func()
}

// openStores connects the configured driver. With migrate set the postgres
// schema or the mongo indexes are ensured first.
func openStores(ctx context.Context, cfg config.Database, log *zap.Logger, migrate bool) (*stores, error) {
	switch cfg.Driver {
	case "postgres":
		pool, err := database.NewPool(ctx, cfg.Postgres, log)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		if migrate {
			if err := database.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
			log.Info("postgres schema ready")
		}
		return &stores{
			users:  repository.NewUserRepository(pool),
			events: repository.NewEventRepository(pool),
			close:  pool.Close,
		}, nil

	case "mongo":
		client, db, err := database.NewMongo(ctx, cfg.Mongo, log)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		disconnect := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(ctx); err != nil {
				log.Warn("mongo disconnect", zap.Error(err))
			}
		}
		if migrate {
			if err := database.EnsureIndexes(ctx, db); err != nil {
				disconnect()
				return nil, fmt.Errorf("ensure indexes: %w", err)
			}
			log.Info("mongo indexes ready")
		}
		return &stores{
			users:  repository.NewMongoUserRepository(db),
			events: repository.NewMongoEventRepository(db),
			close:  disconnect,
		}, nil

	default:
		log.Warn("using in-memory store; data is lost on exit")
		return &stores{
			users:  repository.NewMemoryUserRepository(),
			events: repository.NewMemoryEventRepository(),
			close:  func() {},
		}, nil
	}
}
