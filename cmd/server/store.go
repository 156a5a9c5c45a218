package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/civic-report-service/internal/adapter/filestore"
	"github.com/couchcryptid/civic-report-service/internal/adapter/memory"
	mongoadapter "github.com/couchcryptid/civic-report-service/internal/adapter/mongo"
	redisadapter "github.com/couchcryptid/civic-report-service/internal/adapter/redis"
	"github.com/couchcryptid/civic-report-service/internal/adapter/remote"
	"github.com/couchcryptid/civic-report-service/internal/adapter/sqlstore"
	"github.com/couchcryptid/civic-report-service/internal/config"
	"github.com/couchcryptid/civic-report-service/internal/report"
)

// openedStore is a report store plus whatever releases its resources.
type openedStore struct {
	report.Store
	close func()
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (openedStore, error) {
	noop := func() {}

	switch cfg.StoreBackend {
	case config.BackendMemory:
		return openedStore{Store: memory.NewStore(), close: noop}, nil

	case config.BackendFile:
		s, err := filestore.NewStore(cfg.StorePath, logger)
		if err != nil {
			return openedStore{}, fmt.Errorf("open file store: %w", err)
		}
		return openedStore{Store: s, close: func() { _ = s.Close() }}, nil

	case config.BackendSQLite, config.BackendPostgres:
		dialect := sqlstore.SQLite
		if cfg.StoreBackend == config.BackendPostgres {
			dialect = sqlstore.Postgres
		}
		s, err := sqlstore.Open(ctx, dialect, cfg.DatabaseURL, logger)
		if err != nil {
			return openedStore{}, fmt.Errorf("open %s store: %w", dialect.Name, err)
		}
		return openedStore{Store: s, close: func() {
			if err := s.Close(); err != nil {
				logger.Error("close sql store", "error", err)
			}
		}}, nil

	case config.BackendMongo:
		s, err := mongoadapter.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
		if err != nil {
			return openedStore{}, fmt.Errorf("open mongo store: %w", err)
		}
		return openedStore{Store: s, close: func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.Close(closeCtx); err != nil {
				logger.Error("close mongo store", "error", err)
			}
		}}, nil

	case config.BackendRedis:
		client := redisadapter.NewClient(cfg.RedisAddress, cfg.RedisPassword)
		return openedStore{
			Store: redisadapter.NewStore(client, cfg.RedisReportsKey),
			close: func() { _ = client.Close() },
		}, nil

	case config.BackendRemote:
		return openedStore{Store: remote.NewStore(cfg.RemoteStoreURL, cfg.RemoteStoreTimeout), close: noop}, nil
	}
	return openedStore{}, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
