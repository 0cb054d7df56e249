package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vietddude/remediator/internal/core/config"
	redisclient "github.com/vietddude/remediator/internal/infra/redis"
	"github.com/vietddude/remediator/internal/infra/storage"
	"github.com/vietddude/remediator/internal/infra/storage/memory"
	"github.com/vietddude/remediator/internal/infra/storage/postgres"
	"github.com/vietddude/remediator/internal/remediation/audit"
)

// Backend is an opened audit backend and the connections it owns.
type Backend struct {
	Store       *audit.Store
	DB          *postgres.DB
	RedisClient *redisclient.Client
}

// Close releases the backend connections.
func (b *Backend) Close() error {
	var firstErr error
	if b.DB != nil {
		if err := b.DB.Close(); err != nil {
			firstErr = fmt.Errorf("failed to close database: %w", err)
		}
	}
	if b.RedisClient != nil {
		if err := b.RedisClient.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close redis: %w", err)
		}
	}
	return firstErr
}

// OpenBackend connects the configured audit backend. Postgres schemas are
// migrated when migrate is set.
func OpenBackend(ctx context.Context, cfg *config.AppConfig, migrate bool, log *slog.Logger) (*Backend, error) {
	if log == nil {
		log = slog.Default()
	}

	var (
		errorRepo      storage.ErrorRepository
		correctionRepo storage.CorrectionRepository
		pinger         storage.Pinger
		backend        Backend
	)

	switch cfg.Audit.Backend {
	case config.BackendPostgres:
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if migrate {
			if err := postgres.Migrate(db.DB.DB); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("failed to migrate db: %w", err)
			}
		}
		errorRepo = postgres.NewErrorRepo(db)
		correctionRepo = postgres.NewCorrectionRepo(db)
		pinger = db
		backend.DB = db
		log.Info("Using PostgreSQL audit storage", "driver", cfg.Database.Driver)

	case config.BackendRedis:
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		errorRepo = redisclient.NewErrorRepo(client)
		correctionRepo = redisclient.NewCorrectionRepo(client)
		pinger = client
		backend.RedisClient = client
		log.Info("Using Redis audit storage")

	case config.BackendMemory:
		store := memory.NewMemoryStorage()
		errorRepo = memory.NewErrorRepo(store)
		correctionRepo = memory.NewCorrectionRepo(store)
		pinger = store
		log.Info("Using Memory audit storage")

	default:
		return nil, fmt.Errorf("unknown audit backend %q", cfg.Audit.Backend)
	}

	backend.Store = audit.NewStore(errorRepo, correctionRepo, pinger, audit.Config{
		HistoryLimit: cfg.Audit.HistoryLimit,
		Logger:       log,
	})
	return &backend, nil
}
