package backend

import (
	"context"
	"fmt"
	"time"

	"bizdash/internal/log"
	"bizdash/internal/repository"
	"bizdash/internal/storage"
	"bizdash/internal/storage/memory"
	"bizdash/internal/storage/mongo"
	"bizdash/internal/storage/postgres"
	"bizdash/internal/storage/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
	now    func() time.Time
}

func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.FromSlog(nil, log.ComponentBackend)
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend), now: time.Now}
}

var _ Factory = (*DefaultFactory)(nil)

// CreateBackend opens the configured store and, when asked, seeds it.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.open(ctx, config)
	if err != nil {
		return nil, err
	}

	repo := repository.New(store)
	if config.SeedDemo || config.Type == MemoryBackend {
		if err := f.seed(ctx, repo, config.DemoUserID); err != nil {
			store.Close()
			return nil, err
		}
	}

	f.logger.Info("Initialized backend", log.FieldBackend, config.Type.String())

	return &BackendResult{Store: store, Repo: repo, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) open(ctx context.Context, config Config) (storage.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		s, err := sqlite.Open(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		f.logger.Info("Opened SQLite store", "db_path", config.SQLiteDBPath)
		return s, nil
	case PostgresBackend:
		s, err := postgres.Open(ctx, config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres store: %w", err)
		}
		return s, nil
	case MongoBackend:
		s, err := mongo.Connect(ctx, config.MongoURI, config.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize mongo store: %w", err)
		}
		f.logger.Info("Opened mongo store", "database", config.MongoDatabase)
		return s, nil
	case MemoryBackend:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// seed only writes into a store without accounts so restarts are idempotent.
func (f *DefaultFactory) seed(ctx context.Context, repo *repository.Repository, userID string) error {
	accounts, err := repo.ListAccounts(ctx, false)
	if err != nil {
		return fmt.Errorf("check existing data: %w", err)
	}
	if len(accounts) > 0 {
		f.logger.Debug("Store already has data, skipping demo seed")
		return nil
	}
	if err := repo.SeedDemo(ctx, userID, f.now()); err != nil {
		return err
	}
	f.logger.Info("Seeded demo data", "user_id", userID)
	return nil
}
