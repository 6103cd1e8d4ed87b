// Package backend opens the Store selected by DATA_BACKEND.
package backend

import (
	"context"

	"bizdash/internal/repository"
	"bizdash/internal/storage"
)

// CleanupFunc releases the resources of a backend.
type CleanupFunc func() error

// BackendResult is an opened store, the repository over it, and its cleanup.
type BackendResult struct {
	Store   storage.Store
	Repo    *repository.Repository
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds what the factory needs to open any backend.
type Config struct {
	Type BackendType

	SQLiteDBPath  string
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string

	// SeedDemo fills an empty store with demo rows owned by DemoUserID.
	// The memory backend always seeds.
	SeedDemo   bool
	DemoUserID string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	MongoBackend    BackendType = "mongo"
	MemoryBackend   BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, PostgresBackend, MongoBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
