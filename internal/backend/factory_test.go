package backend

import (
	"context"
	"path/filepath"
	"testing"

	"bizdash/internal/config"
	"bizdash/internal/repository"
)

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{DataBackend: "postgres", DatabaseURL: "postgres://localhost/bizdash", DemoUserID: "u1"}
	bc, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bc.Type != PostgresBackend || bc.DatabaseURL != cfg.DatabaseURL {
		t.Fatalf("unexpected config %+v", bc)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"sqlite ok", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"mongo without database", Config{Type: MongoBackend, MongoURI: "mongodb://x"}, true},
		{"memory needs user", Config{Type: MemoryBackend}, true},
		{"memory ok", Config{Type: MemoryBackend, DemoUserID: "u1"}, false},
		{"unknown", Config{Type: "csv"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateMemoryBackendSeeds(t *testing.T) {
	ctx := context.Background()
	res, err := NewFactory(nil).CreateBackend(ctx, Config{Type: MemoryBackend, DemoUserID: "u1"})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Cleanup()

	accounts, err := res.Repo.ListAccounts(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(accounts) == 0 {
		t.Fatal("expected seeded accounts")
	}
}

func TestCreateSQLiteBackendSeedsOnce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bizdash.db")
	cfg := Config{Type: SQLiteBackend, SQLiteDBPath: path, SeedDemo: true, DemoUserID: "u1"}

	count := func() int {
		res, err := NewFactory(nil).CreateBackend(ctx, cfg)
		if err != nil {
			t.Fatalf("CreateBackend: %v", err)
		}
		defer res.Cleanup()
		txs, err := res.Repo.ListTransactions(ctx, repository.TransactionFilter{})
		if err != nil {
			t.Fatal(err)
		}
		return len(txs)
	}

	first := count()
	if first == 0 {
		t.Fatal("expected seeded transactions")
	}
	if second := count(); second != first {
		t.Fatalf("reopen seeded again: %d != %d", second, first)
	}
}
