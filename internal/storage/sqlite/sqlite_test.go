package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"bizdash/internal/storage"

	"github.com/shopspring/decimal"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	acc, err := s.Insert(ctx, storage.Accounts, storage.Row{
		"name":            "Checking",
		"account_type":    "checking",
		"current_balance": decimal.RequireFromString("100.25"),
		"is_active":       true,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	rows, err := s.Select(ctx, storage.Query{
		Table:   storage.Accounts,
		Filters: []storage.Filter{storage.Eq("is_active", true)},
	})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 1 || rows[0]["current_balance"] != "100.25" || rows[0]["id"] != acc["id"] {
		t.Fatalf("unexpected rows %v", rows)
	}

	updated, err := s.Update(ctx, storage.Accounts, []storage.Filter{storage.Eq("id", acc["id"])}, storage.Row{"name": "Main"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated[0]["name"] != "Main" {
		t.Fatalf("update not applied: %v", updated)
	}

	if err := s.Delete(ctx, storage.Accounts, []storage.Filter{storage.Eq("id", acc["id"])}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, storage.Accounts, []storage.Filter{storage.Eq("id", acc["id"])}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreDateRangeAndOrder(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	acc, err := s.Insert(ctx, storage.Accounts, storage.Row{"name": "Cash", "account_type": "cash"})
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range []string{"2024-01-05", "2024-02-10", "2024-01-20"} {
		_, err := s.Insert(ctx, storage.Transactions, storage.Row{
			"description": "tx " + d, "amount": "10", "type": "income", "status": "paid",
			"transaction_date": d, "account_id": acc["id"],
		})
		if err != nil {
			t.Fatalf("insert tx: %v", err)
		}
	}
	rows, err := s.Select(ctx, storage.Query{
		Table: storage.Transactions,
		Filters: []storage.Filter{
			storage.Gte("transaction_date", "2024-01-01"),
			storage.Lte("transaction_date", "2024-01-31"),
		},
		Order: &storage.Order{Column: "transaction_date", Desc: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0]["transaction_date"] != "2024-01-20" {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestUpdateMissingRow(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Update(context.Background(), storage.Contacts, []storage.Filter{storage.Eq("id", "nope")}, storage.Row{"name": "x"})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
