package services

import (
	"context"
	"testing"
	"time"

	"bizdash/internal/core"
	"bizdash/internal/repository"
)

func TestRecurringProcessor_ProcessDue(t *testing.T) {
	ctx := context.Background()
	s, pub := newService(t)
	acc, _, expense := setup(t, s)

	rent := tx(acc, &expense, core.TypeExpense)
	rent.Description = "Aluguel escritório"
	rent.TransactionDate = core.NewDate(2024, 1, 5)
	due := core.NewDate(2024, 1, 10)
	rent.DueDate = &due
	rent.IsRecurring = true
	rent.RecurringFrequency = string(core.FrequencyMonthly)
	if _, err := s.CreateTransaction(ctx, rent); err != nil {
		t.Fatal(err)
	}

	ended := tx(acc, &expense, core.TypeExpense)
	ended.Description = "Licença antiga"
	ended.TransactionDate = core.NewDate(2023, 1, 5)
	end := core.NewDate(2023, 12, 31)
	ended.IsRecurring = true
	ended.RecurringFrequency = string(core.FrequencyYearly)
	ended.RecurringEndDate = &end
	if _, err := s.CreateTransaction(ctx, ended); err != nil {
		t.Fatal(err)
	}

	p := NewRecurringProcessor(s, quietLogger())
	now := time.Date(2024, 2, 6, 9, 0, 0, 0, time.UTC)

	n, err := p.ProcessDue(ctx, now)
	if err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if n != 1 {
		t.Fatalf("created %d occurrences, want 1", n)
	}
	if pub.last().Op != "create" {
		t.Errorf("occurrence should publish a create event")
	}

	txs, err := s.Repository().ListTransactions(ctx, repository.TransactionFilter{Search: "escritório"})
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 occurrences, got %d", len(txs))
	}
	newest := txs[0]
	if newest.TransactionDate != core.NewDate(2024, 2, 6) || newest.Status != core.StatusPending {
		t.Errorf("unexpected occurrence %+v", newest)
	}
	if newest.DueDate == nil || *newest.DueDate != core.NewDate(2024, 2, 11) {
		t.Errorf("due date should keep the 5 day offset, got %v", newest.DueDate)
	}

	again, err := p.ProcessDue(ctx, now.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if again != 0 {
		t.Fatalf("second run same day created %d", again)
	}
}

func TestRecurringProcessor_NotInitialized(t *testing.T) {
	if _, err := (&RecurringProcessor{}).ProcessDue(context.Background(), time.Now()); err == nil {
		t.Fatal("expected error")
	}
}
