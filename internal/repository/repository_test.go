package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"bizdash/internal/core"
	"bizdash/internal/storage/memory"

	"github.com/shopspring/decimal"
)

var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func newRepo(t *testing.T) *Repository {
	t.Helper()
	return New(memory.New()).WithClock(func() time.Time { return testNow })
}

func mustAccount(t *testing.T, r *Repository, name string) core.Account {
	t.Helper()
	a, err := r.CreateAccount(context.Background(), core.Account{Name: name, Type: core.AccountChecking, IsActive: true, Currency: "BRL"})
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func mustCategory(t *testing.T, r *Repository, name string, typ core.CategoryType) core.Category {
	t.Helper()
	c, err := r.CreateCategory(context.Background(), core.Category{Name: name, Type: typ, Color: "#123456", IsActive: true})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func mustTx(t *testing.T, r *Repository, tx core.Transaction) core.Transaction {
	t.Helper()
	got, err := r.CreateTransaction(context.Background(), tx)
	if err != nil {
		t.Fatal(err)
	}
	return got
}

func TestTransactionRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	acc := mustAccount(t, r, "Main")
	due := core.NewDate(2024, 3, 20)
	created := mustTx(t, r, core.Transaction{
		Description: "Hosting", Amount: decimal.RequireFromString("19.90"), Type: core.TypeExpense,
		Status: core.StatusPending, TransactionDate: core.NewDate(2024, 3, 1), DueDate: &due,
		AccountID: acc.ID, Tags: []string{"infra", "monthly"}, IsRecurring: true,
	})
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("id and timestamps should be assigned: %+v", created)
	}

	got, err := r.GetTransaction(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Amount.Equal(decimal.RequireFromString("19.9")) || got.DueDate == nil || *got.DueDate != due {
		t.Fatalf("unexpected transaction %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[1] != "monthly" || !got.IsRecurring {
		t.Fatalf("tags or recurrence lost: %+v", got)
	}

	got.Status = core.StatusPaid
	updated, err := r.UpdateTransaction(ctx, got)
	if err != nil || updated.Status != core.StatusPaid {
		t.Fatalf("update: %+v %v", updated, err)
	}
}

func TestDeletedTransactionDisappearsFromListing(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	acc := mustAccount(t, r, "Main")
	keep := mustTx(t, r, core.Transaction{Description: "keep", Amount: decimal.NewFromInt(1), Type: core.TypeIncome, Status: core.StatusPaid, TransactionDate: core.NewDate(2024, 3, 1), AccountID: acc.ID})
	gone := mustTx(t, r, core.Transaction{Description: "gone", Amount: decimal.NewFromInt(2), Type: core.TypeIncome, Status: core.StatusPaid, TransactionDate: core.NewDate(2024, 3, 2), AccountID: acc.ID})

	if err := r.DeleteTransaction(ctx, gone.ID); err != nil {
		t.Fatal(err)
	}
	list, err := r.ListTransactions(ctx, TransactionFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != keep.ID {
		t.Fatalf("expected only %s, got %+v", keep.ID, list)
	}
	if err := r.DeleteTransaction(ctx, gone.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListTransactionsSearchAndFilters(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	main := mustAccount(t, r, "Main")
	card := mustAccount(t, r, "Corporate Card")
	rent := mustCategory(t, r, "Rent", core.CategoryExpense)
	sales := mustCategory(t, r, "Sales", core.CategoryIncome)

	mustTx(t, r, core.Transaction{Description: "Office", Amount: decimal.NewFromInt(900), Type: core.TypeExpense, Status: core.StatusPaid, TransactionDate: core.NewDate(2024, 3, 1), AccountID: main.ID, CategoryID: &rent.ID})
	mustTx(t, r, core.Transaction{Description: "Licence", Amount: decimal.NewFromInt(300), Type: core.TypeIncome, Status: core.StatusPending, TransactionDate: core.NewDate(2024, 3, 3), AccountID: main.ID, CategoryID: &sales.ID})
	mustTx(t, r, core.Transaction{Description: "Lunch", Amount: decimal.NewFromInt(40), Type: core.TypeExpense, Status: core.StatusPaid, TransactionDate: core.NewDate(2024, 3, 2), AccountID: card.ID})

	cases := []struct {
		name   string
		filter TransactionFilter
		want   []string
	}{
		{"all newest first", TransactionFilter{}, []string{"Licence", "Lunch", "Office"}},
		{"by category name", TransactionFilter{Search: "rent"}, []string{"Office"}},
		{"by account name", TransactionFilter{Search: "CORPORATE"}, []string{"Lunch"}},
		{"by type", TransactionFilter{Type: core.TypeExpense}, []string{"Lunch", "Office"}},
		{"by status", TransactionFilter{Status: core.StatusPending}, []string{"Licence"}},
		{"limit", TransactionFilter{Limit: 1}, []string{"Licence"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := r.ListTransactions(ctx, tc.filter)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %d transactions, want %v", len(got), tc.want)
			}
			for i, w := range tc.want {
				if got[i].Description != w {
					t.Fatalf("position %d = %s, want %s", i, got[i].Description, w)
				}
			}
		})
	}
}

func TestPaidTransactionsJoinCategory(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	acc := mustAccount(t, r, "Main")
	sales := mustCategory(t, r, "Sales", core.CategoryIncome)
	mustTx(t, r, core.Transaction{Description: "in range", Amount: decimal.NewFromInt(10), Type: core.TypeIncome, Status: core.StatusPaid, TransactionDate: core.NewDate(2024, 3, 31), AccountID: acc.ID, CategoryID: &sales.ID})
	mustTx(t, r, core.Transaction{Description: "pending", Amount: decimal.NewFromInt(10), Type: core.TypeIncome, Status: core.StatusPending, TransactionDate: core.NewDate(2024, 3, 10), AccountID: acc.ID})
	mustTx(t, r, core.Transaction{Description: "april", Amount: decimal.NewFromInt(10), Type: core.TypeIncome, Status: core.StatusPaid, TransactionDate: core.NewDate(2024, 4, 1), AccountID: acc.ID})

	got, err := r.PaidTransactions(ctx, core.MonthRange(testNow))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Category == nil || got[0].Category.Name != "Sales" || got[0].Category.Color != "#123456" {
		t.Fatalf("unexpected %+v", got)
	}
}

func TestListInvoicesDisplayStatus(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	c, err := r.CreateContact(ctx, core.Contact{Name: "Acme Corp"})
	if err != nil {
		t.Fatal(err)
	}
	for _, inv := range []core.Invoice{
		{InvoiceNumber: "INV-1", InvoiceDate: core.NewDate(2024, 2, 1), DueDate: core.NewDate(2024, 3, 1), Status: core.InvoiceSent, ContactID: &c.ID},
		{InvoiceNumber: "INV-2", InvoiceDate: core.NewDate(2024, 3, 1), DueDate: core.NewDate(2024, 4, 1), Status: core.InvoiceSent},
		{InvoiceNumber: "INV-3", InvoiceDate: core.NewDate(2024, 1, 1), DueDate: core.NewDate(2024, 2, 1), Status: core.InvoicePaid},
		{InvoiceNumber: "INV-4", InvoiceDate: core.NewDate(2024, 1, 5), DueDate: core.NewDate(2024, 2, 5), Status: core.InvoiceDraft},
	} {
		if _, err := r.CreateInvoice(ctx, inv); err != nil {
			t.Fatal(err)
		}
	}

	all, err := r.ListInvoices(ctx, InvoiceFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all.Invoices) != 4 || all.Invoices[0].InvoiceNumber != "INV-2" {
		t.Fatalf("expected newest first, got %+v", all.Invoices)
	}
	if all.Counts[core.InvoiceOverdue] != 1 || all.Counts[core.InvoiceSent] != 1 || all.Counts[core.InvoicePaid] != 1 {
		t.Fatalf("unexpected counts %v", all.Counts)
	}

	overdue, _ := r.ListInvoices(ctx, InvoiceFilter{Status: core.InvoiceOverdue})
	if len(overdue.Invoices) != 1 || overdue.Invoices[0].InvoiceNumber != "INV-1" {
		t.Fatalf("overdue filter: %+v", overdue.Invoices)
	}

	byContact, _ := r.ListInvoices(ctx, InvoiceFilter{Search: "acme"})
	if len(byContact.Invoices) != 1 || byContact.Invoices[0].Contact == nil {
		t.Fatalf("contact search: %+v", byContact.Invoices)
	}

	n, err := r.OverdueInvoices(ctx)
	if err != nil || n != 2 {
		t.Fatalf("overdue count = %d (err=%v), want 2 (sent + draft)", n, err)
	}
}

func TestListCategoriesByType(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	mustCategory(t, r, "Sales", core.CategoryIncome)
	mustCategory(t, r, "Rent", core.CategoryExpense)
	mustCategory(t, r, "Ads", core.CategoryExpense)

	got, err := r.ListCategories(ctx, core.CategoryExpense, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Name != "Ads" || got[1].Name != "Rent" {
		t.Fatalf("unexpected %+v", got)
	}
}

func TestSeedDemo(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	if err := r.SeedDemo(ctx, "demo", testNow); err != nil {
		t.Fatal(err)
	}
	budgets, err := r.ListBudgets(ctx, BudgetFilter{ActiveOnly: true})
	if err != nil || len(budgets) != 1 || budgets[0].Category == nil {
		t.Fatalf("budgets: %+v %v", budgets, err)
	}
	paid, err := r.PaidTransactions(ctx, core.MonthRange(testNow))
	if err != nil || len(paid) != 4 {
		t.Fatalf("paid this month: %d %v", len(paid), err)
	}
}
