// Package repository maps the bookkeeping tables onto domain types and
// implements the listing behaviour of each screen.
package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"bizdash/internal/core"
	"bizdash/internal/storage"
)

// ErrNotFound is returned when a record addressed by id does not exist.
var ErrNotFound = storage.ErrNotFound

type Repository struct {
	store storage.Store
	now   func() time.Time
}

func New(store storage.Store) *Repository {
	return &Repository{store: store, now: time.Now}
}

// WithClock overrides the clock used for overdue and expiry decisions.
func (r *Repository) WithClock(now func() time.Time) *Repository {
	r.now = now
	return r
}

func (r *Repository) Store() storage.Store { return r.store }

func byID(id string) []storage.Filter {
	return []storage.Filter{storage.Eq("id", id)}
}

func (r *Repository) one(ctx context.Context, table, id string) (storage.Row, error) {
	rows, err := r.store.Select(ctx, storage.Query{Table: table, Filters: byID(id), Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s %s: %w", table, id, ErrNotFound)
	}
	return rows[0], nil
}

func (r *Repository) update(ctx context.Context, table, id string, patch storage.Row) (storage.Row, error) {
	rows, err := r.store.Update(ctx, table, byID(id), patchOf(patch))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s %s: %w", table, id, ErrNotFound)
		}
		return nil, err
	}
	return rows[0], nil
}

func (r *Repository) remove(ctx context.Context, table, id string) error {
	if err := r.store.Delete(ctx, table, byID(id)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s %s: %w", table, id, ErrNotFound)
		}
		return err
	}
	return nil
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}

// ---- Transactions ----

// TransactionFilter narrows a transaction listing. Empty fields match all.
type TransactionFilter struct {
	Search string
	Type   core.TransactionType
	Status core.TransactionStatus
	Range  *core.Range
	Limit  int
}

// ListTransactions returns transactions newest first with category and
// account joined. Search matches description, category name or account name.
func (r *Repository) ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error) {
	q := storage.Query{
		Table: storage.Transactions,
		Order: &storage.Order{Column: "transaction_date", Desc: true},
	}
	if f.Type != "" {
		q.Filters = append(q.Filters, storage.Eq("type", string(f.Type)))
	}
	if f.Status != "" {
		q.Filters = append(q.Filters, storage.Eq("status", string(f.Status)))
	}
	if f.Range != nil {
		q.Filters = append(q.Filters,
			storage.Gte("transaction_date", f.Range.Start),
			storage.Lte("transaction_date", f.Range.End))
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))
	if search == "" {
		q.Limit = f.Limit
	}

	txs, err := r.selectTransactions(ctx, q)
	if err != nil {
		return nil, err
	}
	if search != "" {
		txs = slices.DeleteFunc(txs, func(t core.Transaction) bool {
			if contains(t.Description, search) {
				return false
			}
			if t.Category != nil && contains(t.Category.Name, search) {
				return false
			}
			return t.Account == nil || !contains(t.Account.Name, search)
		})
		if f.Limit > 0 && len(txs) > f.Limit {
			txs = txs[:f.Limit]
		}
	}
	return txs, nil
}

// PaidTransactions returns paid transactions dated within rng, categories
// joined, in storage order.
func (r *Repository) PaidTransactions(ctx context.Context, rng core.Range) ([]core.Transaction, error) {
	return r.selectTransactions(ctx, storage.Query{
		Table: storage.Transactions,
		Filters: []storage.Filter{
			storage.Gte("transaction_date", rng.Start),
			storage.Lte("transaction_date", rng.End),
			storage.Eq("status", string(core.StatusPaid)),
		},
		Order: &storage.Order{Column: "transaction_date"},
	})
}

// RecurringTransactions returns every transaction flagged recurring, oldest
// first, with category and account joined.
func (r *Repository) RecurringTransactions(ctx context.Context) ([]core.Transaction, error) {
	return r.selectTransactions(ctx, storage.Query{
		Table:   storage.Transactions,
		Filters: []storage.Filter{storage.Eq("is_recurring", true)},
		Order:   &storage.Order{Column: "transaction_date"},
	})
}

// CountTransactions counts transactions with the given status.
func (r *Repository) CountTransactions(ctx context.Context, status core.TransactionStatus) (int, error) {
	rows, err := r.store.Select(ctx, storage.Query{
		Table:   storage.Transactions,
		Filters: []storage.Filter{storage.Eq("status", string(status))},
	})
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return len(rows), nil
}

func (r *Repository) selectTransactions(ctx context.Context, q storage.Query) ([]core.Transaction, error) {
	rows, err := r.store.Select(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	cats, err := r.categoryIndex(ctx)
	if err != nil {
		return nil, err
	}
	accs, err := r.accountIndex(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Transaction, len(rows))
	for i, row := range rows {
		t := transactionFromRow(row)
		if t.CategoryID != nil {
			if c, ok := cats[*t.CategoryID]; ok {
				t.Category = &c
			}
		}
		if a, ok := accs[t.AccountID]; ok {
			t.Account = &a
		}
		out[i] = t
	}
	return out, nil
}

func (r *Repository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row, err := r.one(ctx, storage.Transactions, id)
	if err != nil {
		return core.Transaction{}, err
	}
	return transactionFromRow(row), nil
}

func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	row, err := r.store.Insert(ctx, storage.Transactions, transactionRow(t))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return transactionFromRow(row), nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	row, err := r.update(ctx, storage.Transactions, t.ID, transactionRow(t))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	return transactionFromRow(row), nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, id string) error {
	if err := r.remove(ctx, storage.Transactions, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

// ---- Accounts ----

// ListAccounts returns accounts ordered by name.
func (r *Repository) ListAccounts(ctx context.Context, activeOnly bool) ([]core.Account, error) {
	q := storage.Query{Table: storage.Accounts, Order: &storage.Order{Column: "name"}}
	if activeOnly {
		q.Filters = []storage.Filter{storage.Eq("is_active", true)}
	}
	rows, err := r.store.Select(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("select accounts: %w", err)
	}
	out := make([]core.Account, len(rows))
	for i, row := range rows {
		out[i] = accountFromRow(row)
	}
	return out, nil
}

func (r *Repository) accountIndex(ctx context.Context) (map[string]core.Account, error) {
	accs, err := r.ListAccounts(ctx, false)
	if err != nil {
		return nil, err
	}
	idx := make(map[string]core.Account, len(accs))
	for _, a := range accs {
		idx[a.ID] = a
	}
	return idx, nil
}

func (r *Repository) GetAccount(ctx context.Context, id string) (core.Account, error) {
	row, err := r.one(ctx, storage.Accounts, id)
	if err != nil {
		return core.Account{}, err
	}
	return accountFromRow(row), nil
}

func (r *Repository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	row, err := r.store.Insert(ctx, storage.Accounts, accountRow(a))
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	return accountFromRow(row), nil
}

func (r *Repository) UpdateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	row, err := r.update(ctx, storage.Accounts, a.ID, accountRow(a))
	if err != nil {
		return core.Account{}, fmt.Errorf("update account: %w", err)
	}
	return accountFromRow(row), nil
}

func (r *Repository) DeleteAccount(ctx context.Context, id string) error {
	if err := r.remove(ctx, storage.Accounts, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

// ---- Categories ----

// ListCategories returns categories ordered by name, optionally restricted
// to one type and to active ones.
func (r *Repository) ListCategories(ctx context.Context, typ core.CategoryType, activeOnly bool) ([]core.Category, error) {
	q := storage.Query{Table: storage.Categories, Order: &storage.Order{Column: "name"}}
	if typ != "" {
		q.Filters = append(q.Filters, storage.Eq("type", string(typ)))
	}
	if activeOnly {
		q.Filters = append(q.Filters, storage.Eq("is_active", true))
	}
	rows, err := r.store.Select(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	out := make([]core.Category, len(rows))
	for i, row := range rows {
		out[i] = categoryFromRow(row)
	}
	return out, nil
}

func (r *Repository) categoryIndex(ctx context.Context) (map[string]core.Category, error) {
	cats, err := r.ListCategories(ctx, "", false)
	if err != nil {
		return nil, err
	}
	idx := make(map[string]core.Category, len(cats))
	for _, c := range cats {
		idx[c.ID] = c
	}
	return idx, nil
}

func (r *Repository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	row, err := r.one(ctx, storage.Categories, id)
	if err != nil {
		return core.Category{}, err
	}
	return categoryFromRow(row), nil
}

func (r *Repository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	row, err := r.store.Insert(ctx, storage.Categories, categoryRow(c))
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return categoryFromRow(row), nil
}

func (r *Repository) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	row, err := r.update(ctx, storage.Categories, c.ID, categoryRow(c))
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	return categoryFromRow(row), nil
}

func (r *Repository) DeleteCategory(ctx context.Context, id string) error {
	if err := r.remove(ctx, storage.Categories, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

// ---- Budgets ----

type BudgetFilter struct {
	ActiveOnly bool
	Limit      int
}

// ListBudgets returns budgets ordered by name with their category joined.
func (r *Repository) ListBudgets(ctx context.Context, f BudgetFilter) ([]core.Budget, error) {
	q := storage.Query{Table: storage.Budgets, Order: &storage.Order{Column: "name"}, Limit: f.Limit}
	if f.ActiveOnly {
		q.Filters = []storage.Filter{storage.Eq("is_active", true)}
	}
	rows, err := r.store.Select(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("select budgets: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	cats, err := r.categoryIndex(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Budget, len(rows))
	for i, row := range rows {
		b := budgetFromRow(row)
		if b.CategoryID != nil {
			if c, ok := cats[*b.CategoryID]; ok {
				b.Category = &c
			}
		}
		out[i] = b
	}
	return out, nil
}

func (r *Repository) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	row, err := r.one(ctx, storage.Budgets, id)
	if err != nil {
		return core.Budget{}, err
	}
	return budgetFromRow(row), nil
}

func (r *Repository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	row, err := r.store.Insert(ctx, storage.Budgets, budgetRow(b))
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	return budgetFromRow(row), nil
}

func (r *Repository) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	row, err := r.update(ctx, storage.Budgets, b.ID, budgetRow(b))
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	return budgetFromRow(row), nil
}

func (r *Repository) DeleteBudget(ctx context.Context, id string) error {
	if err := r.remove(ctx, storage.Budgets, id); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return nil
}

// ---- Invoices ----

type InvoiceFilter struct {
	Search string
	// Status matches the displayed status, so "overdue" includes sent
	// invoices past their due date.
	Status core.InvoiceStatus
}

// InvoiceListing is an invoice listing plus per-status counts over the
// unfiltered set.
type InvoiceListing struct {
	Invoices []core.Invoice             `json:"invoices"`
	Counts   map[core.InvoiceStatus]int `json:"counts"`
}

// ListInvoices returns invoices newest first with their contact joined.
func (r *Repository) ListInvoices(ctx context.Context, f InvoiceFilter) (InvoiceListing, error) {
	rows, err := r.store.Select(ctx, storage.Query{
		Table: storage.Invoices,
		Order: &storage.Order{Column: "invoice_date", Desc: true},
	})
	if err != nil {
		return InvoiceListing{}, fmt.Errorf("select invoices: %w", err)
	}
	contacts, err := r.contactIndex(ctx)
	if err != nil {
		return InvoiceListing{}, err
	}

	now := r.now()
	search := strings.ToLower(strings.TrimSpace(f.Search))
	listing := InvoiceListing{Counts: map[core.InvoiceStatus]int{}}
	for _, row := range rows {
		inv := invoiceFromRow(row)
		if inv.ContactID != nil {
			if c, ok := contacts[*inv.ContactID]; ok {
				inv.Contact = &c
			}
		}
		status := inv.DisplayStatus(now)
		listing.Counts[status]++

		if f.Status != "" && status != f.Status {
			continue
		}
		if search != "" && !contains(inv.InvoiceNumber, search) &&
			(inv.Contact == nil || !contains(inv.Contact.Name, search)) {
			continue
		}
		listing.Invoices = append(listing.Invoices, inv)
	}
	return listing, nil
}

// OverdueInvoices counts draft or sent invoices whose due date has passed.
func (r *Repository) OverdueInvoices(ctx context.Context) (int, error) {
	rows, err := r.store.Select(ctx, storage.Query{
		Table: storage.Invoices,
		Filters: []storage.Filter{
			storage.Lt("due_date", core.DateOf(r.now())),
			storage.In("status", string(core.InvoiceSent), string(core.InvoiceDraft)),
		},
	})
	if err != nil {
		return 0, fmt.Errorf("select overdue invoices: %w", err)
	}
	return len(rows), nil
}

func (r *Repository) GetInvoice(ctx context.Context, id string) (core.Invoice, error) {
	row, err := r.one(ctx, storage.Invoices, id)
	if err != nil {
		return core.Invoice{}, err
	}
	return invoiceFromRow(row), nil
}

func (r *Repository) CreateInvoice(ctx context.Context, i core.Invoice) (core.Invoice, error) {
	row, err := r.store.Insert(ctx, storage.Invoices, invoiceRow(i))
	if err != nil {
		return core.Invoice{}, fmt.Errorf("create invoice: %w", err)
	}
	return invoiceFromRow(row), nil
}

func (r *Repository) UpdateInvoice(ctx context.Context, i core.Invoice) (core.Invoice, error) {
	row, err := r.update(ctx, storage.Invoices, i.ID, invoiceRow(i))
	if err != nil {
		return core.Invoice{}, fmt.Errorf("update invoice: %w", err)
	}
	return invoiceFromRow(row), nil
}

func (r *Repository) DeleteInvoice(ctx context.Context, id string) error {
	if err := r.remove(ctx, storage.Invoices, id); err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	return nil
}

// ---- Contacts ----

// ListContacts returns contacts ordered by name, optionally searched by
// name, email or company.
func (r *Repository) ListContacts(ctx context.Context, search string) ([]core.Contact, error) {
	rows, err := r.store.Select(ctx, storage.Query{Table: storage.Contacts, Order: &storage.Order{Column: "name"}})
	if err != nil {
		return nil, fmt.Errorf("select contacts: %w", err)
	}
	search = strings.ToLower(strings.TrimSpace(search))
	var out []core.Contact
	for _, row := range rows {
		c := contactFromRow(row)
		if search != "" && !contains(c.Name, search) && !contains(c.Email, search) && !contains(c.Company, search) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *Repository) contactIndex(ctx context.Context) (map[string]core.Contact, error) {
	cs, err := r.ListContacts(ctx, "")
	if err != nil {
		return nil, err
	}
	idx := make(map[string]core.Contact, len(cs))
	for _, c := range cs {
		idx[c.ID] = c
	}
	return idx, nil
}

func (r *Repository) GetContact(ctx context.Context, id string) (core.Contact, error) {
	row, err := r.one(ctx, storage.Contacts, id)
	if err != nil {
		return core.Contact{}, err
	}
	return contactFromRow(row), nil
}

func (r *Repository) CreateContact(ctx context.Context, c core.Contact) (core.Contact, error) {
	row, err := r.store.Insert(ctx, storage.Contacts, contactRow(c))
	if err != nil {
		return core.Contact{}, fmt.Errorf("create contact: %w", err)
	}
	return contactFromRow(row), nil
}

func (r *Repository) UpdateContact(ctx context.Context, c core.Contact) (core.Contact, error) {
	row, err := r.update(ctx, storage.Contacts, c.ID, contactRow(c))
	if err != nil {
		return core.Contact{}, fmt.Errorf("update contact: %w", err)
	}
	return contactFromRow(row), nil
}

func (r *Repository) DeleteContact(ctx context.Context, id string) error {
	if err := r.remove(ctx, storage.Contacts, id); err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	return nil
}

// RecentTransactions returns the n most recent transactions by date.
func (r *Repository) RecentTransactions(ctx context.Context, n int) ([]core.Transaction, error) {
	return r.ListTransactions(ctx, TransactionFilter{Limit: n})
}

// ActiveBudgets returns up to n active budgets with their category.
func (r *Repository) ActiveBudgets(ctx context.Context, n int) ([]core.Budget, error) {
	return r.ListBudgets(ctx, BudgetFilter{ActiveOnly: true, Limit: n})
}
