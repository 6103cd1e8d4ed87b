package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"bizdash/internal/core"
	"bizdash/internal/log"
	"bizdash/internal/repository"
	"bizdash/internal/storage"
)

// crud is the write path and lookup of one bookkeeping table.
type crud[T any] struct {
	path   string
	table  string
	noun   string
	decode func(*http.Request) (T, error)
	get    func(context.Context, string) (T, error)
	create func(context.Context, T) (T, error)
	update func(context.Context, T) (T, error)
	remove func(context.Context, string) error
	withID func(T, string) T
}

func registerCRUD[T any](s *Server, mux *http.ServeMux, c crud[T], list http.HandlerFunc) {
	base := "/api/" + c.path
	mux.HandleFunc("GET "+base, list)
	mux.HandleFunc("POST "+base, handleCreate(s, c))
	mux.HandleFunc("GET "+base+"/{id}", handleGet(s, c))
	mux.HandleFunc("PUT "+base+"/{id}", handleUpdate(s, c))
	mux.HandleFunc("DELETE "+base+"/{id}", handleDelete(s, c))
}

func pathID(r *http.Request) string {
	return sanitizeInput(r.PathValue("id"))
}

func handleGet[T any](s *Server, c crud[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
		defer cancel()
		rec, err := c.get(ctx, pathID(r))
		if err != nil {
			s.writeError(w, r, log.OpRead, c.table, err)
			return
		}
		NewResponse().JSON(rec).Write(w)
	}
}

func handleCreate[T any](s *Server, c crud[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := c.decode(r)
		if err != nil {
			s.writeDecodeError(w, err)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
		defer cancel()
		rec, err := c.create(ctx, in)
		if err != nil {
			s.writeError(w, r, log.OpCreate, c.table, err)
			return
		}
		s.recordChanged()
		NewResponse().Status(http.StatusCreated).JSON(rec).Write(w)
	}
}

func handleUpdate[T any](s *Server, c crud[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := c.decode(r)
		if err != nil {
			s.writeDecodeError(w, err)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
		defer cancel()
		rec, err := c.update(ctx, c.withID(in, pathID(r)))
		if err != nil {
			s.writeError(w, r, log.OpUpdate, c.table, err)
			return
		}
		s.recordChanged()
		NewResponse().JSON(rec).Write(w)
	}
}

func handleDelete[T any](s *Server, c crud[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
		defer cancel()
		if err := c.remove(ctx, pathID(r)); err != nil {
			s.writeError(w, r, log.OpDelete, c.table, err)
			return
		}
		s.recordChanged()
		SuccessResponse("Deleted", capitalize(c.noun)+" deleted.").Write(w)
	}
}

func (s *Server) writeDecodeError(w http.ResponseWriter, err error) {
	if isValidationError(err) {
		UnprocessableEntityError(capitalize(err.Error())).Write(w)
		return
	}
	BadRequestError("The request body is not valid JSON.").Write(w)
}

func decodeInto[T any](clean func(*T)) func(*http.Request) (T, error) {
	return func(r *http.Request) (T, error) {
		var v T
		if err := DecodeJSON(r, &v); err != nil {
			return v, err
		}
		clean(&v)
		return v, nil
	}
}

// transactionInput lets the amount arrive as a localized string.
type transactionInput struct {
	core.Transaction
	Amount json.RawMessage `json:"amount"`
}

func decodeTransaction(r *http.Request) (core.Transaction, error) {
	var in transactionInput
	if err := DecodeJSON(r, &in); err != nil {
		return core.Transaction{}, err
	}
	amount, err := parseAmountJSON(in.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	t := in.Transaction
	t.Amount = amount
	t.Category, t.Account = nil, nil
	sanitizeAll(&t.Description, &t.PaymentMethod, &t.ReferenceNumber, &t.Notes)
	for i := range t.Tags {
		t.Tags[i] = sanitizeInput(t.Tags[i])
	}
	return t, nil
}

type budgetInput struct {
	core.Budget
	Amount json.RawMessage `json:"amount"`
}

func decodeBudget(r *http.Request) (core.Budget, error) {
	var in budgetInput
	if err := DecodeJSON(r, &in); err != nil {
		return core.Budget{}, err
	}
	amount, err := parseAmountJSON(in.Amount)
	if err != nil {
		return core.Budget{}, err
	}
	b := in.Budget
	b.Amount = amount
	b.Category = nil
	sanitizeAll(&b.Name)
	return b, nil
}

func (s *Server) recordRoutes(mux *http.ServeMux) {
	repo := s.records.Repository()

	registerCRUD(s, mux, crud[core.Transaction]{
		path:   "transactions",
		table:  storage.Transactions,
		noun:   "transaction",
		decode: decodeTransaction,
		get:    repo.GetTransaction,
		create: s.records.CreateTransaction,
		update: s.records.UpdateTransaction,
		remove: s.records.DeleteTransaction,
		withID: func(t core.Transaction, id string) core.Transaction { t.ID = id; return t },
	}, s.handleListTransactions)

	registerCRUD(s, mux, crud[core.Account]{
		path:  "accounts",
		table: storage.Accounts,
		noun:  "account",
		decode: decodeInto(func(a *core.Account) {
			sanitizeAll(&a.Name, &a.BankName, &a.AccountNumber, &a.Currency)
			a.Currency = strings.ToUpper(a.Currency)
		}),
		get:    repo.GetAccount,
		create: s.records.CreateAccount,
		update: s.records.UpdateAccount,
		remove: s.records.DeleteAccount,
		withID: func(a core.Account, id string) core.Account { a.ID = id; return a },
	}, s.handleListAccounts)

	registerCRUD(s, mux, crud[core.Category]{
		path:  "categories",
		table: storage.Categories,
		noun:  "category",
		decode: decodeInto(func(c *core.Category) {
			sanitizeAll(&c.Name, &c.Color, &c.Icon, &c.Description)
		}),
		get:    repo.GetCategory,
		create: s.records.CreateCategory,
		update: s.records.UpdateCategory,
		remove: s.records.DeleteCategory,
		withID: func(c core.Category, id string) core.Category { c.ID = id; return c },
	}, s.handleListCategories)

	registerCRUD(s, mux, crud[core.Budget]{
		path:   "budgets",
		table:  storage.Budgets,
		noun:   "budget",
		decode: decodeBudget,
		get:    repo.GetBudget,
		create: s.records.CreateBudget,
		update: s.records.UpdateBudget,
		remove: s.records.DeleteBudget,
		withID: func(b core.Budget, id string) core.Budget { b.ID = id; return b },
	}, s.handleListBudgets)

	registerCRUD(s, mux, crud[core.Invoice]{
		path:  "invoices",
		table: storage.Invoices,
		noun:  "invoice",
		decode: decodeInto(func(i *core.Invoice) {
			sanitizeAll(&i.InvoiceNumber, &i.PaymentMethod, &i.PaymentTerms, &i.Notes, &i.Currency)
			i.Currency = strings.ToUpper(i.Currency)
			i.Contact = nil
		}),
		get:    repo.GetInvoice,
		create: s.records.CreateInvoice,
		update: s.records.UpdateInvoice,
		remove: s.records.DeleteInvoice,
		withID: func(i core.Invoice, id string) core.Invoice { i.ID = id; return i },
	}, s.handleListInvoices)

	registerCRUD(s, mux, crud[core.Contact]{
		path:  "contacts",
		table: storage.Contacts,
		noun:  "contact",
		decode: decodeInto(func(c *core.Contact) {
			sanitizeAll(&c.Name, &c.Email, &c.Phone, &c.Company, &c.Position, &c.Address, &c.Notes)
		}),
		get:    repo.GetContact,
		create: s.records.CreateContact,
		update: s.records.UpdateContact,
		remove: s.records.DeleteContact,
		withID: func(c core.Contact, id string) core.Contact { c.ID = id; return c },
	}, s.handleListContacts)
}

// list runs a listing under the handler timeout and writes it as {"items":…}.
func list[T any](s *Server, w http.ResponseWriter, r *http.Request, table string, fetch func(context.Context) ([]T, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()
	items, err := fetch(ctx)
	if err != nil {
		s.writeError(w, r, log.OpList, table, err)
		return
	}
	if items == nil {
		items = []T{}
	}
	NewResponse().JSON(map[string]any{"items": items, "count": len(items)}).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rng, err := QueryRange(q)
	if err != nil {
		BadRequestError(capitalize(err.Error())).Write(w)
		return
	}
	f := repository.TransactionFilter{
		Search: QueryString(q, "search"),
		Type:   core.TransactionType(QueryString(q, "type")),
		Status: core.TransactionStatus(QueryString(q, "status")),
		Range:  rng,
		Limit:  QueryInt(q, "limit", 0),
	}
	if f.Type != "" && !f.Type.Valid() {
		BadRequestError("Unknown transaction type.").Write(w)
		return
	}
	if f.Status != "" && !f.Status.Valid() {
		BadRequestError("Unknown transaction status.").Write(w)
		return
	}
	list(s, w, r, storage.Transactions, func(ctx context.Context) ([]core.Transaction, error) {
		return s.records.Repository().ListTransactions(ctx, f)
	})
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	activeOnly := QueryBool(r.URL.Query(), "active", false)
	list(s, w, r, storage.Accounts, func(ctx context.Context) ([]core.Account, error) {
		return s.records.Repository().ListAccounts(ctx, activeOnly)
	})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	typ := core.CategoryType(QueryString(q, "type"))
	if typ != "" && !typ.Valid() {
		BadRequestError("Unknown category type.").Write(w)
		return
	}
	activeOnly := QueryBool(q, "active", false)
	list(s, w, r, storage.Categories, func(ctx context.Context) ([]core.Category, error) {
		return s.records.Repository().ListCategories(ctx, typ, activeOnly)
	})
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := repository.BudgetFilter{
		ActiveOnly: QueryBool(q, "active", false),
		Limit:      QueryInt(q, "limit", 0),
	}
	list(s, w, r, storage.Budgets, func(ctx context.Context) ([]core.Budget, error) {
		return s.records.Repository().ListBudgets(ctx, f)
	})
}

// handleListInvoices also returns per-status counts for the filter tabs.
func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := repository.InvoiceFilter{
		Search: QueryString(q, "search"),
		Status: core.InvoiceStatus(QueryString(q, "status")),
	}
	if f.Status != "" && !f.Status.Valid() {
		BadRequestError("Unknown invoice status.").Write(w)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()
	listing, err := s.records.Repository().ListInvoices(ctx, f)
	if err != nil {
		s.writeError(w, r, log.OpList, storage.Invoices, err)
		return
	}
	if listing.Invoices == nil {
		listing.Invoices = []core.Invoice{}
	}
	NewResponse().JSON(map[string]any{
		"items":  listing.Invoices,
		"count":  len(listing.Invoices),
		"counts": listing.Counts,
	}).Write(w)
}

func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	search := QueryString(r.URL.Query(), "search")
	list(s, w, r, storage.Contacts, func(ctx context.Context) ([]core.Contact, error) {
		return s.records.Repository().ListContacts(ctx, search)
	})
}
