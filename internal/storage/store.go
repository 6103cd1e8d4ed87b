// Package storage defines the tabular store the bookkeeping records live in.
//
// A Store speaks in tables, rows and simple column filters so the same
// repository code runs against SQLite, PostgreSQL, MongoDB or memory.
package storage

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

const (
	Transactions = "financial_transactions"
	Accounts     = "financial_accounts"
	Categories   = "financial_categories"
	Budgets      = "financial_budgets"
	Invoices     = "financial_invoices"
	Contacts     = "contacts"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrUnknownTable  = errors.New("unknown table")
	ErrUnknownColumn = errors.New("unknown column")
)

// schema is the column allow-list per table. Only these names ever reach a
// query string.
var schema = map[string][]string{
	Transactions: {
		"id", "user_id", "description", "amount", "type", "status",
		"transaction_date", "due_date", "account_id", "category_id", "deal_id",
		"payment_method", "reference_number", "notes", "tags", "is_recurring",
		"recurring_frequency", "recurring_end_date", "created_at", "updated_at",
	},
	Accounts: {
		"id", "user_id", "name", "account_type", "bank_name", "account_number",
		"initial_balance", "current_balance", "currency", "is_active",
		"created_at", "updated_at",
	},
	Categories: {
		"id", "user_id", "name", "type", "color", "icon", "description",
		"is_active", "created_at", "updated_at",
	},
	Budgets: {
		"id", "user_id", "name", "amount", "spent_amount", "period",
		"start_date", "end_date", "category_id", "is_active",
		"created_at", "updated_at",
	},
	Invoices: {
		"id", "user_id", "invoice_number", "invoice_date", "due_date",
		"paid_date", "subtotal", "tax_amount", "discount_amount",
		"total_amount", "currency", "status", "contact_id", "deal_id",
		"payment_method", "payment_terms", "notes", "created_at", "updated_at",
	},
	Contacts: {
		"id", "user_id", "name", "email", "phone", "company", "position",
		"address", "notes", "created_at", "updated_at",
	},
}

// Row is one record keyed by column name.
type Row map[string]any

type Op string

const (
	OpEq  Op = "eq"
	OpNeq Op = "neq"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
	OpIn  Op = "in"
)

type Filter struct {
	Column string
	Op     Op
	Value  any
}

func Eq(col string, v any) Filter  { return Filter{Column: col, Op: OpEq, Value: v} }
func Neq(col string, v any) Filter { return Filter{Column: col, Op: OpNeq, Value: v} }
func Gt(col string, v any) Filter  { return Filter{Column: col, Op: OpGt, Value: v} }
func Gte(col string, v any) Filter { return Filter{Column: col, Op: OpGte, Value: v} }
func Lt(col string, v any) Filter  { return Filter{Column: col, Op: OpLt, Value: v} }
func Lte(col string, v any) Filter { return Filter{Column: col, Op: OpLte, Value: v} }

// In matches any of values. An empty list matches nothing.
func In(col string, values ...any) Filter { return Filter{Column: col, Op: OpIn, Value: values} }

type Order struct {
	Column string
	Desc   bool
}

type Query struct {
	Table   string
	Filters []Filter
	Order   *Order
	Limit   int
}

// Store is the remote tabular store. Implementations must be safe for
// concurrent use.
type Store interface {
	Select(ctx context.Context, q Query) ([]Row, error)
	// Insert assigns id and timestamps when absent and returns the stored row.
	Insert(ctx context.Context, table string, row Row) (Row, error)
	// Update applies patch to every matching row, refreshes updated_at and
	// returns the updated rows. ErrNotFound when nothing matched.
	Update(ctx context.Context, table string, filters []Filter, patch Row) ([]Row, error)
	// Delete removes matching rows. ErrNotFound when nothing matched.
	Delete(ctx context.Context, table string, filters []Filter) error
	Ping(ctx context.Context) error
	Close() error
}

// Tables lists every known table in a stable order.
func Tables() []string {
	return slices.Sorted(maps.Keys(schema))
}

// Columns returns the allow-listed columns of table.
func Columns(table string) ([]string, error) {
	cols, ok := schema[table]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return cols, nil
}

// CheckColumn fails unless col belongs to table.
func CheckColumn(table, col string) error {
	cols, err := Columns(table)
	if err != nil {
		return err
	}
	if !slices.Contains(cols, col) {
		return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, col)
	}
	return nil
}

// ValidateQuery checks the table and every referenced column.
func ValidateQuery(q Query) error {
	if _, err := Columns(q.Table); err != nil {
		return err
	}
	if err := validateFilters(q.Table, q.Filters); err != nil {
		return err
	}
	if q.Order != nil {
		if err := CheckColumn(q.Table, q.Order.Column); err != nil {
			return err
		}
	}
	if q.Limit < 0 {
		return fmt.Errorf("negative limit %d", q.Limit)
	}
	return nil
}

func validateFilters(table string, filters []Filter) error {
	for _, f := range filters {
		if err := CheckColumn(table, f.Column); err != nil {
			return err
		}
		switch f.Op {
		case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte:
		case OpIn:
			if _, ok := f.Value.([]any); !ok {
				return fmt.Errorf("filter %s: in expects a list", f.Column)
			}
		default:
			return fmt.Errorf("filter %s: unsupported operator %q", f.Column, f.Op)
		}
	}
	return nil
}

// PrepareInsert validates row against table and fills id, created_at and
// updated_at. Values are normalized.
func PrepareInsert(table string, row Row, now time.Time) (Row, error) {
	out := make(Row, len(row)+3)
	for col, v := range row {
		if err := CheckColumn(table, col); err != nil {
			return nil, err
		}
		out[col] = Normalize(v)
	}
	if id, _ := out["id"].(string); id == "" {
		out["id"] = uuid.NewString()
	}
	now = now.UTC()
	if out["created_at"] == nil {
		out["created_at"] = now
	}
	out["updated_at"] = now
	return out, nil
}

// PreparePatch validates patch, drops immutable columns and stamps updated_at.
func PreparePatch(table string, filters []Filter, patch Row, now time.Time) (Row, error) {
	if err := validateFilters(table, filters); err != nil {
		return nil, err
	}
	out := make(Row, len(patch)+1)
	for col, v := range patch {
		if err := CheckColumn(table, col); err != nil {
			return nil, err
		}
		if col == "id" || col == "created_at" {
			continue
		}
		out[col] = Normalize(v)
	}
	out["updated_at"] = now.UTC()
	return out, nil
}

// SortedKeys returns the row's columns in lexical order so generated
// statements are deterministic.
func (r Row) SortedKeys() []string {
	return slices.Sorted(maps.Keys(r))
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	return maps.Clone(r)
}
