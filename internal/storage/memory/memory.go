// Package memory is an in-process Store for tests and demo data.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"bizdash/internal/storage"

	"github.com/shopspring/decimal"
)

type Store struct {
	mu     sync.RWMutex
	tables map[string][]storage.Row
	now    func() time.Time

	// failNext, when set, fails the next Select once.
	failNext error
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{tables: map[string][]storage.Row{}, now: time.Now}
}

// WithClock overrides the timestamp source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// FailNextSelect arranges for the next Select to fail with err.
func (s *Store) FailNextSelect(err error) {
	s.mu.Lock()
	s.failNext = err
	s.mu.Unlock()
}

func (s *Store) Close() error                   { return nil }
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Select(ctx context.Context, q storage.Query) ([]storage.Row, error) {
	if err := storage.ValidateQuery(q); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if err := s.failNext; err != nil {
		s.failNext = nil
		s.mu.Unlock()
		return nil, fmt.Errorf("select %s: %w", q.Table, err)
	}
	s.mu.Unlock()

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []storage.Row
	for _, r := range s.tables[q.Table] {
		if matches(r, q.Filters) {
			out = append(out, r.Clone())
		}
	}
	if q.Order != nil {
		col, desc := q.Order.Column, q.Order.Desc
		slices.SortStableFunc(out, func(a, b storage.Row) int {
			c := compare(a[col], b[col])
			if desc {
				return -c
			}
			return c
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) Insert(_ context.Context, table string, row storage.Row) (storage.Row, error) {
	prepared, err := storage.PrepareInsert(table, row, s.now())
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.tables[table] {
		if existing["id"] == prepared["id"] {
			return nil, fmt.Errorf("insert %s: duplicate id %v", table, prepared["id"])
		}
	}
	s.tables[table] = append(s.tables[table], prepared)
	return prepared.Clone(), nil
}

func (s *Store) Update(_ context.Context, table string, filters []storage.Filter, patch storage.Row) ([]storage.Row, error) {
	prepared, err := storage.PreparePatch(table, filters, patch, s.now())
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storage.Row
	for _, r := range s.tables[table] {
		if !matches(r, filters) {
			continue
		}
		for k, v := range prepared {
			r[k] = v
		}
		out = append(out, r.Clone())
	}
	if len(out) == 0 {
		return nil, storage.ErrNotFound
	}
	return out, nil
}

func (s *Store) Delete(_ context.Context, table string, filters []storage.Filter) error {
	if err := storage.ValidateQuery(storage.Query{Table: table, Filters: filters}); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tables[table]
	kept := slices.DeleteFunc(slices.Clone(rows), func(r storage.Row) bool { return matches(r, filters) })
	if len(kept) == len(rows) {
		return storage.ErrNotFound
	}
	s.tables[table] = kept
	return nil
}

func matches(r storage.Row, filters []storage.Filter) bool {
	for _, f := range filters {
		got := r[f.Column]
		want := storage.Normalize(f.Value)
		var ok bool
		switch f.Op {
		case storage.OpEq:
			ok = equal(got, want)
		case storage.OpNeq:
			ok = !equal(got, want)
		case storage.OpGt:
			ok = got != nil && compare(got, want) > 0
		case storage.OpGte:
			ok = got != nil && compare(got, want) >= 0
		case storage.OpLt:
			ok = got != nil && compare(got, want) < 0
		case storage.OpLte:
			ok = got != nil && compare(got, want) <= 0
		case storage.OpIn:
			list, _ := want.([]any)
			ok = slices.ContainsFunc(list, func(v any) bool { return equal(got, v) })
		}
		if !ok {
			return false
		}
	}
	return true
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return compare(a, b) == 0
}

// compare orders two normalized values. Numbers (including decimal text)
// compare numerically, times chronologically, everything else as text.
// nil sorts first.
func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ba == bb:
				return 0
			case !ba:
				return -1
			default:
				return 1
			}
		}
	}
	if da, ok := asNumber(a); ok {
		if db, ok := asNumber(b); ok {
			return da.Cmp(db)
		}
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func asNumber(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case int64:
		return decimal.NewFromInt(x), true
	case float64:
		return decimal.NewFromFloat(x), true
	case string:
		d, err := decimal.NewFromString(x)
		return d, err == nil
	}
	return decimal.Zero, false
}
