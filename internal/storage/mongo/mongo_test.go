package mongo

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"bizdash/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mockCollection struct {
	findFunc       func(ctx context.Context, filter bson.D, opts *options.FindOptions) ([]bson.M, error)
	inserted       []bson.M
	updateFilters  []bson.D
	updates        []bson.D
	deleteFunc     func(ctx context.Context, filter bson.D) (int64, error)
	lastFindFilter bson.D
	lastFindOpts   *options.FindOptions
}

func (m *mockCollection) Find(ctx context.Context, filter bson.D, opts *options.FindOptions) ([]bson.M, error) {
	m.lastFindFilter, m.lastFindOpts = filter, opts
	if m.findFunc != nil {
		return m.findFunc(ctx, filter, opts)
	}
	return nil, nil
}

func (m *mockCollection) InsertOne(_ context.Context, doc bson.M) error {
	m.inserted = append(m.inserted, doc)
	return nil
}

func (m *mockCollection) UpdateMany(_ context.Context, filter bson.D, update bson.D) (int64, error) {
	m.updateFilters = append(m.updateFilters, filter)
	m.updates = append(m.updates, update)
	return 1, nil
}

func (m *mockCollection) DeleteMany(ctx context.Context, filter bson.D) (int64, error) {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, filter)
	}
	return 0, nil
}

type mockProvider struct {
	coll *mockCollection
	name string
}

func (p *mockProvider) Collection(name string) Collection {
	p.name = name
	return p.coll
}

func TestFilterTranslation(t *testing.T) {
	cases := []struct {
		name    string
		filters []storage.Filter
		want    bson.D
	}{
		{"empty", nil, bson.D{}},
		{"single eq", []storage.Filter{storage.Eq("status", "paid")}, bson.D{{Key: "status", Value: "paid"}}},
		{
			"range",
			[]storage.Filter{storage.Gte("transaction_date", "2024-01-01"), storage.Lte("transaction_date", "2024-01-31")},
			bson.D{{Key: "$and", Value: bson.A{
				bson.D{{Key: "transaction_date", Value: bson.D{{Key: "$gte", Value: "2024-01-01"}}}},
				bson.D{{Key: "transaction_date", Value: bson.D{{Key: "$lte", Value: "2024-01-31"}}}},
			}}},
		},
		{"in", []storage.Filter{storage.In("id", "a", "b")}, bson.D{{Key: "id", Value: bson.D{{Key: "$in", Value: []any{"a", "b"}}}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Filter(tc.filters); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %#v\nwant %#v", got, tc.want)
			}
		})
	}
}

func TestSelectAppliesSortAndLimit(t *testing.T) {
	coll := &mockCollection{findFunc: func(context.Context, bson.D, *options.FindOptions) ([]bson.M, error) {
		return []bson.M{{"_id": "1", "id": "1", "name": "Cash"}}, nil
	}}
	provider := &mockProvider{coll: coll}
	s := New(provider)

	rows, err := s.Select(context.Background(), storage.Query{
		Table: storage.Accounts,
		Order: &storage.Order{Column: "name"},
		Limit: 3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if provider.name != storage.Accounts {
		t.Fatalf("queried collection %q", provider.name)
	}
	if len(rows) != 1 || rows[0]["name"] != "Cash" {
		t.Fatalf("unexpected rows %v", rows)
	}
	if _, ok := rows[0]["_id"]; ok {
		t.Fatal("_id must not leak into rows")
	}
	if *coll.lastFindOpts.Limit != 3 {
		t.Fatalf("limit not applied")
	}
}

func TestInsertUsesIDAsPrimaryKey(t *testing.T) {
	coll := &mockCollection{}
	s := New(&mockProvider{coll: coll})
	row, err := s.Insert(context.Background(), storage.Contacts, storage.Row{"name": "Ana"})
	if err != nil {
		t.Fatal(err)
	}
	if len(coll.inserted) != 1 || coll.inserted[0]["_id"] != row["id"] {
		t.Fatalf("unexpected insert %v", coll.inserted)
	}
}

func TestUpdateAndDeleteNotFound(t *testing.T) {
	coll := &mockCollection{}
	s := New(&mockProvider{coll: coll})
	ctx := context.Background()
	filters := []storage.Filter{storage.Eq("id", "missing")}

	if _, err := s.Update(ctx, storage.Contacts, filters, storage.Row{"name": "x"}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("update: expected ErrNotFound, got %v", err)
	}
	if len(coll.updates) != 0 {
		t.Fatal("no update should be issued when nothing matches")
	}
	if err := s.Delete(ctx, storage.Contacts, filters); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("delete: expected ErrNotFound, got %v", err)
	}
}

func TestUpdateSetsPatchByMatchedIDs(t *testing.T) {
	coll := &mockCollection{findFunc: func(context.Context, bson.D, *options.FindOptions) ([]bson.M, error) {
		return []bson.M{{"_id": "c1", "id": "c1", "name": "Ana"}}, nil
	}}
	s := New(&mockProvider{coll: coll})
	if _, err := s.Update(context.Background(), storage.Contacts, []storage.Filter{storage.Eq("id", "c1")}, storage.Row{"name": "Bia"}); err != nil {
		t.Fatal(err)
	}
	if len(coll.updates) != 1 {
		t.Fatalf("expected one update, got %d", len(coll.updates))
	}
	set := coll.updates[0][0].Value.(bson.D)
	if set[0].Key != "name" || set[0].Value != "Bia" || set[1].Key != "updated_at" {
		t.Fatalf("unexpected $set %v", set)
	}
}
