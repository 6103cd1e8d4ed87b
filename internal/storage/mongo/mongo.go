// Package mongo is a Store that keeps every table in a MongoDB collection of
// the same name.
package mongo

import (
	"context"
	"fmt"
	"time"

	"bizdash/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the subset of *mongo.Collection the store needs.
type Collection interface {
	Find(ctx context.Context, filter bson.D, opts *options.FindOptions) ([]bson.M, error)
	InsertOne(ctx context.Context, doc bson.M) error
	UpdateMany(ctx context.Context, filter bson.D, update bson.D) (int64, error)
	DeleteMany(ctx context.Context, filter bson.D) (int64, error)
}

// CollectionProvider hands out collections by name.
type CollectionProvider interface {
	Collection(name string) Collection
}

type mongoCollection struct {
	*mongo.Collection
}

func (c *mongoCollection) Find(ctx context.Context, filter bson.D, opts *options.FindOptions) ([]bson.M, error) {
	cur, err := c.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (c *mongoCollection) InsertOne(ctx context.Context, doc bson.M) error {
	_, err := c.Collection.InsertOne(ctx, doc)
	return err
}

func (c *mongoCollection) UpdateMany(ctx context.Context, filter bson.D, update bson.D) (int64, error) {
	res, err := c.Collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

func (c *mongoCollection) DeleteMany(ctx context.Context, filter bson.D) (int64, error) {
	res, err := c.Collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

type databaseProvider struct {
	db *mongo.Database
}

func (p *databaseProvider) Collection(name string) Collection {
	return &mongoCollection{p.db.Collection(name)}
}

type Store struct {
	client   *mongo.Client
	provider CollectionProvider
	now      func() time.Time
}

var _ storage.Store = (*Store)(nil)

// Connect dials uri and verifies the connection.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Store{
		client:   client,
		provider: &databaseProvider{db: client.Database(database)},
		now:      time.Now,
	}, nil
}

// New builds a store over an arbitrary provider.
func New(provider CollectionProvider) *Store {
	return &Store{provider: provider, now: time.Now}
}

func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Ping(ctx, nil)
}

var mongoOps = map[storage.Op]string{
	storage.OpNeq: "$ne",
	storage.OpGt:  "$gt",
	storage.OpGte: "$gte",
	storage.OpLt:  "$lt",
	storage.OpLte: "$lte",
	storage.OpIn:  "$in",
}

// Filter translates column filters into a bson document. Filters on the
// same column are combined with $and.
func Filter(filters []storage.Filter) bson.D {
	if len(filters) == 0 {
		return bson.D{}
	}
	clauses := make([]bson.D, 0, len(filters))
	for _, f := range filters {
		v := storage.Normalize(f.Value)
		if f.Op == storage.OpEq {
			clauses = append(clauses, bson.D{{Key: f.Column, Value: v}})
			continue
		}
		if f.Op == storage.OpIn && v == nil {
			v = []any{}
		}
		clauses = append(clauses, bson.D{{Key: f.Column, Value: bson.D{{Key: mongoOps[f.Op], Value: v}}}})
	}
	if len(clauses) == 1 {
		return clauses[0]
	}
	and := make(bson.A, len(clauses))
	for i, c := range clauses {
		and[i] = c
	}
	return bson.D{{Key: "$and", Value: and}}
}

func (s *Store) Select(ctx context.Context, q storage.Query) ([]storage.Row, error) {
	if err := storage.ValidateQuery(q); err != nil {
		return nil, err
	}
	opts := options.Find()
	if q.Order != nil {
		dir := 1
		if q.Order.Desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: q.Order.Column, Value: dir}})
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	docs, err := s.provider.Collection(q.Table).Find(ctx, Filter(q.Filters), opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", q.Table, err)
	}
	return toRows(docs), nil
}

func (s *Store) Insert(ctx context.Context, table string, row storage.Row) (storage.Row, error) {
	prepared, err := storage.PrepareInsert(table, row, s.now())
	if err != nil {
		return nil, err
	}
	doc := bson.M{"_id": prepared["id"]}
	for k, v := range prepared {
		doc[k] = v
	}
	if err := s.provider.Collection(table).InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	return prepared, nil
}

func (s *Store) Update(ctx context.Context, table string, filters []storage.Filter, patch storage.Row) ([]storage.Row, error) {
	prepared, err := storage.PreparePatch(table, filters, patch, s.now())
	if err != nil {
		return nil, err
	}
	coll := s.provider.Collection(table)
	matched, err := coll.Find(ctx, Filter(filters), options.Find())
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", table, err)
	}
	if len(matched) == 0 {
		return nil, storage.ErrNotFound
	}
	ids := make(bson.A, len(matched))
	for i, d := range matched {
		ids[i] = d["_id"]
	}
	byID := bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}

	set := bson.D{}
	for _, k := range prepared.SortedKeys() {
		set = append(set, bson.E{Key: k, Value: prepared[k]})
	}
	if _, err := coll.UpdateMany(ctx, byID, bson.D{{Key: "$set", Value: set}}); err != nil {
		return nil, fmt.Errorf("update %s: %w", table, err)
	}
	docs, err := coll.Find(ctx, byID, options.Find())
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", table, err)
	}
	return toRows(docs), nil
}

func (s *Store) Delete(ctx context.Context, table string, filters []storage.Filter) error {
	if err := storage.ValidateQuery(storage.Query{Table: table, Filters: filters}); err != nil {
		return err
	}
	n, err := s.provider.Collection(table).DeleteMany(ctx, Filter(filters))
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func toRows(docs []bson.M) []storage.Row {
	out := make([]storage.Row, 0, len(docs))
	for _, d := range docs {
		row := make(storage.Row, len(d))
		for k, v := range d {
			if k == "_id" {
				continue
			}
			row[k] = fromBSON(v)
		}
		out = append(out, row)
	}
	return out
}

func fromBSON(v any) any {
	switch x := v.(type) {
	case primitive.DateTime:
		return x.Time().UTC()
	case primitive.Decimal128:
		return x.String()
	case primitive.A:
		return []any(x)
	}
	return storage.Normalize(v)
}
