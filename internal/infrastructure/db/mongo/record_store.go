package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iflyair/ifly-backend/internal/core/domain"
	"github.com/iflyair/ifly-backend/internal/core/ports"
)

const countersCollection = "counters"

// RecordStore implements ports.Store over MongoDB: one collection per
// resource kind, int64 ids allocated from a counters collection so the id is
// integral and store-assigned. Kind names may contain slashes; the
// collection name replaces them.
type RecordStore struct {
	db *mongo.Database
}

func NewRecordStore(db *mongo.Database) *RecordStore {
	return &RecordStore{db: db}
}

func (s *RecordStore) collection(kind string) *mongo.Collection {
	name := kind
	for i := 0; i < len(name); i++ {
		if name[i] == '/' {
			name = name[:i] + "_" + name[i+1:]
		}
	}
	return s.db.Collection(name)
}

// nextID allocates the next id for a kind via an atomic $inc on the
// per-kind counter document.
func (s *RecordStore) nextID(ctx context.Context, kind string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.db.Collection(countersCollection).FindOneAndUpdate(
		ctx,
		bson.M{"_id": kind},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("allocate id for %s: %w", kind, err)
	}
	return counter.Seq, nil
}

// toBSON compiles the filter algebra to a mongo query. The conjunction is
// rendered as $and so repeated fields (e.g. an id clause plus a CAS status
// clause) do not clobber each other.
func toBSON(f ports.Filter) bson.M {
	if len(f.Clauses) == 0 {
		return bson.M{}
	}
	clauses := make([]bson.M, 0, len(f.Clauses))
	for _, c := range f.Clauses {
		field := c.Field
		if field == "id" {
			field = "_id"
		}
		switch c.Op {
		case ports.OpEq:
			clauses = append(clauses, bson.M{field: c.Value})
		case ports.OpIn:
			values := c.Values
			if values == nil {
				values = []any{}
			}
			clauses = append(clauses, bson.M{field: bson.M{"$in": values}})
		}
	}
	return bson.M{"$and": clauses}
}

// fromBSON normalizes a decoded document into a domain.Record: the mongo id
// surfaces as "id", timestamps as time.Time, numbers as int64/float64.
func fromBSON(doc bson.M) domain.Record {
	rec := make(domain.Record, len(doc))
	for k, v := range doc {
		key := k
		if key == "_id" {
			key = "id"
		}
		rec[key] = normalize(v)
	}
	return rec
}

func normalize(v any) any {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case int32:
		return int64(t)
	case primitive.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	default:
		return v
	}
}

// toDoc prepares a record patch for storage: "id" maps back to "_id".
func toDoc(rec domain.Record) bson.M {
	doc := make(bson.M, len(rec))
	for k, v := range rec {
		if k == "id" {
			continue
		}
		doc[k] = v
	}
	return doc
}

func (s *RecordStore) Select(ctx context.Context, kind string, f ports.Filter, limit int64) ([]domain.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.collection(kind).Find(ctx, toBSON(f), opts)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", kind, err)
	}
	defer cur.Close(ctx)

	var records []domain.Record
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("select %s: decode: %w", kind, err)
		}
		records = append(records, fromBSON(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("select %s: %w", kind, err)
	}
	return records, nil
}

func (s *RecordStore) SelectOne(ctx context.Context, kind string, f ports.Filter) (domain.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc bson.M
	err := s.collection(kind).FindOne(ctx, toBSON(f)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select one %s: %w", kind, err)
	}
	return fromBSON(doc), nil
}

func (s *RecordStore) SelectIDs(ctx context.Context, kind string, f ports.Filter) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cur, err := s.collection(kind).Find(ctx, toBSON(f), opts)
	if err != nil {
		return nil, fmt.Errorf("select ids %s: %w", kind, err)
	}
	defer cur.Close(ctx)

	var ids []int64
	for cur.Next(ctx) {
		var doc struct {
			ID int64 `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("select ids %s: decode: %w", kind, err)
		}
		ids = append(ids, doc.ID)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("select ids %s: %w", kind, err)
	}
	return ids, nil
}

func (s *RecordStore) Insert(ctx context.Context, kind string, rec domain.Record) (domain.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := s.nextID(ctx, kind)
	if err != nil {
		return nil, err
	}

	doc := toDoc(rec)
	doc["_id"] = id
	if _, err := s.collection(kind).InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert %s: %w", kind, err)
	}

	out := rec.Clone()
	out["id"] = id
	return out, nil
}

func (s *RecordStore) Update(ctx context.Context, kind string, id int64, patch domain.Record) (domain.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	// Mongo rejects an empty $set operator, so a no-op patch degenerates to
	// an existence-confirming read.
	if len(patch) == 0 {
		return s.SelectOne(ctx, kind, ports.Eq("id", id))
	}

	var doc bson.M
	err := s.collection(kind).FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": toDoc(patch)},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update %s/%d: %w", kind, id, err)
	}
	return fromBSON(doc), nil
}

func (s *RecordStore) UpdateWhere(ctx context.Context, kind string, f ports.Filter, patch domain.Record) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := s.collection(kind).UpdateMany(ctx, toBSON(f), bson.M{"$set": toDoc(patch)})
	if err != nil {
		return 0, fmt.Errorf("update where %s: %w", kind, err)
	}
	return res.ModifiedCount, nil
}

func (s *RecordStore) Delete(ctx context.Context, kind string, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := s.collection(kind).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete %s/%d: %w", kind, id, err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *RecordStore) DeleteWhere(ctx context.Context, kind string, f ports.Filter) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := s.collection(kind).DeleteMany(ctx, toBSON(f))
	if err != nil {
		return 0, fmt.Errorf("delete where %s: %w", kind, err)
	}
	return res.DeletedCount, nil
}

// EnsureIndexes creates the ownership-path indexes every scoped query uses.
func (s *RecordStore) EnsureIndexes(ctx context.Context, kinds []string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for _, kind := range kinds {
		indexes := []mongo.IndexModel{
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		}
		if _, err := s.collection(kind).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("ensure indexes %s: %w", kind, err)
		}
	}
	return nil
}

const defaultTimeout = 10 * time.Second
