package mongo

import (
	"context"
	"errors"
	"fmt"

	"athletix/tracker/internal/repository"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Gateway implements repository.Gateway on top of a MongoDB database.
// Every table is a collection of the same name; row ids live in _id.
type Gateway struct {
	db *mongo.Database
}

var _ repository.Gateway = (*Gateway)(nil)

// NewGateway creates a Gateway over a connected database.
func NewGateway(db *mongo.Database) *Gateway {
	return &Gateway{db: db}
}

func (g *Gateway) collection(table repository.Table) *mongo.Collection {
	return g.db.Collection(string(table))
}

// Query retrieves every row of table matching filter, optionally sorted.
func (g *Gateway) Query(ctx context.Context, table repository.Table, filter repository.Filter, order *repository.Order) ([]repository.Row, error) {
	opts := options.Find()
	if order != nil {
		dir := 1
		if order.Descending {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: storageField(order.Field), Value: dir}})
	}

	cursor, err := g.collection(table).Find(ctx, toBSONFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", table, err)
	}

	rows := make([]repository.Row, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, fromStorage(doc))
	}
	return rows, nil
}

// Insert stores row, generating an id when the row has none.
func (g *Gateway) Insert(ctx context.Context, table repository.Table, row repository.Row) (repository.Row, error) {
	doc := toStorage(row)
	if id, _ := doc["_id"].(string); id == "" {
		doc["_id"] = uuid.NewString()
	}

	if _, err := g.collection(table).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("insert %s: %w", table, repository.ErrDuplicateKey)
		}
		return nil, fmt.Errorf("insert %s: %w: %v", table, repository.ErrInsertFailed, err)
	}
	return fromStorage(doc), nil
}

// Update $sets the patch fields and returns the document after the update.
func (g *Gateway) Update(ctx context.Context, table repository.Table, id string, patch repository.Row) (repository.Row, error) {
	set := toStorage(patch)
	delete(set, "_id")

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated bson.M
	err := g.collection(table).FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("update %s/%s: %w: %v", table, id, repository.ErrUpdateFailed, err)
	}
	return fromStorage(updated), nil
}

type changeDoc struct {
	OperationType string `bson:"operationType"`
	FullDocument  bson.M `bson:"fullDocument"`
}

// Subscribe opens a change stream on the table's collection. Update events are
// delivered with the full post-update document. The filter's row conditions
// are evaluated here rather than in the server pipeline, since looked-up
// documents are not visible to $match.
func (g *Gateway) Subscribe(ctx context.Context, table repository.Table, filter repository.EventFilter, handler repository.Handler) (repository.Unsubscribe, error) {
	ops := bson.A{"insert", "update", "replace"}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"operationType": bson.M{"$in": ops}}}},
	}

	subCtx, cancel := context.WithCancel(ctx)
	stream, err := g.collection(table).Watch(subCtx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("watch %s: %w", table, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer stream.Close(context.Background())

		for stream.Next(subCtx) {
			var cd changeDoc
			if err := stream.Decode(&cd); err != nil {
				log.WithField("table", table).Warnf("decode change event: %s", err)
				continue
			}
			// a document deleted before the lookup has no full document
			if cd.FullDocument == nil {
				continue
			}
			ev := repository.ChangeEvent{
				Type:  eventType(cd.OperationType),
				Table: table,
				Row:   fromStorage(cd.FullDocument),
			}
			if filter.Accepts(ev) {
				handler(ev)
			}
		}
		if err := stream.Err(); err != nil && subCtx.Err() == nil {
			log.WithField("table", table).Errorf("change stream stopped: %s", err)
		}
	}()

	return func() {
		cancel()
		<-done
	}, nil
}

func eventType(op string) repository.EventType {
	if op == "insert" {
		return repository.EventInsert
	}
	return repository.EventUpdate
}

func storageField(field string) string {
	if field == repository.FieldID {
		return "_id"
	}
	return field
}

func toBSONFilter(f repository.Filter) bson.M {
	out := bson.M{}
	for k, v := range f.Equals {
		out[storageField(k)] = v
	}
	for k, vs := range f.In {
		out[storageField(k)] = bson.M{"$in": vs}
	}
	if len(f.AnyOf) > 0 {
		ors := bson.A{}
		for _, set := range f.AnyOf {
			m := bson.M{}
			for k, v := range set {
				m[storageField(k)] = v
			}
			ors = append(ors, m)
		}
		out["$or"] = ors
	}
	return out
}

func toStorage(row repository.Row) bson.M {
	doc := make(bson.M, len(row))
	for k, v := range row {
		doc[storageField(k)] = v
	}
	return doc
}

func fromStorage(doc bson.M) repository.Row {
	row := make(repository.Row, len(doc))
	for k, v := range doc {
		if k != "_id" {
			row[k] = v
			continue
		}
		switch id := v.(type) {
		case string:
			row[repository.FieldID] = id
		case primitive.ObjectID:
			row[repository.FieldID] = id.Hex()
		default:
			row[repository.FieldID] = fmt.Sprint(id)
		}
	}
	return row
}
