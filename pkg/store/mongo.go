package store

import (
	"context"
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/matzehuels/elkbridge/pkg/errors"
)

// Collection is the MongoDB collection holding layout records.
const Collection = "layouts"

// MongoStore keeps records in MongoDB. Graph and layout are stored as JSON
// strings so element ids never have to be valid BSON field names.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type mongoDoc struct {
	ID        string    `bson:"_id"`
	CreatedAt time.Time `bson:"created_at"`
	GraphHash string    `bson:"graph_hash"`
	Algorithm string    `bson:"algorithm,omitempty"`
	Graph     string    `bson:"graph"`
	Layout    string    `bson:"layout"`
}

// NewMongoStore connects to uri, pings the primary and ensures the
// graph_hash index exists.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "connect to mongodb")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "ping mongodb")
	}

	coll := client.Database(database).Collection(Collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "graph_hash", Value: 1}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create index on %s", Collection)
	}
	return &MongoStore{client: client, coll: coll}, nil
}

// Put inserts r, filling in its id and creation time when unset. Inserting an
// id that already exists fails with ErrCodeInvalidInput.
func (s *MongoStore) Put(ctx context.Context, r Record) (Record, error) {
	r = prepare(r)
	doc := mongoDoc{
		ID:        r.ID,
		CreatedAt: r.CreatedAt,
		GraphHash: r.GraphHash,
		Algorithm: r.Algorithm,
		Graph:     string(r.Graph),
		Layout:    string(r.Layout),
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return Record{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "record %s already exists", r.ID)
		}
		return Record{}, errors.Wrap(errors.ErrCodeInternal, err, "insert layout")
	}
	return r, nil
}

// Get loads the record with the given id, or fails with ErrCodeNotFound.
func (s *MongoStore) Get(ctx context.Context, id string) (Record, error) {
	var doc mongoDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return Record{}, errors.New(errors.ErrCodeNotFound, "layout %s not found", id)
	}
	if err != nil {
		return Record{}, errors.Wrap(errors.ErrCodeInternal, err, "find layout %s", id)
	}
	return Record{
		ID:        doc.ID,
		CreatedAt: doc.CreatedAt,
		GraphHash: doc.GraphHash,
		Algorithm: doc.Algorithm,
		Graph:     json.RawMessage(doc.Graph),
		Layout:    json.RawMessage(doc.Layout),
	}, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
