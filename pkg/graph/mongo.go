package graph

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	scmerrors "github.com/matzehuels/scmenrich/pkg/errors"
	"github.com/matzehuels/scmenrich/pkg/extension"
)

const (
	DefaultMongoDatabase   = "scmenrich"
	DefaultMongoCollection = "sourceControlInfo"

	mongoConnectTimeout = 10 * time.Second
)

// MongoConfig configures a [MongoStore].
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// MongoStore keeps one document per record, with _id set to the record id.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to cfg.URI and verifies the connection.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.URI == "" {
		return nil, scmerrors.New(scmerrors.ErrCodeInvalidConfig, "mongo URI is required")
	}
	if cfg.Database == "" {
		cfg.Database = DefaultMongoDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultMongoCollection
	}

	ctx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, scmerrors.Wrap(scmerrors.ErrCodeStore, err, "connect to mongo")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, scmerrors.Wrap(scmerrors.ErrCodeStore, err, "ping mongo")
	}

	return &MongoStore{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

func (s *MongoStore) Emit(ctx context.Context, rec *extension.SourceControlInfo) error {
	if rec == nil || rec.ID == "" {
		return scmerrors.New(scmerrors.ErrCodeStore, "record without id")
	}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": rec.ID}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return scmerrors.Wrap(scmerrors.ErrCodeStore, err, "emit %s", rec.ID)
	}
	return nil
}

func (s *MongoStore) SetProjectImage(ctx context.Context, id, name string) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"projectImage": name}})
	if err != nil {
		return scmerrors.Wrap(scmerrors.ErrCodeStore, err, "patch %s", id)
	}
	if res.MatchedCount == 0 {
		return notFound(id)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*extension.SourceControlInfo, error) {
	var rec extension.SourceControlInfo
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, scmerrors.Wrap(scmerrors.ErrCodeStore, err, "get %s", id)
	}
	return &rec, nil
}

func (s *MongoStore) List(ctx context.Context) ([]*extension.SourceControlInfo, error) {
	cur, err := s.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, scmerrors.Wrap(scmerrors.ErrCodeStore, err, "list records")
	}
	var out []*extension.SourceControlInfo
	if err := cur.All(ctx, &out); err != nil {
		return nil, scmerrors.Wrap(scmerrors.ErrCodeStore, err, "decode records")
	}
	return out, nil
}

// Close disconnects from the server.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
