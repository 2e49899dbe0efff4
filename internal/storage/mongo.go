package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/folio-hq/folio/internal/portfolio"
)

const (
	// DefaultMongoDatabase is the database name used when none is configured.
	DefaultMongoDatabase = "portfolio_db"
	portfolioCollection  = "portfolios"
	connectTimeout       = 10 * time.Second
)

// MongoStore keeps portfolios in a MongoDB collection, one document per user.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// OpenMongo connects to uri, verifies the connection and makes sure the
// unique username index exists.
func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is empty")
	}
	if database == "" {
		database = DefaultMongoDatabase
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	coll := client.Database(database).Collection(portfolioCollection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("username_unique"),
	})
	if err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("creating username index: %w", err)
	}

	return &MongoStore{client: client, coll: coll}, nil
}

func (s *MongoStore) Get(ctx context.Context, username string) (portfolio.Portfolio, error) {
	var p portfolio.Portfolio
	err := s.coll.FindOne(ctx, bson.M{"username": username}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return portfolio.Portfolio{}, portfolio.ErrNotFound
	}
	if err != nil {
		return portfolio.Portfolio{}, err
	}
	return p, nil
}

func (s *MongoStore) Create(ctx context.Context, p portfolio.Portfolio) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	_, err := s.coll.InsertOne(ctx, p)
	if mongo.IsDuplicateKeyError(err) {
		return portfolio.ErrExists
	}
	return err
}

// Update sets only the fields present in patch, so concurrent edits of
// different sections do not clobber each other.
func (s *MongoStore) Update(ctx context.Context, username string, patch portfolio.Patch, updatedAt time.Time) (portfolio.Portfolio, error) {
	set := bson.M{"updatedAt": updatedAt.UTC()}
	for k, v := range patch.Fields() {
		set[k] = v
	}

	var p portfolio.Portfolio
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"username": username},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return portfolio.Portfolio{}, portfolio.ErrNotFound
	}
	if err != nil {
		return portfolio.Portfolio{}, err
	}
	return p, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
