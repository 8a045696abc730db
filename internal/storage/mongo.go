package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kmacleod/hoopsweep/internal/types"
)

const mongoOpTimeout = 30 * time.Second

// gameDocument is the stored shape of one record. The partition triple
// is denormalized onto every document so the same game can live under
// several divisions with independent duplicate flags.
type gameDocument struct {
	GameID                   string          `bson:"game_id"`
	Link                     string          `bson:"link"`
	Division                 string          `bson:"division"`
	Gender                   string          `bson:"gender"`
	Date                     string          `bson:"date"`
	TeamOne                  types.TeamStats `bson:"team_one"`
	TeamTwo                  types.TeamStats `bson:"team_two"`
	DuplicateAcrossDivisions bool            `bson:"duplicate_across_divisions"`
	StoredAt                 time.Time       `bson:"stored_at"`
}

// MongoStore persists records in a MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewMongoStore connects and pings the server.
func NewMongoStore(uri, database, collection string, logger *slog.Logger) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongo", Err: fmt.Errorf("connect: %w", err)}
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, &types.StorageError{Backend: "mongo", Err: fmt.Errorf("ping: %w", err)}
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger.With("component", "mongo_storage"),
	}, nil
}

func (s *MongoStore) Name() string { return "mongo" }

func partitionFilter(item types.WorkItem) bson.M {
	return bson.M{
		"date":     item.DateString(),
		"division": string(item.Division),
		"gender":   string(item.Gender),
	}
}

func gameFilter(item types.WorkItem, link types.GameLink) bson.M {
	f := partitionFilter(item)
	f["link"] = string(link)
	return f
}

func (s *MongoStore) Exists(item types.WorkItem) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	n, err := s.collection.CountDocuments(ctx, partitionFilter(item), options.Count().SetLimit(1))
	if err != nil {
		return false, &types.StorageError{Backend: "mongo", Err: err}
	}
	return n > 0, nil
}

func (s *MongoStore) HasGame(item types.WorkItem, link types.GameLink) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	n, err := s.collection.CountDocuments(ctx, gameFilter(item, link), options.Count().SetLimit(1))
	if err != nil {
		return false, &types.StorageError{Backend: "mongo", Err: err}
	}
	return n > 0, nil
}

func (s *MongoStore) ReadGame(item types.WorkItem, link types.GameLink) (*types.GameRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	var doc gameDocument
	err := s.collection.FindOne(ctx, gameFilter(item, link)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, types.ErrDuplicateSourceMissing
	}
	if err != nil {
		return nil, &types.StorageError{Backend: "mongo", Err: err}
	}

	return &types.GameRecord{
		GameID:                   doc.GameID,
		Link:                     types.GameLink(doc.Link),
		Division:                 types.Division(doc.Division),
		Gender:                   types.Gender(doc.Gender),
		Date:                     doc.Date,
		TeamOne:                  doc.TeamOne,
		TeamTwo:                  doc.TeamTwo,
		DuplicateAcrossDivisions: doc.DuplicateAcrossDivisions,
	}, nil
}

func (s *MongoStore) Append(item types.WorkItem, record *types.GameRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	doc := gameDocument{
		GameID:                   record.GameID,
		Link:                     string(record.Link),
		Division:                 string(item.Division),
		Gender:                   string(item.Gender),
		Date:                     item.DateString(),
		TeamOne:                  record.TeamOne,
		TeamTwo:                  record.TeamTwo,
		DuplicateAcrossDivisions: record.DuplicateAcrossDivisions,
		StoredAt:                 time.Now().UTC(),
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return &types.StorageError{Backend: "mongo", Err: fmt.Errorf("insert: %w", err)}
	}

	s.logger.Debug("record inserted", "game_id", record.GameID, "item", item.String())
	return nil
}

func (s *MongoStore) SetDuplicateFlag(item types.WorkItem, link types.GameLink, duplicate bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	res, err := s.collection.UpdateMany(ctx, gameFilter(item, link),
		bson.M{"$set": bson.M{"duplicate_across_divisions": duplicate}})
	if err != nil {
		return &types.StorageError{Backend: "mongo", Err: err}
	}
	if res.MatchedCount == 0 {
		return types.ErrDuplicateSourceMissing
	}
	return nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
