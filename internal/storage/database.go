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

	"github.com/IshaanNene/ChapterWatch/internal/config"
	"github.com/IshaanNene/ChapterWatch/internal/types"
)

// bookDocument is the stored shape of a record. The title is the _id.
type bookDocument struct {
	Title         string `bson:"_id"`
	BookLink      string `bson:"book_link"`
	LatestChapter string `bson:"latest_chapter"`
	ChapterNumber string `bson:"chapter_number"`
}

func toDocument(rec *types.BookRecord) bookDocument {
	return bookDocument{
		Title:         rec.Title,
		BookLink:      rec.Link,
		LatestChapter: rec.LatestChapter,
		ChapterNumber: rec.ChapterNumber,
	}
}

func (d bookDocument) record() *types.BookRecord {
	return &types.BookRecord{
		Title:         d.Title,
		Link:          d.BookLink,
		LatestChapter: d.LatestChapter,
		ChapterNumber: d.ChapterNumber,
	}
}

// MongoStore writes book records to a MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	policy     ConflictPolicy
	timeout    time.Duration
	count      int
	logger     *slog.Logger
}

// NewMongoStore connects to cfg.URI and pings the server before returning.
func NewMongoStore(ctx context.Context, cfg *config.StorageConfig, policy ConflictPolicy, logger *slog.Logger) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("connect: %w", err)}
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("ping %s: %w", config.RedactURI(cfg.URI), err)}
	}

	s := newMongoStore(client.Database(cfg.Database).Collection(cfg.Collection), policy, cfg.Timeout, logger)
	s.client = client
	s.logger.Info("mongodb connected", "database", cfg.Database, "collection", cfg.Collection, "conflict", policy)
	return s, nil
}

func newMongoStore(coll *mongo.Collection, policy ConflictPolicy, timeout time.Duration, logger *slog.Logger) *MongoStore {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MongoStore{
		collection: coll,
		policy:     policy,
		timeout:    timeout,
		logger:     logger.With("component", "mongo_storage"),
	}
}

func (s *MongoStore) Name() string { return "mongodb" }

func (s *MongoStore) Save(ctx context.Context, rec *types.BookRecord) (SaveOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	doc := toDocument(rec)

	if s.policy == ConflictOverwrite {
		res, err := s.collection.ReplaceOne(ctx, bson.D{{Key: "_id", Value: doc.Title}}, doc,
			options.Replace().SetUpsert(true))
		if err != nil {
			return 0, &types.StorageError{Backend: "mongodb", Key: doc.Title, Err: fmt.Errorf("replace: %w", err)}
		}
		s.count++
		if res.MatchedCount > 0 {
			s.logger.Debug("book replaced", "title", doc.Title)
			return OutcomeReplaced, nil
		}
		s.logger.Debug("book inserted", "title", doc.Title)
		return OutcomeInserted, nil
	}

	_, err := s.collection.InsertOne(ctx, doc)
	switch {
	case err == nil:
		s.count++
		s.logger.Debug("book inserted", "title", doc.Title)
		return OutcomeInserted, nil
	case mongo.IsDuplicateKeyError(err) && s.policy == ConflictSkip:
		s.logger.Debug("book already stored, skipping", "title", doc.Title)
		return OutcomeSkipped, nil
	case mongo.IsDuplicateKeyError(err):
		return 0, &types.StorageError{Backend: "mongodb", Key: doc.Title, Err: types.ErrDuplicateBook}
	default:
		return 0, &types.StorageError{Backend: "mongodb", Key: doc.Title, Err: fmt.Errorf("insert: %w", err)}
	}
}

func (s *MongoStore) Find(ctx context.Context, f Filter) ([]*types.BookRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := bson.D{}
	if f.Title != "" {
		query = append(query, bson.E{Key: "_id", Value: f.Title})
	}
	if f.BookLink != "" {
		query = append(query, bson.E{Key: "book_link", Value: f.BookLink})
	}

	cur, err := s.collection.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("find: %w", err)}
	}
	var docs []bookDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("decode: %w", err)}
	}

	out := make([]*types.BookRecord, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.record())
	}
	return out, nil
}

func (s *MongoStore) Close() error {
	s.logger.Info("mongodb storage closing", "written", s.count)
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil && !errors.Is(err, mongo.ErrClientDisconnected) {
		return &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("disconnect: %w", err)}
	}
	return nil
}
