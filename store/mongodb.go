package store

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DB struct {
	Client   *mongo.Client
	Database *mongo.Database
	now      func() time.Time
}

func NewMongoDB(ctx context.Context, uri, dbName string) (*DB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	slog.Info("connected to mongodb", slog.String("database", dbName))
	return &DB{
		Client:   client,
		Database: client.Database(dbName),
		now:      time.Now,
	}, nil
}

func (db *DB) Users() *mongo.Collection {
	return db.Database.Collection("users")
}

func (db *DB) Books() *mongo.Collection {
	return db.Database.Collection("books")
}

func (db *DB) Materials() *mongo.Collection {
	return db.Database.Collection("materials")
}

func (db *DB) EmailLogs() *mongo.Collection {
	return db.Database.Collection("email_logs")
}

// EnsureIndexes creates the indexes the API relies on. The unique index on
// users.email is the authoritative duplicate check.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	if _, err := db.Users().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "role", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}
	if _, err := db.Books().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "bookName", Value: 1}, {Key: "author", Value: 1}},
	}); err != nil {
		return fmt.Errorf("books indexes: %w", err)
	}
	if _, err := db.Materials().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	}); err != nil {
		return fmt.Errorf("materials indexes: %w", err)
	}
	return nil
}

func (db *DB) Disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return db.Client.Disconnect(ctx)
}

func (db *DB) clock() time.Time {
	if db.now == nil {
		return time.Now().UTC()
	}
	return db.now().UTC()
}

// Page selects a window of a sorted result set.
type Page struct {
	Skip  int64
	Limit int64
}

// searchFilter builds a case-insensitive substring match over fields.
// The term is quoted so it is never interpreted as a pattern.
func searchFilter(term string, fields ...string) bson.A {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
	or := make(bson.A, 0, len(fields))
	for _, f := range fields {
		or = append(or, bson.M{f: pattern})
	}
	return or
}

// ownerLookup populates userId into "owner" without the password digest.
func ownerLookup(fields ...string) mongo.Pipeline {
	project := bson.D{{Key: "_id", Value: 1}}
	for _, f := range fields {
		project = append(project, bson.E{Key: f, Value: 1})
	}
	return mongo.Pipeline{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "users"},
			{Key: "localField", Value: "userId"},
			{Key: "foreignField", Value: "_id"},
			{Key: "pipeline", Value: bson.A{bson.D{{Key: "$project", Value: project}}}},
			{Key: "as", Value: "owner"},
		}}},
		{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$owner"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
	}
}

func pagedPipeline(match bson.M, page Page, lookup mongo.Pipeline) mongo.Pipeline {
	p := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}},
	}
	if page.Skip > 0 {
		p = append(p, bson.D{{Key: "$skip", Value: page.Skip}})
	}
	if page.Limit > 0 {
		p = append(p, bson.D{{Key: "$limit", Value: page.Limit}})
	}
	return append(p, lookup...)
}
