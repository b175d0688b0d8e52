package store

import (
	"context"

	"github.com/Ceasar-x/sschool/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BookQuery struct {
	Search string
	Page
}

type BookUpdate struct {
	BookName    *string
	Author      *string
	Description *string
}

func (q BookQuery) filter() bson.M {
	if q.Search == "" {
		return bson.M{}
	}
	return bson.M{"$or": searchFilter(q.Search, "bookName", "author", "description")}
}

func (db *DB) InsertBook(ctx context.Context, book *models.Book) error {
	now := db.clock()
	book.ID = primitive.NilObjectID
	book.CreatedAt, book.UpdatedAt = now, now
	res, err := db.Books().InsertOne(ctx, book)
	if err != nil {
		return classify("insert book", err)
	}
	book.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// BookByNameAuthor finds a book with exactly this name and author.
func (db *DB) BookByNameAuthor(ctx context.Context, name, author string) (*models.Book, error) {
	var b models.Book
	if err := db.Books().FindOne(ctx, bson.M{"bookName": name, "author": author}).Decode(&b); err != nil {
		return nil, classify("book by name", err)
	}
	return &b, nil
}

// BookByID returns the book with its creator populated.
func (db *DB) BookByID(ctx context.Context, id primitive.ObjectID) (*models.BookView, error) {
	books, err := db.aggregateBooks(ctx, pagedPipeline(bson.M{"_id": id}, Page{Limit: 1}, bookOwnerLookup()))
	if err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return nil, ErrNotFound
	}
	return &books[0], nil
}

func (db *DB) ListBooks(ctx context.Context, q BookQuery) ([]models.BookView, int64, error) {
	filter := q.filter()
	books, err := db.aggregateBooks(ctx, pagedPipeline(filter, q.Page, bookOwnerLookup()))
	if err != nil {
		return nil, 0, err
	}
	total, err := db.Books().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, classify("count books", err)
	}
	return books, total, nil
}

func (db *DB) CountBooks(ctx context.Context) (int64, error) {
	n, err := db.Books().CountDocuments(ctx, bson.M{})
	return n, classify("count books", err)
}

// UpdateBook applies update and returns the populated book afterwards.
func (db *DB) UpdateBook(ctx context.Context, id primitive.ObjectID, update BookUpdate) (*models.BookView, error) {
	set := bson.M{"updatedAt": db.clock()}
	if update.BookName != nil {
		set["bookName"] = *update.BookName
	}
	if update.Author != nil {
		set["author"] = *update.Author
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	res, err := db.Books().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return nil, classify("update book", err)
	}
	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return db.BookByID(ctx, id)
}

// SetBookCover stores the cover object key and returns the previous one.
func (db *DB) SetBookCover(ctx context.Context, id primitive.ObjectID, key string) (string, error) {
	var prev models.Book
	err := db.Books().FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"coverKey": key, "updatedAt": db.clock()}},
	).Decode(&prev)
	if err != nil {
		return "", classify("set book cover", err)
	}
	return prev.CoverKey, nil
}

// DeleteBook removes a book and returns the deleted document.
func (db *DB) DeleteBook(ctx context.Context, id primitive.ObjectID) (*models.Book, error) {
	var book models.Book
	if err := db.Books().FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&book); err != nil {
		return nil, classify("delete book", err)
	}
	return &book, nil
}

func bookOwnerLookup() []bson.D {
	return ownerLookup("name", "email", "role")
}

func (db *DB) aggregateBooks(ctx context.Context, pipeline []bson.D) ([]models.BookView, error) {
	cur, err := db.Books().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, classify("aggregate books", err)
	}
	defer cur.Close(ctx)
	books := []models.BookView{}
	if err := cur.All(ctx, &books); err != nil {
		return nil, classify("aggregate books", err)
	}
	for i := range books {
		books[i].HasCover = books[i].CoverKey != ""
	}
	return books, nil
}
