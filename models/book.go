package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Book struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID      *primitive.ObjectID `bson:"userId" json:"-"` // creator; nil for system-owned
	BookName    string              `bson:"bookName" json:"bookName"`
	Author      string              `bson:"author" json:"author"`
	Description string              `bson:"description" json:"description"`
	CoverKey    string              `bson:"coverKey,omitempty" json:"-"` // object key in S3
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// BookView is a book with its creator populated. Owner is nil when the book
// has no creator or the creator was deleted.
type BookView struct {
	Book     `bson:",inline"`
	Owner    *UserSummary `bson:"owner,omitempty" json:"userId"`
	HasCover bool         `bson:"-" json:"hasCover"`
}
