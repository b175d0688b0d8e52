package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Material is a study note owned by a single student.
type Material struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"-"`
	Title     string             `bson:"title" json:"title"`
	Content   string             `bson:"content" json:"content"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type MaterialView struct {
	Material `bson:",inline"`
	Owner    *UserSummary `bson:"owner,omitempty" json:"userId"`
}
