package store

import (
	"context"

	"github.com/Ceasar-x/sschool/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// InsertEmailLog records a notification delivery attempt.
func (db *DB) InsertEmailLog(ctx context.Context, log *models.EmailLog) error {
	_, err := db.EmailLogs().InsertOne(ctx, log, options.InsertOne())
	return classify("insert email log", err)
}

// EmailLogsForUser returns the delivery attempts for a user, newest first.
func (db *DB) EmailLogsForUser(ctx context.Context, userID primitive.ObjectID) ([]models.EmailLog, error) {
	cur, err := db.EmailLogs().Find(ctx, bson.M{"userId": userID}, options.Find().SetSort(bson.M{"sentAt": -1}))
	if err != nil {
		return nil, classify("email logs", err)
	}
	defer cur.Close(ctx)
	logs := []models.EmailLog{}
	if err := cur.All(ctx, &logs); err != nil {
		return nil, classify("email logs", err)
	}
	return logs, nil
}
