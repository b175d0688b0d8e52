package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	EmailStatusSent   = "sent"
	EmailStatusFailed = "failed"
)

// EmailLog records one delivery attempt of an account notification.
type EmailLog struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	NotificationID string             `bson:"notificationId" json:"notificationId"`
	Kind           string             `bson:"kind" json:"kind"`
	UserID         primitive.ObjectID `bson:"userId" json:"userId"`
	ToEmail        string             `bson:"toEmail" json:"toEmail"`
	Subject        string             `bson:"subject" json:"subject"`
	Status         string             `bson:"status" json:"status"`
	Error          string             `bson:"error,omitempty" json:"error,omitempty"`
	SentAt         time.Time          `bson:"sentAt" json:"sentAt"`
}
