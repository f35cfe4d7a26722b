package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ModerationLog records one pipeline run for audit
// Collection: moderation_logs
type ModerationLog struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	IssueID    primitive.ObjectID `bson:"issue_id" json:"issue_id"`
	Stage      string             `bson:"stage" json:"stage"`
	Decision   string             `bson:"decision" json:"decision"`
	Score      float64            `bson:"score" json:"score"`
	Confidence float64            `bson:"confidence" json:"confidence"`
	Flags      []string           `bson:"flags" json:"flags"`
	Reason     string             `bson:"reason" json:"reason"`
	Metadata   bson.M             `bson:"metadata" json:"metadata"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}
