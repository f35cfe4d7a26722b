package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"issue-guardian/models"
)

type ModerationLogRepository struct {
	col *mongo.Collection
}

func NewModerationLogRepository(db *mongo.Database) *ModerationLogRepository {
	return &ModerationLogRepository{col: db.Collection("moderation_logs")}
}

// Insert stores one moderation log entry
func (r *ModerationLogRepository) Insert(ctx context.Context, log models.ModerationLog) (primitive.ObjectID, error) {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	if log.Flags == nil {
		log.Flags = []string{}
	}
	res, err := r.col.InsertOne(ctx, log)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

// ListByIssueID returns logs for one issue, newest first
func (r *ModerationLogRepository) ListByIssueID(ctx context.Context, issueID primitive.ObjectID, limit int64) ([]models.ModerationLog, error) {
	if limit <= 0 {
		limit = 20
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cur, err := r.col.Find(ctx, bson.M{"issue_id": issueID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var logs []models.ModerationLog
	if err := cur.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}
