package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"issue-guardian/models"
)

type IssueRepository struct {
	col *mongo.Collection
}

func NewIssueRepository(db *mongo.Database) *IssueRepository {
	return &IssueRepository{col: db.Collection("issues")}
}

// Insert stores a new issue with status PENDING
func (r *IssueRepository) Insert(ctx context.Context, issue *models.Issue) (primitive.ObjectID, error) {
	now := time.Now()
	if issue.CreatedAt.IsZero() {
		issue.CreatedAt = now
	}
	issue.UpdatedAt = now
	if issue.Status == "" {
		issue.Status = models.IssueStatusPending
	}
	if issue.Images == nil {
		issue.Images = []string{}
	}
	if issue.Videos == nil {
		issue.Videos = []string{}
	}

	res, err := r.col.InsertOne(ctx, issue)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

// FindByID returns an issue by its ObjectID
func (r *IssueRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	var issue models.Issue
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// UpdateAfterModeration sets status and moderation_score after a pipeline run
func (r *IssueRepository) UpdateAfterModeration(ctx context.Context, id primitive.ObjectID, status models.IssueStatus, score float64) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"status": status, "moderation_score": score, "updated_at": time.Now()},
	})
	return err
}

// UpdateStatus sets only the status field (used by HITL feedback)
func (r *IssueRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.IssueStatus) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"status": status, "updated_at": time.Now()},
	})
	return err
}
