package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueStatus is the lifecycle status of a reported issue.
type IssueStatus string

const (
	IssueStatusPending       IssueStatus = "PENDING"
	IssueStatusApproved      IssueStatus = "APPROVED"
	IssueStatusPendingReview IssueStatus = "PENDING_REVIEW"
	IssueStatusRejected      IssueStatus = "REJECTED"
)

// Issue represents a user-submitted report document
// Collection: issues
type Issue struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
	ReporterID      string             `bson:"reporter_id" json:"reporter_id"`
	Title           string             `bson:"title" json:"title"`
	Description     string             `bson:"description" json:"description"`
	Images          []string           `bson:"images" json:"images"`
	Videos          []string           `bson:"videos" json:"videos"`
	Status          IssueStatus        `bson:"status" json:"status"`
	ModerationScore float64            `bson:"moderation_score" json:"moderation_score"`
}
