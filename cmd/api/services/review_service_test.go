package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"issue-guardian/config"
	"issue-guardian/hitl"
	"issue-guardian/models"
	"issue-guardian/webhook"
)

func init() {
	config.InitLogger(config.LoggingConfig{Level: "error"})
}

type fakeReviewIssueStore struct {
	issue  *models.Issue
	status models.IssueStatus
}

func (f *fakeReviewIssueStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	return f.issue, nil
}

func (f *fakeReviewIssueStore) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.IssueStatus) error {
	f.status = status
	return nil
}

type fakeFeedbackStore struct {
	decision string
	notes    string
	calls    int
}

func (f *fakeFeedbackStore) ApplyHumanFeedback(ctx context.Context, issueID, humanDecision, notes string) error {
	f.decision = humanDecision
	f.notes = notes
	f.calls++
	return nil
}

func TestApplyFeedback_PendingReviewRejected(t *testing.T) {
	var delivered webhook.Payload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&delivered))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	id := primitive.NewObjectID()
	issues := &fakeReviewIssueStore{issue: &models.Issue{
		ID:              id,
		Status:          models.IssueStatusPendingReview,
		ModerationScore: 0.5,
	}}
	feedback := &fakeFeedbackStore{}
	svc := NewReviewService(issues, hitl.NewEscalator(feedback), nil, webhook.NewDispatcher(server.URL, 1))

	issue, err := svc.ApplyFeedback(context.Background(), id.Hex(), hitl.HumanReject, "confirmed abuse")

	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusRejected, issue.Status)
	assert.Equal(t, models.IssueStatusRejected, issues.status)
	assert.Equal(t, hitl.HumanReject, feedback.decision)
	assert.Equal(t, "confirmed abuse", feedback.notes)

	assert.Equal(t, string(models.IssueStatusRejected), delivered.Decision)
	assert.Equal(t, "YELLOW", delivered.AIDecision)
	assert.Equal(t, hitl.HumanReject, delivered.HumanDecision)
	assert.Equal(t, 0.5, delivered.Score)
}

func TestApplyFeedback_ApproveUpdatesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	id := primitive.NewObjectID()
	issues := &fakeReviewIssueStore{issue: &models.Issue{ID: id, Status: models.IssueStatusPendingReview}}
	svc := NewReviewService(issues, hitl.NewEscalator(&fakeFeedbackStore{}), nil, webhook.NewDispatcher(server.URL, 1))

	issue, err := svc.ApplyFeedback(context.Background(), id.Hex(), hitl.HumanApprove, "")

	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusApproved, issue.Status)
}

func TestApplyFeedback_RejectsNonPendingIssue(t *testing.T) {
	for _, status := range []models.IssueStatus{
		models.IssueStatusPending,
		models.IssueStatusApproved,
		models.IssueStatusRejected,
	} {
		t.Run(string(status), func(t *testing.T) {
			id := primitive.NewObjectID()
			issues := &fakeReviewIssueStore{issue: &models.Issue{ID: id, Status: status}}
			feedback := &fakeFeedbackStore{}
			svc := NewReviewService(issues, hitl.NewEscalator(feedback), nil, webhook.NewDispatcher("", 1))

			_, err := svc.ApplyFeedback(context.Background(), id.Hex(), hitl.HumanApprove, "")

			// 검토 대기가 아니면 거부하고 피드백/상태를 건드리지 않는다.
			require.Error(t, err)
			assert.Zero(t, feedback.calls)
			assert.Empty(t, issues.status)
		})
	}
}
