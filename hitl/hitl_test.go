package hitl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"issue-guardian/classifier"
	"issue-guardian/decision"
)

func TestNeedsReview(t *testing.T) {
	assert.True(t, NeedsReview(decision.Decision{Tier: classifier.TierYellow}))
	assert.False(t, NeedsReview(decision.Decision{Tier: classifier.TierGreen}))
	assert.False(t, NeedsReview(decision.Decision{Tier: classifier.TierRed}))
}

func TestBuildReviewTask(t *testing.T) {
	t.Run("점수 0.7 이하는 NORMAL", func(t *testing.T) {
		task := BuildReviewTask("issue-1", decision.Decision{Score: 0.7, Reason: "r", Confidence: 0.7})

		assert.Equal(t, PriorityNormal, task.Priority)
		assert.Equal(t, "issue-1", task.RequestID)
		assert.Equal(t, 0.7, task.Confidence)
		assert.False(t, task.CreatedAt.IsZero())
	})

	t.Run("점수 0.7 초과는 HIGH", func(t *testing.T) {
		task := BuildReviewTask("issue-2", decision.Decision{
			Score: 0.75,
			Flags: []string{"LOW_UNIQUENESS"},
		})

		assert.Equal(t, PriorityHigh, task.Priority)
		assert.Equal(t, []string{"LOW_UNIQUENESS"}, task.Flags)
	})
}

type fakeFeedbackStore struct {
	issueID  string
	decision string
	notes    string
	calls    int
}

func (f *fakeFeedbackStore) ApplyHumanFeedback(ctx context.Context, issueID, humanDecision, notes string) error {
	f.issueID = issueID
	f.decision = humanDecision
	f.notes = notes
	f.calls++
	return nil
}

func TestApplyHumanFeedback(t *testing.T) {
	t.Run("유효한 판정은 저장소에 전달", func(t *testing.T) {
		store := &fakeFeedbackStore{}
		e := NewEscalator(store)

		err := e.ApplyHumanFeedback(context.Background(), "issue-1", HumanReject, "policy violation")

		require.NoError(t, err)
		assert.Equal(t, 1, store.calls)
		assert.Equal(t, "issue-1", store.issueID)
		assert.Equal(t, "REJECT", store.decision)
		assert.Equal(t, "policy violation", store.notes)
	})

	t.Run("알 수 없는 판정은 저장소 호출 없이 실패", func(t *testing.T) {
		store := &fakeFeedbackStore{}
		e := NewEscalator(store)

		err := e.ApplyHumanFeedback(context.Background(), "issue-1", "MAYBE", "")

		require.Error(t, err)
		assert.Zero(t, store.calls)
	})
}

func TestTierForHumanDecision(t *testing.T) {
	assert.Equal(t, classifier.TierGreen, TierForHumanDecision(HumanApprove))
	assert.Equal(t, classifier.TierRed, TierForHumanDecision(HumanReject))
}
