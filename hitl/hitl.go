package hitl

import (
	"context"
	"fmt"
	"time"

	"issue-guardian/classifier"
	"issue-guardian/decision"
)

// Priority of a review task in the moderator queue.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityNormal Priority = "NORMAL"
)

// HumanConfidence is attached to every moderator decision downstream.
const HumanConfidence = 1.0

// Human decisions accepted through the feedback endpoint.
const (
	HumanApprove = "APPROVE"
	HumanReject  = "REJECT"
)

// ReviewTask is what a moderator sees for one escalated request.
type ReviewTask struct {
	RequestID  string    `json:"request_id"`
	Priority   Priority  `json:"priority"`
	Reason     string    `json:"reason"`
	Flags      []string  `json:"flags,omitempty"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// NeedsReview reports whether the decision requires a human moderator.
func NeedsReview(d decision.Decision) bool {
	return d.Tier == classifier.TierYellow
}

// BuildReviewTask prioritizes by moderation score: above 0.7 jumps the queue.
func BuildReviewTask(requestID string, d decision.Decision) ReviewTask {
	priority := PriorityNormal
	if d.Score > 0.7 {
		priority = PriorityHigh
	}
	return ReviewTask{
		RequestID:  requestID,
		Priority:   priority,
		Reason:     d.Reason,
		Flags:      d.Flags,
		Confidence: d.Confidence,
		CreatedAt:  time.Now(),
	}
}

// FeedbackStore persists a moderator decision next to the learned vector.
type FeedbackStore interface {
	ApplyHumanFeedback(ctx context.Context, issueID, humanDecision, notes string) error
}

// Escalator reconciles moderator decisions back into the learning store.
type Escalator struct {
	store FeedbackStore
}

func NewEscalator(store FeedbackStore) *Escalator {
	return &Escalator{store: store}
}

// ApplyHumanFeedback validates the decision and records it on the vector
// record; the feature vector and the original AI decision stay untouched.
func (e *Escalator) ApplyHumanFeedback(ctx context.Context, requestID, humanDecision, notes string) error {
	if humanDecision != HumanApprove && humanDecision != HumanReject {
		return fmt.Errorf("지원하지 않는 사람 판정: %q (APPROVE 또는 REJECT)", humanDecision)
	}
	return e.store.ApplyHumanFeedback(ctx, requestID, humanDecision, notes)
}

// TierForHumanDecision maps a moderator decision onto the final tier.
func TierForHumanDecision(humanDecision string) classifier.Tier {
	if humanDecision == HumanReject {
		return classifier.TierRed
	}
	return classifier.TierGreen
}
