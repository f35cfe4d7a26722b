package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"issue-guardian/hitl"
	"issue-guardian/models"
	"issue-guardian/vectorstore"
	"issue-guardian/webhook"
)

// ReviewIssueStore 는 리뷰 서비스가 사용하는 제보 저장소 단면이다.
// repositories.IssueRepository 가 구현한다.
type ReviewIssueStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Issue, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.IssueStatus) error
}

// ReviewService 는 HITL 피드백 반영과 대시보드 조회를 담당한다.
type ReviewService struct {
	issues     ReviewIssueStore
	escalator  *hitl.Escalator
	store      *vectorstore.Store
	dispatcher *webhook.Dispatcher
}

func NewReviewService(issues ReviewIssueStore, escalator *hitl.Escalator, store *vectorstore.Store, dispatcher *webhook.Dispatcher) *ReviewService {
	return &ReviewService{issues: issues, escalator: escalator, store: store, dispatcher: dispatcher}
}

// ApplyFeedback 은 모더레이터 판정을 반영한다: 벡터 페이로드 기록,
// 제보 상태 갱신, 결과 웹훅 통지 순서로 진행한다.
// 검토 대기(PENDING_REVIEW) 상태의 제보만 받는다.
func (s *ReviewService) ApplyFeedback(ctx context.Context, idStr, humanDecision, notes string) (*models.Issue, error) {
	id, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		return nil, fmt.Errorf("잘못된 제보 ID: %w", err)
	}
	issue, err := s.issues.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("제보 조회 실패: %w", err)
	}
	if issue.Status != models.IssueStatusPendingReview {
		return nil, fmt.Errorf("검토 대기 상태가 아닌 제보입니다 (현재: %s)", issue.Status)
	}

	if err := s.escalator.ApplyHumanFeedback(ctx, idStr, humanDecision, notes); err != nil {
		return nil, err
	}

	status := models.IssueStatusApproved
	if humanDecision == hitl.HumanReject {
		status = models.IssueStatusRejected
	}
	if err := s.issues.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("제보 상태 갱신 실패: %w", err)
	}
	issue.Status = status

	// 사람 판정은 확신도 1.0 으로 통지한다. 검토 대기 제보만 받으므로 AI 판정은 YELLOW 다.
	s.dispatcher.Deliver(ctx, webhook.Payload{
		PostID:        idStr,
		Decision:      string(status),
		Score:         issue.ModerationScore,
		Reason:        notes,
		AIDecision:    "YELLOW",
		HumanDecision: humanDecision,
		Metadata: map[string]any{
			"confidence": hitl.HumanConfidence,
		},
	})

	return issue, nil
}

// PendingReviews 는 사람 판정이 없는 YELLOW 제보를 나열한다.
func (s *ReviewService) PendingReviews(ctx context.Context, limit int) ([]vectorstore.Match, error) {
	return s.store.PendingReviews(ctx, limit)
}

// RetryWebhooks 는 대기 중인 웹훅 통지를 1회씩 재전송한다.
func (s *ReviewService) RetryWebhooks(ctx context.Context) (succeeded, failed int) {
	return s.dispatcher.RetryPending(ctx)
}

// PendingDeliveries 는 대기 큐 스냅샷을 반환한다.
func (s *ReviewService) PendingDeliveries() []webhook.PendingDelivery {
	return s.dispatcher.Pending()
}
