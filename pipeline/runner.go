package pipeline

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"issue-guardian/classifier"
	"issue-guardian/config"
	"issue-guardian/decision"
	"issue-guardian/hitl"
	"issue-guardian/models"
	"issue-guardian/normalizer"
	"issue-guardian/rules"
	"issue-guardian/vectorstore"
	"issue-guardian/webhook"
)

// IssueStore 는 파이프라인이 사용하는 제보 저장소의 단면이다.
// repositories.IssueRepository 가 구현한다.
type IssueStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Issue, error)
	UpdateAfterModeration(ctx context.Context, id primitive.ObjectID, status models.IssueStatus, score float64) error
}

// LogStore 는 검수 기록 저장소의 단면이다.
// repositories.ModerationLogRepository 가 구현한다.
type LogStore interface {
	Insert(ctx context.Context, log models.ModerationLog) (primitive.ObjectID, error)
}

// Runner 는 제보 하나에 대한 검수 파이프라인 전체를 실행한다.
// 전처리 → 규칙 → 신호 집계 → 최종 판정 → 저장/통지 순서이며,
// 개별 단계의 실패가 전체 실행을 중단시키지 않는다.
type Runner struct {
	issues     IssueStore
	logs       LogStore
	aggregator *classifier.Aggregator
	engine     *decision.Engine
	store      *vectorstore.Store
	dispatcher *webhook.Dispatcher
}

func NewRunner(
	issues IssueStore,
	logs LogStore,
	aggregator *classifier.Aggregator,
	engine *decision.Engine,
	store *vectorstore.Store,
	dispatcher *webhook.Dispatcher,
) *Runner {
	return &Runner{
		issues:     issues,
		logs:       logs,
		aggregator: aggregator,
		engine:     engine,
		store:      store,
		dispatcher: dispatcher,
	}
}

// StatusForTier 는 최종 등급을 제보 상태로 변환한다.
func StatusForTier(tier classifier.Tier) models.IssueStatus {
	switch tier {
	case classifier.TierRed:
		return models.IssueStatusRejected
	case classifier.TierYellow:
		return models.IssueStatusPendingReview
	default:
		return models.IssueStatusApproved
	}
}

// Moderate 는 issueID 에 해당하는 제보를 검수하고 최종 판정을 반환한다.
// 제보 조회 실패만 오류로 반환한다(태스크 큐가 재시도하도록). 그 외 실패는
// 보수적인 판정으로 흡수된다.
func (r *Runner) Moderate(ctx context.Context, issueID primitive.ObjectID) (*decision.Decision, error) {
	issue, err := r.issues.FindByID(ctx, issueID)
	if err != nil {
		return nil, fmt.Errorf("제보 %s 조회 실패: %w", issueID.Hex(), err)
	}

	pre := normalizer.Preprocess(issue.Title, issue.Description)
	ruleResult := rules.RunAllChecks(pre.CleanTitle, pre.CleanDescription)
	aiResult := r.aggregator.Classify(ctx, classifier.Request{
		ID:          issueID.Hex(),
		Title:       pre.CleanTitle,
		Description: pre.CleanDescription,
		Images:      issue.Images,
		Videos:      issue.Videos,
	})
	final := r.engine.Decide(ruleResult, aiResult)

	r.upsertEmbeddings(ctx, issueID.Hex(), pre, aiResult, final)
	r.writeLogs(ctx, issueID, pre, ruleResult, aiResult, final)

	status := StatusForTier(final.Tier)
	if err := r.issues.UpdateAfterModeration(ctx, issueID, status, final.Score); err != nil {
		config.Logger.Errorf("제보 %s 상태 갱신 실패: %v", issueID.Hex(), err)
	}

	payload := webhook.Payload{
		PostID:     issueID.Hex(),
		Decision:   string(status),
		Score:      final.Score,
		Reason:     final.Reason,
		AIDecision: string(final.Tier),
		Metadata: map[string]any{
			"confidence": final.Confidence,
			"flags":      final.Flags,
		},
	}
	if hitl.NeedsReview(final) {
		task := hitl.BuildReviewTask(issueID.Hex(), final)
		payload.Metadata["review_priority"] = string(task.Priority)
		config.Logger.Infof("제보 %s 검토 대기열 등록 (priority=%s): %s", issueID.Hex(), task.Priority, task.Reason)
	}
	result := r.dispatcher.Deliver(ctx, payload)

	config.Logger.Infof("제보 %s 검수 완료: tier=%s score=%.2f status=%s webhook=%v",
		issueID.Hex(), final.Tier, final.Score, status, result.Success)
	return &final, nil
}

// upsertEmbeddings 는 생성된 특징 벡터를 학습 저장소에 적재한다.
// 저장 실패는 로그만 남긴다.
func (r *Runner) upsertEmbeddings(ctx context.Context, issueID string, pre normalizer.Result, aiResult classifier.ClassificationResult, final decision.Decision) {
	if r.store == nil {
		return
	}

	if aiResult.TextEmbedding != nil {
		_, err := r.store.UpsertTextEmbedding(ctx, issueID, aiResult.TextEmbedding, pre.CleanTitle, pre.CleanDescription, string(final.Tier))
		if err != nil {
			config.Logger.Errorf("제보 %s 텍스트 임베딩 적재 실패: %v", issueID, err)
		}
	}
	for _, ie := range aiResult.ImageEmbeddings {
		if _, err := r.store.UpsertImageEmbedding(ctx, issueID, ie.Vector, ie.URL); err != nil {
			config.Logger.Errorf("제보 %s 이미지 임베딩 적재 실패 (%s): %v", issueID, ie.URL, err)
		}
	}
}

// writeLogs 는 단계별 검수 기록을 남긴다. 감사용이며 실패해도 진행한다.
func (r *Runner) writeLogs(ctx context.Context, issueID primitive.ObjectID, pre normalizer.Result, ruleResult rules.Result, aiResult classifier.ClassificationResult, final decision.Decision) {
	entries := []models.ModerationLog{
		{
			IssueID:    issueID,
			Stage:      "RULES",
			Decision:   string(ruleResult.Decision),
			Score:      ruleResult.Score,
			Confidence: ruleResult.Confidence,
			Flags:      ruleResult.Flags,
			Metadata: bson.M{
				"word_count":      pre.Metadata.WordCount,
				"char_count":      pre.Metadata.CharCount,
				"uppercase_ratio": pre.Metadata.UppercaseRatio,
				"has_urls":        pre.Metadata.HasURLs,
			},
		},
		{
			IssueID:  issueID,
			Stage:    "AI",
			Decision: string(aiResult.Tier),
			Score:    aiResult.Score,
			Reason:   aiResult.Reason,
			Metadata: bson.M{
				"items":        len(aiResult.Items),
				"is_duplicate": aiResult.Duplicate != nil,
				"similar":      len(aiResult.SimilarCases),
			},
		},
		{
			IssueID:    issueID,
			Stage:      "FINAL",
			Decision:   string(final.Tier),
			Score:      final.Score,
			Confidence: final.Confidence,
			Flags:      final.Flags,
			Reason:     final.Reason,
		},
	}
	for _, entry := range entries {
		if _, err := r.logs.Insert(ctx, entry); err != nil {
			config.Logger.Errorf("제보 %s 검수 로그 기록 실패 (stage=%s): %v", issueID.Hex(), entry.Stage, err)
		}
	}
}
