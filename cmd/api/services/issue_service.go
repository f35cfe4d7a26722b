package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"issue-guardian/config"
	"issue-guardian/eventbus"
	"issue-guardian/events"
	"issue-guardian/models"
	"issue-guardian/repositories"
)

// IssueService 는 제보 접수와 조회를 담당한다.
// 접수 시 검수 태스크 이벤트를 정확히 한 건 발행한다.
type IssueService struct {
	issues *repositories.IssueRepository
	logs   *repositories.ModerationLogRepository
	bus    eventbus.EventBus
}

func NewIssueService(issues *repositories.IssueRepository, logs *repositories.ModerationLogRepository, bus eventbus.EventBus) *IssueService {
	return &IssueService{issues: issues, logs: logs, bus: bus}
}

type CreateIssueInput struct {
	ReporterID  string   `json:"reporter_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
	Videos      []string `json:"videos"`
}

// Create 는 제보를 PENDING 상태로 저장하고 검수 이벤트를 발행한다.
// 제목과 본문이 모두 비어 있으면 파이프라인 진입 전에 거부한다.
func (s *IssueService) Create(ctx context.Context, in CreateIssueInput) (*models.Issue, error) {
	if strings.TrimSpace(in.Title) == "" && strings.TrimSpace(in.Description) == "" {
		return nil, fmt.Errorf("제목 또는 본문이 필요합니다")
	}

	issue := &models.Issue{
		ReporterID:  in.ReporterID,
		Title:       in.Title,
		Description: in.Description,
		Images:      in.Images,
		Videos:      in.Videos,
	}
	id, err := s.issues.Insert(ctx, issue)
	if err != nil {
		return nil, fmt.Errorf("제보 저장 실패: %w", err)
	}
	issue.ID = id

	evt, err := eventbus.NewJSONEvent("", events.IssueReportedEvent{
		BaseEvent: events.BaseEvent{
			Type:      events.IssueReported,
			Timestamp: time.Now(),
			Source:    "api",
			Version:   "1",
		},
		IssueID: id,
		Title:   in.Title,
	}, 0)
	if err != nil {
		return nil, fmt.Errorf("검수 이벤트 구성 실패: %w", err)
	}
	if err := s.bus.Publish(ctx, eventbus.TopicModerationEvents.Base(), evt); err != nil {
		// 발행 실패 시 제보는 PENDING 으로 남는다. 재접수 대신 수동 복구 대상.
		config.Logger.Errorf("제보 %s 검수 이벤트 발행 실패: %v", id.Hex(), err)
		return nil, fmt.Errorf("검수 이벤트 발행 실패: %w", err)
	}

	return issue, nil
}

// GetByID 는 제보 한 건을 조회한다.
func (s *IssueService) GetByID(ctx context.Context, idStr string) (*models.Issue, error) {
	id, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		return nil, fmt.Errorf("잘못된 제보 ID: %w", err)
	}
	return s.issues.FindByID(ctx, id)
}

// Logs 는 제보의 검수 기록을 최신순으로 조회한다.
func (s *IssueService) Logs(ctx context.Context, idStr string, limit int64) ([]models.ModerationLog, error) {
	id, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		return nil, fmt.Errorf("잘못된 제보 ID: %w", err)
	}
	return s.logs.ListByIssueID(ctx, id, limit)
}
