package events

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventType 이벤트 타입을 정의하는 열거형
type EventType string

const (
	// 모더레이션 관련 이벤트
	IssueReported       EventType = "issue.reported"
	ModerationCompleted EventType = "issue.moderation_completed"
)

// BaseEvent 모든 이벤트의 기본 구조
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"` // "api", "worker" 등
	Version   string    `json:"version"`
}

// GetType 이벤트 타입을 반환
func (e BaseEvent) GetType() EventType {
	return e.Type
}

// IssueReportedEvent 새 제보가 접수되어 모더레이션이 필요할 때 발행되는 이벤트.
// 워커는 이슈 ID 로 본문을 다시 조회하므로 페이로드는 ID 외 최소 정보만 담는다.
type IssueReportedEvent struct {
	BaseEvent
	IssueID primitive.ObjectID `json:"issue_id"`
	Title   string             `json:"title"`
}

// ModerationCompletedEvent 파이프라인이 최종 결정을 내렸을 때 발행되는 이벤트
type ModerationCompletedEvent struct {
	BaseEvent
	IssueID  primitive.ObjectID `json:"issue_id"`
	Decision string             `json:"decision"` // GREEN, YELLOW, RED
	Score    float64            `json:"score"`
	Reason   string             `json:"reason"`
}
