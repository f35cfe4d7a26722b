package vectorstore

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"issue-guardian/config"
)

// Payload keys shared with the moderation pipeline and the dashboard.
const (
	PayloadIssueID         = "issue_id"
	PayloadTimestamp       = "timestamp"
	PayloadAIDecision      = "ai_decision"
	PayloadHumanDecision   = "human_decision"
	PayloadHumanNotes      = "human_notes"
	PayloadHumanReviewedAt = "human_reviewed_at"
	PayloadTitle           = "title"
	PayloadDescription     = "description"
	PayloadImageURL        = "image_url"
)

// Duplicate/RAG search defaults. 설정 값이 0 이면 이 값을 사용한다.
const (
	DefaultDuplicateThreshold   = 0.90
	DefaultDuplicateWindowHours = 24
	DefaultRAGThreshold         = 0.75
	DefaultRAGLimit             = 3
)

// Match 는 유사도 검색 혹은 스크롤 결과 한 건이다.
type Match struct {
	PointID         string  `json:"point_id"`
	IssueID         string  `json:"issue_id"`
	Score           float64 `json:"score"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	AIDecision      string  `json:"ai_decision"`
	HumanDecision   string  `json:"human_decision"`
	Timestamp       float64 `json:"timestamp"`
	HumanReviewedAt float64 `json:"human_reviewed_at,omitempty"`
}

// Store 는 Qdrant 컬렉션 두 개(텍스트/이미지 임베딩)를 감싸는 래퍼다.
// 하나의 gRPC 클라이언트 핸들을 생성해 모든 호출이 공유한다.
type Store struct {
	client *qdrant.Client

	textCollection  string
	imageCollection string
	textDim         int
	imageDim        int

	duplicateThreshold   float64
	duplicateWindowHours int
	ragThreshold         float64
	ragLimit             int
}

var (
	store     *Store
	storeOnce sync.Once
	storeErr  error
)

// GetStore 는 설정 기반 Store 싱글턴을 반환한다.
func GetStore() (*Store, error) {
	storeOnce.Do(func() {
		cfg := config.GetConfig()
		store, storeErr = NewStore(cfg.Vector, cfg.Moderation, os.Getenv("QDRANT_API_KEY"))
	})
	return store, storeErr
}

// NewStore 는 Qdrant 클라이언트를 생성한다. 연결 확인은 Initialize 에서 수행한다.
func NewStore(vc config.VectorConfig, mc config.ModerationConfig, apiKey string) (*Store, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   vc.Host,
		Port:   vc.Port,
		APIKey: apiKey,
		UseTLS: apiKey != "",
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant 클라이언트 생성 실패: %w", err)
	}

	s := &Store{
		client:               client,
		textCollection:       vc.TextCollection,
		imageCollection:      vc.ImageCollection,
		textDim:              vc.TextDim,
		imageDim:             vc.ImageDim,
		duplicateThreshold:   mc.DuplicateThreshold,
		duplicateWindowHours: mc.DuplicateWindowHours,
		ragThreshold:         mc.RAGThreshold,
		ragLimit:             mc.RAGLimit,
	}
	if s.textCollection == "" {
		s.textCollection = "issue_text_embeddings"
	}
	if s.imageCollection == "" {
		s.imageCollection = "issue_image_embeddings"
	}
	if s.textDim <= 0 {
		s.textDim = 384
	}
	if s.imageDim <= 0 {
		s.imageDim = 512
	}
	if s.duplicateThreshold <= 0 {
		s.duplicateThreshold = DefaultDuplicateThreshold
	}
	if s.duplicateWindowHours <= 0 {
		s.duplicateWindowHours = DefaultDuplicateWindowHours
	}
	if s.ragThreshold <= 0 {
		s.ragThreshold = DefaultRAGThreshold
	}
	if s.ragLimit <= 0 {
		s.ragLimit = DefaultRAGLimit
	}
	return s, nil
}

// Close 는 내부 gRPC 연결을 닫는다.
func (s *Store) Close() error {
	return s.client.Close()
}

// Initialize 는 두 컬렉션과 timestamp 페이로드 인덱스를 멱등하게 준비한다.
func (s *Store) Initialize(ctx context.Context) error {
	collections := []struct {
		name string
		dim  int
	}{
		{s.textCollection, s.textDim},
		{s.imageCollection, s.imageDim},
	}

	for _, c := range collections {
		exists, err := s.client.CollectionExists(ctx, c.name)
		if err != nil {
			return fmt.Errorf("컬렉션 %s 조회 실패: %w", c.name, err)
		}
		if !exists {
			err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
				CollectionName: c.name,
				VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
					Size:     uint64(c.dim),
					Distance: qdrant.Distance_Cosine,
				}),
			})
			if err != nil {
				return fmt.Errorf("컬렉션 %s 생성 실패: %w", c.name, err)
			}
			config.Logger.Infof("Qdrant 컬렉션 생성: %s (dim=%d)", c.name, c.dim)
		}

		// 시간 창 필터링을 위한 timestamp 인덱스. 이미 있으면 Qdrant가 무시한다.
		_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: c.name,
			FieldName:      PayloadTimestamp,
			FieldType:      qdrant.FieldType_FieldTypeFloat.Enum(),
		})
		if err != nil {
			return fmt.Errorf("컬렉션 %s 의 timestamp 인덱스 생성 실패: %w", c.name, err)
		}
	}
	return nil
}

// Upsert 는 벡터 한 건을 저장하고 새 포인트 ID 를 반환한다.
// 컬렉션 차원과 벡터 길이가 다르면 즉시 실패한다.
func (s *Store) Upsert(ctx context.Context, collection string, vector []float32, payload map[string]any) (string, error) {
	dim := s.dimOf(collection)
	if len(vector) != dim {
		return "", fmt.Errorf("벡터 차원 불일치: 컬렉션 %s 는 %d, 입력은 %d", collection, dim, len(vector))
	}

	pointID := uuid.NewString()
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(pointID),
				Vectors: qdrant.NewVectors(vector...),
				Payload: qdrant.NewValueMap(payload),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("컬렉션 %s upsert 실패: %w", collection, err)
	}
	return pointID, nil
}

// UpsertTextEmbedding 은 본문 임베딩을 텍스트 컬렉션에 저장한다.
func (s *Store) UpsertTextEmbedding(ctx context.Context, issueID string, vector []float32, title, description, aiDecision string) (string, error) {
	return s.Upsert(ctx, s.textCollection, vector, map[string]any{
		PayloadIssueID:     issueID,
		PayloadTimestamp:   float64(time.Now().Unix()),
		PayloadAIDecision:  aiDecision,
		PayloadTitle:       title,
		PayloadDescription: description,
	})
}

// UpsertImageEmbedding 은 이미지 임베딩을 이미지 컬렉션에 저장한다.
func (s *Store) UpsertImageEmbedding(ctx context.Context, issueID string, vector []float32, imageURL string) (string, error) {
	return s.Upsert(ctx, s.imageCollection, vector, map[string]any{
		PayloadIssueID:   issueID,
		PayloadTimestamp: float64(time.Now().Unix()),
		PayloadImageURL:  imageURL,
	})
}

// Search 는 코사인 유사도 내림차순으로 상위 limit 건을 반환한다.
// windowHours 가 0 보다 크면 해당 시간 창 안의 포인트만 대상으로 한다.
func (s *Store) Search(ctx context.Context, collection string, vector []float32, limit int, scoreThreshold float64, windowHours int) ([]Match, error) {
	query := &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		ScoreThreshold: qdrant.PtrOf(float32(scoreThreshold)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if windowHours > 0 {
		cutoff := float64(time.Now().Add(-time.Duration(windowHours) * time.Hour).Unix())
		query.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewRange(PayloadTimestamp, &qdrant.Range{Gte: qdrant.PtrOf(cutoff)}),
			},
		}
	}

	points, err := s.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("컬렉션 %s 검색 실패: %w", collection, err)
	}

	matches := make([]Match, 0, len(points))
	for _, p := range points {
		m := matchFromPayload(p.GetId().GetUuid(), p.GetPayload())
		m.Score = float64(p.GetScore())
		matches = append(matches, m)
	}
	return matches, nil
}

// DetectDuplicate 는 최근 시간 창 안에서 가장 유사한 기존 제보를 찾는다.
// 임계값을 넘는 포인트가 없으면 nil 을 반환한다.
func (s *Store) DetectDuplicate(ctx context.Context, vector []float32) (*Match, error) {
	matches, err := s.Search(ctx, s.textCollection, vector, 1, s.duplicateThreshold, s.duplicateWindowHours)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return &matches[0], nil
}

// SimilarDecisions 는 과거 판정 사례를 시간 제한 없이 검색한다.
func (s *Store) SimilarDecisions(ctx context.Context, vector []float32) ([]Match, error) {
	return s.Search(ctx, s.textCollection, vector, s.ragLimit, s.ragThreshold, 0)
}

// ApplyHumanFeedback 은 issue_id 로 포인트를 찾아 사람 판정과 판정 시각을 페이로드에 기록한다.
// 기존 페이로드를 읽어 병합 후 덮어쓰므로 벡터는 보존되지만, 읽기-쓰기 사이에
// 다른 쓰기가 끼어들 수 있다(원자적이지 않음).
func (s *Store) ApplyHumanFeedback(ctx context.Context, issueID, humanDecision, notes string) error {
	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.textCollection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch(PayloadIssueID, issueID),
			},
		},
		Limit:       qdrant.PtrOf(uint32(1)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return fmt.Errorf("issue %s 포인트 조회 실패: %w", issueID, err)
	}
	if len(points) == 0 {
		return fmt.Errorf("issue %s 에 해당하는 임베딩이 없습니다", issueID)
	}

	point := points[0]
	merged := map[string]any{}
	for k, v := range point.GetPayload() {
		merged[k] = valueToAny(v)
	}
	merged[PayloadHumanDecision] = humanDecision
	merged[PayloadHumanReviewedAt] = float64(time.Now().Unix())
	if notes != "" {
		merged[PayloadHumanNotes] = notes
	}

	_, err = s.client.OverwritePayload(ctx, &qdrant.SetPayloadPoints{
		CollectionName: s.textCollection,
		Payload:        qdrant.NewValueMap(merged),
		PointsSelector: qdrant.NewPointsSelector(point.GetId()),
	})
	if err != nil {
		return fmt.Errorf("issue %s 피드백 기록 실패: %w", issueID, err)
	}
	return nil
}

// PendingReviews 는 AI 가 YELLOW 로 판정했고 아직 사람 판정이 없는 제보를 나열한다.
func (s *Store) PendingReviews(ctx context.Context, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 50
	}

	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.textCollection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch(PayloadAIDecision, "YELLOW"),
			},
			MustNot: []*qdrant.Condition{
				qdrant.NewMatchKeywords(PayloadHumanDecision, "APPROVE", "REJECT"),
			},
		},
		Limit:       qdrant.PtrOf(uint32(limit)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("검토 대기 목록 조회 실패: %w", err)
	}

	matches := make([]Match, 0, len(points))
	for _, p := range points {
		matches = append(matches, matchFromPayload(p.GetId().GetUuid(), p.GetPayload()))
	}
	return matches, nil
}

// TextCollection 은 텍스트 임베딩 컬렉션 이름을 반환한다.
func (s *Store) TextCollection() string { return s.textCollection }

// ImageCollection 은 이미지 임베딩 컬렉션 이름을 반환한다.
func (s *Store) ImageCollection() string { return s.imageCollection }

func (s *Store) dimOf(collection string) int {
	if collection == s.imageCollection {
		return s.imageDim
	}
	return s.textDim
}

func matchFromPayload(pointID string, payload map[string]*qdrant.Value) Match {
	return Match{
		PointID:         pointID,
		IssueID:         payload[PayloadIssueID].GetStringValue(),
		Title:           payload[PayloadTitle].GetStringValue(),
		Description:     payload[PayloadDescription].GetStringValue(),
		AIDecision:      payload[PayloadAIDecision].GetStringValue(),
		HumanDecision:   payload[PayloadHumanDecision].GetStringValue(),
		Timestamp:       payload[PayloadTimestamp].GetDoubleValue(),
		HumanReviewedAt: payload[PayloadHumanReviewedAt].GetDoubleValue(),
	}
}

func valueToAny(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	default:
		return v.String()
	}
}
