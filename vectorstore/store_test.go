package vectorstore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"issue-guardian/config"
)

func TestMatchFromPayload(t *testing.T) {
	payload := qdrant.NewValueMap(map[string]any{
		PayloadIssueID:         "issue-1",
		PayloadTitle:           "Broken streetlight",
		PayloadAIDecision:      "YELLOW",
		PayloadTimestamp:       1700000000.0,
		PayloadHumanReviewedAt: 1700003600.0,
	})

	m := matchFromPayload("point-1", payload)

	assert.Equal(t, "point-1", m.PointID)
	assert.Equal(t, "issue-1", m.IssueID)
	assert.Equal(t, "Broken streetlight", m.Title)
	assert.Equal(t, "YELLOW", m.AIDecision)
	assert.Equal(t, 1700000000.0, m.Timestamp)
	assert.Equal(t, 1700003600.0, m.HumanReviewedAt)
	// 없는 키는 빈 값으로 남는다.
	assert.Empty(t, m.HumanDecision)
	assert.Empty(t, m.Description)
}

func TestValueToAny(t *testing.T) {
	payload := qdrant.NewValueMap(map[string]any{
		"s": "text",
		"d": 0.5,
		"i": int64(3),
		"b": true,
	})

	assert.Equal(t, "text", valueToAny(payload["s"]))
	assert.Equal(t, 0.5, valueToAny(payload["d"]))
	assert.Equal(t, int64(3), valueToAny(payload["i"]))
	assert.Equal(t, true, valueToAny(payload["b"]))
}

// newIntegrationStore 는 QDRANT_HOST 가 설정된 경우에만 실제 Qdrant 에 연결한다.
func newIntegrationStore(t *testing.T) *Store {
	t.Helper()

	host := os.Getenv("QDRANT_HOST")
	if host == "" {
		t.Skip("QDRANT_HOST 미설정: Qdrant 통합 테스트 건너뜀")
	}
	config.InitLogger(config.LoggingConfig{Level: "info"})

	suffix := time.Now().UnixNano()
	s, err := NewStore(config.VectorConfig{
		Host:            host,
		Port:            6334,
		TextCollection:  fmt.Sprintf("test_text_%d", suffix),
		ImageCollection: fmt.Sprintf("test_image_%d", suffix),
		TextDim:         384,
		ImageDim:        512,
	}, config.ModerationConfig{}, os.Getenv("QDRANT_API_KEY"))
	require.NoError(t, err)

	require.NoError(t, s.Initialize(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func seedVector(dim, hot int) []float32 {
	v := make([]float32, dim)
	v[hot] = 1.0
	return v
}

func TestStoreIntegration_DuplicateDetection(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	vec := seedVector(384, 0)
	_, err := s.UpsertTextEmbedding(ctx, "issue-dup", vec, "Pothole", "Deep pothole on 5th street", "GREEN")
	require.NoError(t, err)

	match, err := s.DetectDuplicate(ctx, vec)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "issue-dup", match.IssueID)
	assert.Greater(t, match.Score, 0.99)

	// 직교에 가까운 벡터는 임계값을 넘지 못한다.
	miss, err := s.DetectDuplicate(ctx, seedVector(384, 7))
	require.NoError(t, err)
	assert.Nil(t, miss)
}

func TestStoreIntegration_DimensionMismatch(t *testing.T) {
	s := newIntegrationStore(t)

	_, err := s.UpsertTextEmbedding(context.Background(), "issue-bad", seedVector(100, 0), "t", "d", "GREEN")
	require.Error(t, err)
}

func TestStoreIntegration_HumanFeedback(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	vec := seedVector(384, 1)
	_, err := s.UpsertTextEmbedding(ctx, "issue-hitl", vec, "Noise", "Loud music at night", "YELLOW")
	require.NoError(t, err)

	pending, err := s.PendingReviews(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "issue-hitl", pending[0].IssueID)

	before := time.Now().Unix()
	require.NoError(t, s.ApplyHumanFeedback(ctx, "issue-hitl", "APPROVE", "verified on site"))

	// 사람 판정이 기록되면 대기 목록에서 빠지고, 기존 페이로드는 보존된다.
	pending, err = s.PendingReviews(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	match, err := s.DetectDuplicate(ctx, vec)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "YELLOW", match.AIDecision)
	assert.Equal(t, "APPROVE", match.HumanDecision)
	assert.Greater(t, match.Score, 0.99)

	// 판정 시각이 함께 기록된다.
	assert.GreaterOrEqual(t, match.HumanReviewedAt, float64(before))
	assert.LessOrEqual(t, match.HumanReviewedAt, float64(time.Now().Unix()))
}
