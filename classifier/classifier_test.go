package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"issue-guardian/config"
	"issue-guardian/vectorstore"
)

func init() {
	config.InitLogger(config.LoggingConfig{Level: "error"})
}

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return f.vector, f.err
}

type fakeMedia struct {
	score      float64
	embedding  []float32
	detections []string
	errFor     map[string]error
}

func (f *fakeMedia) AnalyzeImage(ctx context.Context, url string) (float64, []float32, []string, error) {
	if err := f.errFor[url]; err != nil {
		return 0, nil, nil, err
	}
	return f.score, f.embedding, f.detections, nil
}

func (f *fakeMedia) AnalyzeVideo(ctx context.Context, url string) (float64, []float32, []string, error) {
	return f.AnalyzeImage(ctx, url)
}

type fakeStore struct {
	duplicate *vectorstore.Match
	cases     []vectorstore.Match
	err       error
}

func (f *fakeStore) DetectDuplicate(ctx context.Context, vector []float32) (*vectorstore.Match, error) {
	return f.duplicate, f.err
}

func (f *fakeStore) SimilarDecisions(ctx context.Context, vector []float32) ([]vectorstore.Match, error) {
	return f.cases, f.err
}

func TestScoreToTier(t *testing.T) {
	assert.Equal(t, TierGreen, ScoreToTier(0.0))
	assert.Equal(t, TierGreen, ScoreToTier(0.29))
	assert.Equal(t, TierYellow, ScoreToTier(0.3))
	assert.Equal(t, TierYellow, ScoreToTier(0.79))
	assert.Equal(t, TierRed, ScoreToTier(0.8))
	assert.Equal(t, TierRed, ScoreToTier(1.0))
}

func TestClassify_CleanText(t *testing.T) {
	a := NewAggregator(&fakeEmbedder{vector: []float32{0.1, 0.2}}, &fakeMedia{}, &fakeStore{})

	result := a.Classify(context.Background(), Request{ID: "1", Title: "Pothole", Description: "Deep pothole on 5th street"})

	assert.Equal(t, TierGreen, result.Tier)
	assert.Zero(t, result.Score)
	assert.Equal(t, "Content passed all checks", result.Reason)
	assert.Equal(t, []float32{0.1, 0.2}, result.TextEmbedding)
	require.Len(t, result.Items, 1)
	assert.Equal(t, ModalityText, result.Items[0].Modality)
}

func TestClassify_EmbedderFailureDegrades(t *testing.T) {
	a := NewAggregator(&fakeEmbedder{err: errors.New("embedder down")}, &fakeMedia{}, &fakeStore{})

	result := a.Classify(context.Background(), Request{ID: "1", Title: "t", Description: "d"})

	assert.Equal(t, TierYellow, result.Tier)
	assert.Equal(t, 0.5, result.Score)
	assert.Contains(t, result.Reason, "Text analysis failed")
	assert.Nil(t, result.TextEmbedding)
}

func TestClassify_UnsafeImage(t *testing.T) {
	media := &fakeMedia{score: 0.9, embedding: []float32{1, 2}, detections: []string{"explicit"}}
	a := NewAggregator(&fakeEmbedder{vector: []float32{0.1}}, media, &fakeStore{})

	result := a.Classify(context.Background(), Request{
		ID: "1", Title: "t", Description: "d",
		Images: []string{"https://cdn.example/a.jpg"},
	})

	assert.Equal(t, TierRed, result.Tier)
	assert.Equal(t, 0.9, result.Score)
	assert.Contains(t, result.Reason, "Image flagged unsafe")
	require.Len(t, result.ImageEmbeddings, 1)
	assert.Equal(t, "https://cdn.example/a.jpg", result.ImageEmbeddings[0].URL)
}

func TestClassify_OneImageFailsSiblingsUnaffected(t *testing.T) {
	media := &fakeMedia{score: 0.0, errFor: map[string]error{"bad.jpg": errors.New("timeout")}}
	a := NewAggregator(&fakeEmbedder{vector: []float32{0.1}}, media, &fakeStore{})

	result := a.Classify(context.Background(), Request{
		ID: "1", Title: "t", Description: "d",
		Images: []string{"bad.jpg", "good.jpg"},
	})

	require.Len(t, result.Items, 3)
	assert.Equal(t, 0.5, result.Items[1].Score)
	assert.Equal(t, TierYellow, result.Items[1].Tier)
	assert.Zero(t, result.Items[2].Score)
	assert.Equal(t, TierGreen, result.Items[2].Tier)
	assert.Equal(t, TierYellow, result.Tier)
}

func TestClassify_DuplicateFolded(t *testing.T) {
	store := &fakeStore{duplicate: &vectorstore.Match{IssueID: "old-7", Score: 0.95}}
	a := NewAggregator(&fakeEmbedder{vector: []float32{0.1}}, &fakeMedia{}, store)

	result := a.Classify(context.Background(), Request{ID: "1", Title: "t", Description: "d"})

	assert.Equal(t, 0.95, result.Score)
	assert.Equal(t, TierRed, result.Tier)
	assert.Contains(t, result.Reason, "Near-duplicate of issue old-7")
	require.NotNil(t, result.Duplicate)
}

func TestClassify_RAGMajorityRejectBias(t *testing.T) {
	store := &fakeStore{cases: []vectorstore.Match{
		{IssueID: "a", HumanDecision: "REJECT"},
		{IssueID: "b", HumanDecision: "REJECT"},
		{IssueID: "c", HumanDecision: "APPROVE"},
	}}
	a := NewAggregator(&fakeEmbedder{vector: []float32{0.1}}, &fakeMedia{}, store)

	result := a.Classify(context.Background(), Request{ID: "1", Title: "t", Description: "d"})

	assert.Equal(t, 0.6, result.Score)
	assert.Equal(t, TierYellow, result.Tier)
	assert.Contains(t, result.Reason, "rejected 2 of 3")
	assert.Len(t, result.SimilarCases, 3)
}

func TestClassify_RAGMinorityRejectIgnored(t *testing.T) {
	store := &fakeStore{cases: []vectorstore.Match{
		{IssueID: "a", HumanDecision: "REJECT"},
		{IssueID: "b", HumanDecision: "APPROVE"},
	}}
	a := NewAggregator(&fakeEmbedder{vector: []float32{0.1}}, &fakeMedia{}, store)

	result := a.Classify(context.Background(), Request{ID: "1", Title: "t", Description: "d"})

	assert.Zero(t, result.Score)
	assert.Equal(t, TierGreen, result.Tier)
}

func TestClassify_StoreOutageSkipsLookups(t *testing.T) {
	store := &fakeStore{err: errors.New("qdrant unreachable")}
	a := NewAggregator(&fakeEmbedder{vector: []float32{0.1}}, &fakeMedia{}, store)

	result := a.Classify(context.Background(), Request{ID: "1", Title: "t", Description: "d"})

	assert.Equal(t, TierGreen, result.Tier)
	assert.Equal(t, "Content passed all checks", result.Reason)
	assert.Nil(t, result.Duplicate)
	assert.Nil(t, result.SimilarCases)
}
