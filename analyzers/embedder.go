package analyzers

import (
	"context"
	"fmt"
	"math"
	"os"

	"google.golang.org/genai"

	"issue-guardian/config"
)

const defaultEmbeddingModel = "gemini-embedding-001"

// GeminiEmbedder produces fixed-dimension unit-normalized text embeddings.
// The client is constructed once at process start and shared.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
	dim    int32
}

func NewGeminiEmbedder(ctx context.Context, cfg config.AnalyzersConfig, dim int) (*GeminiEmbedder, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY 환경변수가 설정되지 않았습니다")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai 클라이언트 생성 실패: %w", err)
	}

	model := cfg.EmbeddingModel
	if model == "" {
		model = defaultEmbeddingModel
	}
	return &GeminiEmbedder{client: client, model: model, dim: int32(dim)}, nil
}

// EmbedText requests an embedding truncated to the configured dimension.
// Truncated Gemini embeddings are not unit length, so we renormalize.
func (e *GeminiEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), &genai.EmbedContentConfig{
		OutputDimensionality: genai.Ptr(e.dim),
	})
	if err != nil {
		return nil, fmt.Errorf("텍스트 임베딩 요청 실패: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("빈 임베딩 응답 (model=%s)", e.model)
	}

	vector := resp.Embeddings[0].Values
	if len(vector) != int(e.dim) {
		return nil, fmt.Errorf("임베딩 차원 불일치: 기대 %d, 응답 %d", e.dim, len(vector))
	}
	return normalize(vector), nil
}

func normalize(vector []float32) []float32 {
	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return vector
	}

	out := make([]float32, len(vector))
	for i, v := range vector {
		out[i] = float32(float64(v) / norm)
	}
	return out
}
