package analyzers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"time"

	"issue-guardian/config"
)

// InferenceClient는 Python inference-service HTTP API를 호출하는 얇은 클라이언트다.
//
// - 모델 로딩/추론은 전혀 알지 않고, NSFW 점수와 특징 벡터만 받아온다.
// - classifier.MediaAnalyzer 를 구현해 파이프라인에 주입된다.
//
// baseURL 예: http://inference_service:8002
type InferenceClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewInferenceClient(cfg config.AnalyzersConfig) *InferenceClient {
	base := cfg.InferenceBaseURL
	if base == "" {
		base = os.Getenv("INFERENCE_BASE_URL")
	}
	if base == "" {
		base = "http://inference_service:8002"
	}

	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 10
	}

	return &InferenceClient{
		httpClient: &http.Client{Timeout: time.Duration(timeout) * time.Second},
		baseURL:    base,
	}
}

type scoreRequest struct {
	URL string `json:"url"`
}

type scoreResponse struct {
	Score      float64   `json:"score"`
	Detections []string  `json:"detections"`
	Embedding  []float32 `json:"embedding"`
}

// AnalyzeImage는 POST /api/v1/images/score 를 호출한다.
func (c *InferenceClient) AnalyzeImage(ctx context.Context, contentURL string) (float64, []float32, []string, error) {
	return c.score(ctx, "/api/v1/images/score", contentURL)
}

// AnalyzeVideo는 POST /api/v1/videos/score 를 호출한다.
func (c *InferenceClient) AnalyzeVideo(ctx context.Context, contentURL string) (float64, []float32, []string, error) {
	return c.score(ctx, "/api/v1/videos/score", contentURL)
}

func (c *InferenceClient) score(ctx context.Context, relPath, contentURL string) (float64, []float32, []string, error) {
	buf, err := json.Marshal(scoreRequest{URL: contentURL})
	if err != nil {
		return 0, nil, nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, relPath, bytes.NewReader(buf))
	if err != nil {
		return 0, nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return 0, nil, nil, fmt.Errorf("inference-service %s: status=%d body=%s", relPath, resp.StatusCode, string(b))
	}

	var out scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, nil, nil, err
	}

	// 점수는 [0,1] 범위를 벗어날 수 없다.
	if out.Score < 0 {
		out.Score = 0
	} else if out.Score > 1 {
		out.Score = 1
	}
	return out.Score, out.Embedding, out.Detections, nil
}

// Health 는 inference-service 의 /health 엔드포인트를 호출해 상태를 확인한다.
func (c *InferenceClient) Health(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("inference-service Health: status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}

func (c *InferenceClient) newRequest(ctx context.Context, method, relPath string, body io.Reader) (*http.Request, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	base.Path = path.Join(base.Path, relPath)
	return http.NewRequestWithContext(ctx, method, base.String(), body)
}
