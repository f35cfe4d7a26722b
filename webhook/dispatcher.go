package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"issue-guardian/config"
)

// Payload is the JSON body POSTed to the main backend.
type Payload struct {
	PostID        string         `json:"post_id"`
	Decision      string         `json:"decision"`
	Score         float64        `json:"score"`
	Reason        string         `json:"reason"`
	Timestamp     string         `json:"timestamp"`
	AIDecision    string         `json:"ai_decision"`
	HumanDecision string         `json:"human_decision,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Result is the terminal outcome of one delivery. Never an error: a failed
// delivery lands in the pending queue instead of the caller's lap.
type Result struct {
	Success  bool   `json:"success"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`
}

// PendingDelivery is a notification that exhausted its retry budget.
// Held in process memory only; a restart drops the queue.
type PendingDelivery struct {
	URL      string    `json:"url"`
	Payload  Payload   `json:"payload"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

// maxAttempts 는 총 시도 횟수(최초 1회 + 재시도 2회)다.
const maxAttempts = 3

// Dispatcher delivers moderation results over HTTP with bounded retries.
type Dispatcher struct {
	client *http.Client
	url    string

	backoffBase time.Duration
	backoffCap  time.Duration

	mu      sync.Mutex
	pending []PendingDelivery
}

// NewDispatcher 는 설정된 웹훅 대상에 대한 디스패처를 생성한다.
// url 이 비어 있으면 Deliver 는 재시도 없이 실패를 기록만 한다.
func NewDispatcher(url string, timeoutSeconds int) *Dispatcher {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 10
	}
	return &Dispatcher{
		client:      &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
		url:         url,
		backoffBase: time.Second,
		backoffCap:  30 * time.Second,
	}
}

// Deliver POSTs the payload, retrying with exponential backoff (1s, 2s, ...
// capped at 30s) for up to three attempts total. Exhausted deliveries are
// queued for RetryPending.
func (d *Dispatcher) Deliver(ctx context.Context, payload Payload) Result {
	if d.url == "" {
		// 설정 누락은 재시도 대상이 아니다. 로그만 남기고 끝낸다.
		config.Logger.Error("웹훅 대상 URL 이 설정되지 않아 결과 통지를 건너뜁니다 (MAIN_BACKEND_WEBHOOK_URL)")
		return Result{Success: false, Attempts: 0, Error: "webhook destination not configured"}
	}

	if payload.Timestamp == "" {
		payload.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	attempts := 0
	var lastErr error
	backoff := retry.WithMaxRetries(maxAttempts-1,
		retry.WithCappedDuration(d.backoffCap, retry.NewExponential(d.backoffBase)))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		if err := d.post(ctx, d.url, payload); err != nil {
			lastErr = err
			config.Logger.Warnf("웹훅 전송 실패 (시도 %d/%d, post_id=%s): %v", attempts, maxAttempts, payload.PostID, err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		if lastErr == nil {
			lastErr = err
		}
		d.enqueue(PendingDelivery{
			URL:      d.url,
			Payload:  payload,
			Error:    lastErr.Error(),
			FailedAt: time.Now(),
		})
		config.Logger.Errorf("웹훅 재시도 한도 초과, 대기 큐에 적재 (post_id=%s): %v", payload.PostID, lastErr)
		return Result{Success: false, Attempts: attempts, Error: lastErr.Error()}
	}

	config.Logger.Infof("웹훅 전송 성공 (post_id=%s, 시도 %d회)", payload.PostID, attempts)
	return Result{Success: true, Attempts: attempts}
}

// RetryPending re-attempts every queued delivery once and keeps the failures.
func (d *Dispatcher) RetryPending(ctx context.Context) (succeeded, failed int) {
	d.mu.Lock()
	queued := d.pending
	d.pending = nil
	d.mu.Unlock()

	var remaining []PendingDelivery
	for _, p := range queued {
		if err := d.post(ctx, p.URL, p.Payload); err != nil {
			p.Error = err.Error()
			remaining = append(remaining, p)
			failed++
			continue
		}
		succeeded++
	}

	if len(remaining) > 0 {
		d.mu.Lock()
		d.pending = append(remaining, d.pending...)
		d.mu.Unlock()
	}

	config.Logger.Infof("대기 웹훅 재전송 완료: 성공 %d, 실패 %d", succeeded, failed)
	return succeeded, failed
}

// Pending returns a snapshot of the queued deliveries.
func (d *Dispatcher) Pending() []PendingDelivery {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]PendingDelivery, len(d.pending))
	copy(out, d.pending)
	return out
}

func (d *Dispatcher) enqueue(p PendingDelivery) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, p)
}

func (d *Dispatcher) post(ctx context.Context, url string, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("페이로드 마샬링 실패: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("요청 생성 실패: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Source", "issue-guardian")
	req.Header.Set("X-Timestamp", time.Now().UTC().Format(time.RFC3339))

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("요청 전송 실패: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent:
		return nil
	default:
		return fmt.Errorf("웹훅 응답 코드 %d", resp.StatusCode)
	}
}
