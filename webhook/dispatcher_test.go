package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"issue-guardian/config"
)

func init() {
	config.InitLogger(config.LoggingConfig{Level: "error"})
}

// newTestDispatcher 는 테스트가 빨리 끝나도록 백오프를 줄인다.
func newTestDispatcher(url string) *Dispatcher {
	d := NewDispatcher(url, 2)
	d.backoffBase = time.Millisecond
	d.backoffCap = 5 * time.Millisecond
	return d
}

func TestDeliver_Success(t *testing.T) {
	var received Payload
	var gotSource, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSource = r.Header.Get("X-Source")
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	d := newTestDispatcher(server.URL)
	result := d.Deliver(context.Background(), Payload{
		PostID:     "issue-1",
		Decision:   "APPROVED",
		Score:      0.1,
		Reason:     "Content passed all checks",
		AIDecision: "GREEN",
	})

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, "issue-guardian", gotSource)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "issue-1", received.PostID)
	assert.NotEmpty(t, received.Timestamp)
	assert.Empty(t, d.Pending())
}

func TestDeliver_RetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := newTestDispatcher(server.URL)
	result := d.Deliver(context.Background(), Payload{PostID: "issue-2"})

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Empty(t, d.Pending())
}

func TestDeliver_ExhaustionQueuesPending(t *testing.T) {
	healthy := atomic.Bool{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if healthy.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	d := newTestDispatcher(server.URL)
	result := d.Deliver(context.Background(), Payload{PostID: "issue-3", Decision: "REJECTED"})

	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.NotEmpty(t, result.Error)

	pending := d.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "issue-3", pending[0].Payload.PostID)
	assert.False(t, pending[0].FailedAt.IsZero())

	// 대상이 복구되면 retry_pending 한 번으로 큐가 비워진다.
	healthy.Store(true)
	succeeded, failed := d.RetryPending(context.Background())

	assert.Equal(t, 1, succeeded)
	assert.Zero(t, failed)
	assert.Empty(t, d.Pending())
}

func TestRetryPending_KeepsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	d := newTestDispatcher(server.URL)
	d.Deliver(context.Background(), Payload{PostID: "issue-4"})
	require.Len(t, d.Pending(), 1)

	succeeded, failed := d.RetryPending(context.Background())

	assert.Zero(t, succeeded)
	assert.Equal(t, 1, failed)
	assert.Len(t, d.Pending(), 1)
}

func TestDeliver_MissingURLIsFatal(t *testing.T) {
	d := newTestDispatcher("")
	result := d.Deliver(context.Background(), Payload{PostID: "issue-5"})

	assert.False(t, result.Success)
	assert.Zero(t, result.Attempts)
	assert.Empty(t, d.Pending())
}
