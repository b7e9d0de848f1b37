// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	RetryBaseDelay = time.Millisecond
	MaxRetryAfter = 5 * time.Millisecond
	m.Run()
}

// scriptedProvider answers with statuses in order, repeating the last one.
func scriptedProvider(t *testing.T, statuses ...int) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := int(atomic.AddInt32(&calls, 1))
		if n > len(statuses) {
			n = len(statuses)
		}
		if statuses[n-1] == http.StatusServiceUnavailable {
			w.Header().Set("Retry-After", "30")
		}
		w.WriteHeader(statuses[n-1])
	}))
	t.Cleanup(ts.Close)
	return ts, &calls
}

func TestDoWithRetry(t *testing.T) {
	tests := []struct {
		name       string
		statuses   []int
		maxRetries int
		wantStatus int
		wantCalls  int32
	}{
		{"first answer accepted", []int{200}, 5, 200, 1},
		{"rate limited twice", []int{429, 429, 200}, 5, 200, 3},
		{"overloaded then ok", []int{529, 200}, 5, 200, 2},
		{"unavailable honours capped retry-after", []int{503, 200}, 2, 200, 2},
		{"retries exhausted returns last response", []int{429}, 3, 429, 4},
		{"zero selects default retries", []int{429}, 0, 429, 6},
		{"server error is not retried", []int{500}, 5, 500, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, calls := scriptedProvider(t, tt.statuses...)

			req, err := http.NewRequest(http.MethodPost, ts.URL, nil)
			require.NoError(t, err)

			start := time.Now()
			resp, err := DoWithRetry(context.Background(), ts.Client(), req, tt.maxRetries)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(calls))
			assert.Less(t, time.Since(start), 2*time.Second)
		})
	}
}

func TestDoWithRetryStopsOnCancel(t *testing.T) {
	ts, _ := scriptedProvider(t, http.StatusTooManyRequests)

	old := RetryBaseDelay
	RetryBaseDelay = 500 * time.Millisecond
	t.Cleanup(func() { RetryBaseDelay = old })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req, err := http.NewRequest(http.MethodPost, ts.URL, nil)
	require.NoError(t, err)

	_, err = DoWithRetry(ctx, ts.Client(), req, 5)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"abc", 0},
		{"-3", 0},
		{"Wed, 21 Oct 2015 07:28:00 GMT", 0},
		{"1", MaxRetryAfter},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, retryAfter(tt.in), "Retry-After %q", tt.in)
	}
}

func TestRetryable(t *testing.T) {
	for status, want := range map[int]bool{
		http.StatusTooManyRequests:     true,
		http.StatusServiceUnavailable:  true,
		529:                            true,
		http.StatusInternalServerError: false,
		http.StatusOK:                  false,
	} {
		assert.Equal(t, want, Retryable(status), "status %d", status)
	}
}
