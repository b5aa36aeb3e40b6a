package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRetry_ReturnsLastError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func(attempt int) error {
		calls++
		return errors.New("boom " + string(rune('0'+attempt)))
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, "boom 2", err.Error())
}

func TestRetry_StopsOnSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func(attempt int) error {
		calls++
		if attempt == 1 {
			return nil
		}
		return errors.New("transient")
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetry_PermanentNotRetried(t *testing.T) {
	calls := 0
	sentinel := errors.New("bad request")
	err := Retry(context.Background(), 3, time.Millisecond, func(int) error {
		calls++
		return Permanent(sentinel)
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, 3, time.Hour, func(int) error { return errors.New("x") })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPClient_GetRetriesServerErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.Equal(t, "k", r.Header.Get("X-API-KEY"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPClientConfig{
		RetryBaseDelay: time.Millisecond,
		Headers:        map[string]string{"X-API-KEY": "k"},
	}, zap.NewNop())

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, c.Get(context.Background(), srv.URL, nil, nil, &out))
	assert.True(t, out.OK)
	assert.EqualValues(t, 3, atomic.LoadInt32(&hits))
}

func TestHTTPClient_NotFoundIsPermanent(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPClientConfig{RetryBaseDelay: time.Millisecond}, zap.NewNop())
	err := c.Get(context.Background(), srv.URL, nil, nil, &struct{}{})

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Code)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestHTTPClient_PostJSONOnceDoesNotResubmit(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPClientConfig{RetryBaseDelay: time.Millisecond}, zap.NewNop())
	err := c.PostJSONOnce(context.Background(), srv.URL, map[string]string{"a": "b"}, nil, &struct{}{})

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadGateway, httpErr.Code)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))

	// 普通 PostJSON 仍按重试策略执行
	atomic.StoreInt32(&hits, 0)
	require.NoError(t, c.PostJSON(context.Background(), srv.URL, map[string]string{"a": "b"}, nil, &struct{}{}))
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
}
