package tracing

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/bissquit/roadmap-api/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_UsesInboundCorrelationID(t *testing.T) {
	var seen *Context
	handler := Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderCorrelationID, "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.NotNil(t, seen)
	assert.Equal(t, "abc-123", seen.CorrelationID())
	assert.Empty(t, seen.UserID())
	assert.Equal(t, "abc-123", rec.Header().Get(HeaderCorrelationID))
}

func TestMiddleware_GeneratesCorrelationID(t *testing.T) {
	var seen *Context
	handler := Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, seen)
	assert.NoError(t, uuid.Validate(seen.CorrelationID()))
	assert.Equal(t, seen.CorrelationID(), rec.Header().Get(HeaderCorrelationID))
}

func TestMiddleware_IsolatesConcurrentRequests(t *testing.T) {
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc := FromContext(r.Context())
		SetUserID(r.Context(), domain.UserID("user-"+tc.CorrelationID()))

		done := make(chan string)
		go func(ctx context.Context) {
			done <- FromContext(ctx).UserID().String()
		}(r.Context())

		_, _ = w.Write([]byte(<-done))
	}))

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(HeaderCorrelationID, id)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, "user-"+id, rec.Body.String())
		}()
	}
	wg.Wait()
}

func TestSetUserID_WithoutTracingState(t *testing.T) {
	assert.NotPanics(t, func() {
		SetUserID(context.Background(), "uid")
	})
	assert.Nil(t, FromContext(context.Background()))
}

func TestHandler_AddsTracingAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewJSONHandler(&buf, nil)))

	tc := NewContext("corr-1")
	ctx := WithContext(context.Background(), tc)

	logger.InfoContext(ctx, "before auth")
	tc.SetUserID("uid-7")
	logger.InfoContext(ctx, "after auth")
	logger.Info("no context")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)

	var first, second, third map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	require.NoError(t, json.Unmarshal(lines[1], &second))
	require.NoError(t, json.Unmarshal(lines[2], &third))

	assert.Equal(t, "corr-1", first["correlation_id"])
	assert.NotContains(t, first, "user_id")

	assert.Equal(t, "corr-1", second["correlation_id"])
	assert.Equal(t, "uid-7", second["user_id"])

	assert.NotContains(t, third, "correlation_id")
}

func TestHandler_PreservesAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewJSONHandler(&buf, nil))).With("component", "test")

	ctx := WithContext(context.Background(), NewContext("corr-2"))
	logger.InfoContext(ctx, "hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "test", entry["component"])
	assert.Equal(t, "corr-2", entry["correlation_id"])
}
