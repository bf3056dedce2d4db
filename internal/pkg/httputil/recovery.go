package httputil

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/bissquit/roadmap-api/internal/pkg/ctxlog"
	"github.com/go-chi/chi/v5/middleware"
)

// TimeoutMessage is returned when a request exceeds its deadline.
const TimeoutMessage = "Request timeout"

// RecoverMiddleware turns a handler panic into a logged 500 with the
// standard error body. http.ErrAbortHandler is re-panicked so the
// server aborts the connection.
func RecoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}

			ctx := r.Context()
			ctxlog.FromContext(ctx).ErrorContext(ctx, "panic recovered",
				"panic", rvr,
				"stack", string(debug.Stack()),
			)
			if ww.Status() == 0 {
				Error(ww, http.StatusInternalServerError, InternalErrorMessage)
			}
		}()

		next.ServeHTTP(ww, r)
	})
}

// TimeoutMiddleware cancels the request context after timeout. If the
// handler returns past the deadline without writing a response, a 504
// with the standard error body is sent.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			if errors.Is(ctx.Err(), context.DeadlineExceeded) && ww.Status() == 0 {
				Error(ww, http.StatusGatewayTimeout, TimeoutMessage)
			}
		})
	}
}
