package tracing

import (
	"net/http"

	"github.com/google/uuid"
)

// Middleware establishes tracing state for each request. The correlation id
// is taken from the Correlation-Id header or generated, and echoed on the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get(HeaderCorrelationID)
		if correlationID == "" {
			correlationID = uuid.NewString()
		}
		w.Header().Set(HeaderCorrelationID, correlationID)

		ctx := WithContext(r.Context(), NewContext(correlationID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
