package httputil

import (
	"context"
	"errors"
	"net/http"

	"github.com/bissquit/roadmap-api/internal/pkg/ctxlog"
)

// InternalErrorMessage is returned for every unmapped error.
const InternalErrorMessage = "Internal server error"

// ErrorMapping defines how a domain error maps to an HTTP response.
type ErrorMapping struct {
	Error   error
	Status  int
	Message string // if empty, uses err.Error()
}

// HandleError maps err to an HTTP response using mappings.
// Unmapped errors are logged and answered with 500 without exposing details.
func HandleError(ctx context.Context, w http.ResponseWriter, err error, mappings []ErrorMapping) {
	for _, m := range mappings {
		if errors.Is(err, m.Error) {
			msg := m.Message
			if msg == "" {
				msg = err.Error()
			}
			Error(w, m.Status, msg)
			return
		}
	}
	ctxlog.FromContext(ctx).ErrorContext(ctx, "internal error", "error", err)
	Error(w, http.StatusInternalServerError, InternalErrorMessage)
}
