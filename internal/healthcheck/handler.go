package healthcheck

import (
	"net/http"

	"github.com/bissquit/roadmap-api/internal/auth"
	"github.com/bissquit/roadmap-api/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
)

// Handler serves the health check endpoints.
type Handler struct {
	service *Service
	auth    *auth.Authenticator
}

// NewHandler creates a new health check handler.
func NewHandler(service *Service, authenticator *auth.Authenticator) *Handler {
	return &Handler{service: service, auth: authenticator}
}

// RegisterRoutes registers /healthcheck/http and /healthcheck/db.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/healthcheck", func(r chi.Router) {
		r.Get("/http", h.HTTP)
		r.Get("/db", h.DB)
	})
}

// HTTP handles GET /healthcheck/http. Credentials are optional, but a
// credential that is present must be valid.
func (h *Handler) HTTP(w http.ResponseWriter, r *http.Request) {
	res, ok := h.auth.AuthenticateOpt(r.Context(), r.Header)
	if !ok {
		httputil.JSON(w, http.StatusOK, h.service.HTTP(nil))
		return
	}
	if res.Status != auth.StatusAuthenticated {
		err := &auth.Error{Result: res}
		httputil.Error(w, http.StatusUnauthorized, err.Error())
		return
	}
	httputil.JSON(w, http.StatusOK, h.service.HTTP(&res.AuthContext))
}

// DB handles GET /healthcheck/db.
func (h *Handler) DB(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.DB(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, nil)
		return
	}
	httputil.JSON(w, http.StatusOK, status)
}
