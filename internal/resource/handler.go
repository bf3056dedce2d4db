package resource

import (
	"context"
	"net/http"
	"strings"

	"github.com/bissquit/roadmap-api/internal/auth"
	"github.com/bissquit/roadmap-api/internal/domain"
	"github.com/bissquit/roadmap-api/internal/pkg/ctxlog"
	"github.com/bissquit/roadmap-api/internal/pkg/httputil"
	"github.com/bissquit/roadmap-api/internal/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler serves the REST collection for resources of kind K.
type Handler[K domain.Kind] struct {
	service   *Service[K]
	auth      *auth.Authenticator
	validator *validator.Validate
}

// NewHandler creates a new resource handler.
func NewHandler[K domain.Kind](service *Service[K], authenticator *auth.Authenticator) *Handler[K] {
	return &Handler[K]{
		service:   service,
		auth:      authenticator,
		validator: validator.New(),
	}
}

// RegisterRoutes registers the collection under the kind's path, e.g. /projects.
func (h *Handler[K]) RegisterRoutes(r chi.Router) {
	var k K
	r.Route("/"+k.Path(), func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
	})
}

// CreateRequestBody is the body of POST /{kind}.
type CreateRequestBody struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description"`
}

// UpdateRequestBody is the body of PATCH /{kind}/{id}. Omitted fields are kept.
type UpdateRequestBody struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Description *string `json:"description"`
}

var errorMappings = []httputil.ErrorMapping{
	{Error: auth.ErrUnauthenticated, Status: http.StatusUnauthorized},
	{Error: domain.ErrInvalidID, Status: http.StatusBadRequest},
	{Error: domain.ErrInvalidName, Status: http.StatusBadRequest},
}

// Create handles POST /{kind}.
func (h *Handler[K]) Create(w http.ResponseWriter, r *http.Request) {
	ctx := h.requestContext(r)
	ac, err := h.auth.AuthenticateOrError(ctx, r.Header)
	if err != nil {
		httputil.HandleError(ctx, w, err, errorMappings)
		return
	}

	var body CreateRequestBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validator.Struct(body); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	name, err := domain.ParseName[K](body.Name)
	if err != nil {
		httputil.HandleError(ctx, w, err, errorMappings)
		return
	}
	req := CreateRequest[K]{Name: name}
	if body.Description != nil {
		if d := domain.ParseDescription[K](*body.Description); d != "" {
			req.Description = &d
		}
	}

	res, err := h.service.Insert(ctx, ac, req)
	if err != nil {
		httputil.HandleError(ctx, w, err, errorMappings)
		return
	}

	switch res.Status {
	case Created:
		h.count("create", "created")
		httputil.JSON(w, http.StatusCreated, res.Resource)
	case CreateAlreadyExists:
		h.count("create", "already_exists")
		httputil.Error(w, http.StatusConflict, h.label()+" already exists")
	}
}

// List handles GET /{kind}.
func (h *Handler[K]) List(w http.ResponseWriter, r *http.Request) {
	ctx := h.requestContext(r)
	ac, err := h.auth.AuthenticateOrError(ctx, r.Header)
	if err != nil {
		httputil.HandleError(ctx, w, err, errorMappings)
		return
	}

	resources, err := h.service.List(ctx, ac)
	if err != nil {
		httputil.HandleError(ctx, w, err, errorMappings)
		return
	}
	if resources == nil {
		resources = []domain.Resource[K]{}
	}

	h.count("list", "ok")
	httputil.JSON(w, http.StatusOK, resources)
}

// Get handles GET /{kind}/{id}.
func (h *Handler[K]) Get(w http.ResponseWriter, r *http.Request) {
	ctx := h.requestContext(r)
	ac, err := h.auth.AuthenticateOrError(ctx, r.Header)
	if err != nil {
		httputil.HandleError(ctx, w, err, errorMappings)
		return
	}

	id, err := domain.ParseID[K](chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(ctx, w, err, errorMappings)
		return
	}

	found, err := h.service.Find(ctx, ac, id)
	if err != nil {
		httputil.HandleError(ctx, w, err, errorMappings)
		return
	}
	if found == nil {
		h.count("find", "not_found")
		httputil.Error(w, http.StatusNotFound, h.label()+" not found")
		return
	}

	h.count("find", "ok")
	httputil.JSON(w, http.StatusOK, found)
}

// Update handles PATCH /{kind}/{id}.
func (h *Handler[K]) Update(w http.ResponseWriter, r *http.Request) {
	ctx := h.requestContext(r)
	ac, err := h.auth.AuthenticateOrError(ctx, r.Header)
	if err != nil {
		httputil.HandleError(ctx, w, err, errorMappings)
		return
	}

	id, err := domain.ParseID[K](chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(ctx, w, err, errorMappings)
		return
	}

	var body UpdateRequestBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validator.Struct(body); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	req, err := toUpdateRequest[K](body)
	if err != nil {
		httputil.HandleError(ctx, w, err, errorMappings)
		return
	}

	res, err := h.service.Update(ctx, ac, id, req)
	if err != nil {
		httputil.HandleError(ctx, w, err, errorMappings)
		return
	}

	switch res.Status {
	case Updated:
		h.count("update", "updated")
		httputil.JSON(w, http.StatusOK, res.Resource)
	case UpdateNotFound:
		h.count("update", "not_found")
		httputil.Error(w, http.StatusNotFound, h.label()+" not found")
	case UpdateAlreadyExists:
		h.count("update", "already_exists")
		ctxlog.FromContext(ctx).InfoContext(ctx, "rename rejected", "id", id.String(), "conflict_id", res.Resource.ID.String())
		httputil.Error(w, http.StatusConflict, h.label()+" already exists")
	}
}

// toUpdateRequest parses the set fields of body. A blank name is left
// unset so that it keeps the current value.
func toUpdateRequest[K domain.Kind](body UpdateRequestBody) (UpdateRequest[K], error) {
	var req UpdateRequest[K]
	if body.Name != nil && strings.TrimSpace(*body.Name) != "" {
		name, err := domain.ParseName[K](*body.Name)
		if err != nil {
			return UpdateRequest[K]{}, err
		}
		req.Name = &name
	}
	if body.Description != nil {
		d := domain.ParseDescription[K](*body.Description)
		req.Description = &d
	}
	return req, nil
}

// requestContext tags the request logger with the resource kind.
func (h *Handler[K]) requestContext(r *http.Request) context.Context {
	return ctxlog.With(r.Context(), "kind", h.kind())
}

func (h *Handler[K]) kind() string {
	return strings.ToLower(h.label())
}

func (h *Handler[K]) label() string {
	var k K
	return k.Label()
}

func (h *Handler[K]) count(operation, outcome string) {
	metrics.ResourceOperations.WithLabelValues(h.kind(), operation, outcome).Inc()
}
