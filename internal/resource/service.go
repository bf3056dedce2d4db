// Package resource provides business logic and HTTP handlers for user-owned
// resources such as projects and roadmaps.
package resource

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bissquit/roadmap-api/internal/domain"
	"github.com/bissquit/roadmap-api/internal/pkg/ctxlog"
	"github.com/bissquit/roadmap-api/internal/pkg/postgres"
)

// CreateRequest holds data for creating a resource.
type CreateRequest[K domain.Kind] struct {
	Name        domain.Name[K]
	Description *domain.Description[K]
}

// UpdateRequest holds a partial update. Nil fields are left unchanged.
type UpdateRequest[K domain.Kind] struct {
	Name        *domain.Name[K]
	Description *domain.Description[K]
}

// CreateStatus is the outcome of Service.Insert.
type CreateStatus int

// Create outcomes.
const (
	Created CreateStatus = iota + 1
	CreateAlreadyExists
)

// CreateResult is returned by Service.Insert. For Created, Resource is the new
// resource; for CreateAlreadyExists, it is the existing one with the same name.
type CreateResult[K domain.Kind] struct {
	Status   CreateStatus
	Resource domain.Resource[K]
}

// UpdateStatus is the outcome of Service.Update.
type UpdateStatus int

// Update outcomes.
const (
	Updated UpdateStatus = iota + 1
	UpdateNotFound
	UpdateAlreadyExists
)

// UpdateResult is returned by Service.Update. Resource is the updated resource
// for Updated, the conflicting resource for UpdateAlreadyExists and empty for
// UpdateNotFound.
type UpdateResult[K domain.Kind] struct {
	Status   UpdateStatus
	Resource domain.Resource[K]
}

// Service implements resource business logic for kind K. Every operation
// is scoped to the resources owned by the calling user.
type Service[K domain.Kind] struct {
	repo  Repository[K]
	tx    postgres.Runner
	now   func() time.Time
	newID func() domain.ID[K]
}

// NewService creates a new resource service.
func NewService[K domain.Kind](repo Repository[K], tx postgres.Runner) *Service[K] {
	return &Service[K]{
		repo:  repo,
		tx:    tx,
		now:   func() time.Time { return time.Now().UTC() },
		newID: domain.NewID[K],
	}
}

// Insert creates a resource owned by the caller unless the caller already owns
// one with the same name.
func (s *Service[K]) Insert(ctx context.Context, ac domain.AuthContext, req CreateRequest[K]) (CreateResult[K], error) {
	ctxlog.FromContext(ctx).InfoContext(ctx, "creating "+s.label())

	candidate := domain.Resource[K]{
		ID:          s.newID(),
		UserID:      ac.ID,
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   s.now(),
	}

	return postgres.InTransaction(ctx, s.tx, func(ctx context.Context, conn postgres.Conn) (CreateResult[K], error) {
		existing, err := s.repo.Find(ctx, conn, Filter[K]{Name: &req.Name, UserID: &ac.ID})
		if err != nil {
			return CreateResult[K]{}, fmt.Errorf("find %s by name: %w", s.label(), err)
		}
		if len(existing) > 0 {
			return CreateResult[K]{Status: CreateAlreadyExists, Resource: existing[0]}, nil
		}

		if err := s.repo.Insert(ctx, conn, &candidate); err != nil {
			return CreateResult[K]{}, fmt.Errorf("insert %s: %w", s.label(), err)
		}
		return CreateResult[K]{Status: Created, Resource: candidate}, nil
	})
}

// List returns all resources owned by the caller.
func (s *Service[K]) List(ctx context.Context, ac domain.AuthContext) ([]domain.Resource[K], error) {
	return postgres.InTransaction(ctx, s.tx, func(ctx context.Context, conn postgres.Conn) ([]domain.Resource[K], error) {
		resources, err := s.repo.Find(ctx, conn, Filter[K]{UserID: &ac.ID})
		if err != nil {
			return nil, fmt.Errorf("list %ss: %w", s.label(), err)
		}
		return resources, nil
	})
}

// Find returns the caller's resource with the given id, or nil if the caller
// owns no such resource.
func (s *Service[K]) Find(ctx context.Context, ac domain.AuthContext, id domain.ID[K]) (*domain.Resource[K], error) {
	return postgres.InTransaction(ctx, s.tx, func(ctx context.Context, conn postgres.Conn) (*domain.Resource[K], error) {
		return s.findOwned(ctx, conn, ac, id)
	})
}

// Update applies req to the caller's resource with the given id.
// Renaming to a name the caller already uses is rejected without writing.
func (s *Service[K]) Update(ctx context.Context, ac domain.AuthContext, id domain.ID[K], req UpdateRequest[K]) (UpdateResult[K], error) {
	ctxlog.FromContext(ctx).InfoContext(ctx, "updating "+s.label(), "id", id.String())

	return postgres.InTransaction(ctx, s.tx, func(ctx context.Context, conn postgres.Conn) (UpdateResult[K], error) {
		current, err := s.findOwned(ctx, conn, ac, id)
		if err != nil {
			return UpdateResult[K]{}, err
		}
		if current == nil {
			return UpdateResult[K]{Status: UpdateNotFound}, nil
		}

		merged := merge(*current, req)

		if merged.Name != current.Name {
			others, err := s.repo.Find(ctx, conn, Filter[K]{Name: &merged.Name, UserID: &ac.ID})
			if err != nil {
				return UpdateResult[K]{}, fmt.Errorf("find %s by name: %w", s.label(), err)
			}
			if len(others) > 0 {
				return UpdateResult[K]{Status: UpdateAlreadyExists, Resource: others[0]}, nil
			}
		}

		if _, err := s.repo.Update(ctx, conn, &merged); err != nil {
			return UpdateResult[K]{}, fmt.Errorf("update %s: %w", s.label(), err)
		}
		return UpdateResult[K]{Status: Updated, Resource: merged}, nil
	})
}

func (s *Service[K]) findOwned(ctx context.Context, conn postgres.Conn, ac domain.AuthContext, id domain.ID[K]) (*domain.Resource[K], error) {
	found, err := s.repo.Find(ctx, conn, Filter[K]{ID: &id, UserID: &ac.ID})
	if err != nil {
		return nil, fmt.Errorf("find %s by id: %w", s.label(), err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

func (s *Service[K]) label() string {
	var k K
	return strings.ToLower(k.Label())
}

// merge overlays the set fields of req onto r. An empty description counts as unset.
func merge[K domain.Kind](r domain.Resource[K], req UpdateRequest[K]) domain.Resource[K] {
	if req.Name != nil && *req.Name != "" {
		r.Name = *req.Name
	}
	if req.Description != nil && *req.Description != "" {
		d := *req.Description
		r.Description = &d
	}
	return r
}
