package resource

import (
	"context"
	"time"

	"github.com/bissquit/roadmap-api/internal/domain"
	"github.com/bissquit/roadmap-api/internal/pkg/postgres"
)

// Repository defines storage operations for resources of kind K.
// Implementations run on the supplied connection and never open
// connections or transactions themselves.
type Repository[K domain.Kind] interface {
	// Insert appends one resource.
	Insert(ctx context.Context, conn postgres.Conn, r *domain.Resource[K]) error
	// Find returns all resources matching every set field of filter.
	Find(ctx context.Context, conn postgres.Conn, filter Filter[K]) ([]domain.Resource[K], error)
	// Update overwrites the stored row with r.ID and returns the number of rows affected.
	Update(ctx context.Context, conn postgres.Conn, r *domain.Resource[K]) (int64, error)
}

// Filter selects resources by equality on each non-nil field.
// The zero Filter matches everything.
type Filter[K domain.Kind] struct {
	ID          *domain.ID[K]
	Name        *domain.Name[K]
	Description *domain.Description[K]
	CreatedAt   *time.Time
	UserID      *domain.UserID
}
