// Package postgres provides PostgreSQL implementation of the resource repository.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bissquit/roadmap-api/internal/domain"
	"github.com/bissquit/roadmap-api/internal/pkg/postgres"
	"github.com/bissquit/roadmap-api/internal/resource"
)

// Repository implements resource.Repository over the table of kind K.
type Repository[K domain.Kind] struct {
	table string
}

// NewRepository creates a new PostgreSQL repository for kind K.
func NewRepository[K domain.Kind]() *Repository[K] {
	var k K
	return &Repository[K]{table: k.Table()}
}

// Insert inserts a new resource row.
func (r *Repository[K]) Insert(ctx context.Context, conn postgres.Conn, res *domain.Resource[K]) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, name, description, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, r.table)

	_, err := conn.Exec(ctx, query,
		string(res.ID),
		string(res.UserID),
		string(res.Name),
		descriptionArg(res.Description),
		res.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert %s: %w", r.table, err)
	}
	return nil
}

// Find retrieves all resources matching the filter.
func (r *Repository[K]) Find(ctx context.Context, conn postgres.Conn, filter resource.Filter[K]) ([]domain.Resource[K], error) {
	where, args := filterClauses(filter)
	query := fmt.Sprintf(`
		SELECT id, user_id, name, description, created_at
		FROM %s
		WHERE %s
	`, r.table, where)

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", r.table, err)
	}
	defer rows.Close()

	resources := make([]domain.Resource[K], 0)
	for rows.Next() {
		var (
			id, userID, name string
			description      *string
			createdAt        time.Time
		)
		if err := rows.Scan(&id, &userID, &name, &description, &createdAt); err != nil {
			return nil, fmt.Errorf("scan %s: %w", r.table, err)
		}

		res := domain.Resource[K]{
			ID:        domain.ID[K](id),
			UserID:    domain.UserID(userID),
			Name:      domain.Name[K](name),
			CreatedAt: createdAt,
		}
		if description != nil {
			d := domain.Description[K](*description)
			res.Description = &d
		}
		resources = append(resources, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", r.table, err)
	}

	return resources, nil
}

// Update overwrites every column of the row identified by res.ID.
func (r *Repository[K]) Update(ctx context.Context, conn postgres.Conn, res *domain.Resource[K]) (int64, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $2, description = $3, user_id = $4, created_at = $5
		WHERE id = $1
	`, r.table)

	tag, err := conn.Exec(ctx, query,
		string(res.ID),
		string(res.Name),
		descriptionArg(res.Description),
		string(res.UserID),
		res.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", r.table, err)
	}
	return tag.RowsAffected(), nil
}

func filterClauses[K domain.Kind](filter resource.Filter[K]) (string, []any) {
	clauses := []string{"true"}
	var args []any

	add := func(column string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if filter.ID != nil {
		add("id", string(*filter.ID))
	}
	if filter.Name != nil {
		add("name", string(*filter.Name))
	}
	if filter.Description != nil {
		add("description", string(*filter.Description))
	}
	if filter.CreatedAt != nil {
		add("created_at", *filter.CreatedAt)
	}
	if filter.UserID != nil {
		add("user_id", string(*filter.UserID))
	}

	return strings.Join(clauses, " AND "), args
}

// descriptionArg stores empty descriptions as NULL.
func descriptionArg[K domain.Kind](d *domain.Description[K]) *string {
	if d == nil || *d == "" {
		return nil
	}
	s := string(*d)
	return &s
}
