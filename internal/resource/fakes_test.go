package resource

import (
	"context"
	"sync"

	"github.com/bissquit/roadmap-api/internal/domain"
	"github.com/bissquit/roadmap-api/internal/pkg/postgres"
)

// fakeRunner runs units of work without a database. conn is always nil.
type fakeRunner struct {
	transactions int
	err          error
}

func (f *fakeRunner) WithConnection(ctx context.Context, fn func(ctx context.Context, conn postgres.Conn) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(ctx, nil)
}

func (f *fakeRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context, conn postgres.Conn) error) error {
	if f.err != nil {
		return f.err
	}
	f.transactions++
	return fn(ctx, nil)
}

// memRepository is an in-memory Repository that records writes.
type memRepository[K domain.Kind] struct {
	mu      sync.Mutex
	rows    []domain.Resource[K]
	inserts int
	updates int

	findErr   error
	insertErr error
	updateErr error
}

func (m *memRepository[K]) Insert(_ context.Context, _ postgres.Conn, r *domain.Resource[K]) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserts++
	m.rows = append(m.rows, *r)
	return nil
}

func (m *memRepository[K]) Find(_ context.Context, _ postgres.Conn, f Filter[K]) ([]domain.Resource[K], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}

	var out []domain.Resource[K]
	for _, r := range m.rows {
		if f.ID != nil && r.ID != *f.ID {
			continue
		}
		if f.Name != nil && r.Name != *f.Name {
			continue
		}
		if f.UserID != nil && r.UserID != *f.UserID {
			continue
		}
		if f.CreatedAt != nil && !r.CreatedAt.Equal(*f.CreatedAt) {
			continue
		}
		if f.Description != nil && (r.Description == nil || *r.Description != *f.Description) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memRepository[K]) Update(_ context.Context, _ postgres.Conn, r *domain.Resource[K]) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return 0, m.updateErr
	}
	m.updates++
	for i := range m.rows {
		if m.rows[i].ID == r.ID {
			m.rows[i] = *r
			return 1, nil
		}
	}
	return 0, nil
}

func (m *memRepository[K]) snapshot() []domain.Resource[K] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Resource[K](nil), m.rows...)
}
