//go:build integration

package postgres_test

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/bissquit/roadmap-api/internal/domain"
	pgutil "github.com/bissquit/roadmap-api/internal/pkg/postgres"
	"github.com/bissquit/roadmap-api/internal/resource"
	"github.com/bissquit/roadmap-api/internal/resource/postgres"
	"github.com/bissquit/roadmap-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var transactor *pgutil.Transactor

func TestMain(m *testing.M) {
	ctx := context.Background()

	pg, err := testutil.NewPostgresContainer(ctx)
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}

	pool, err := pgutil.Connect(ctx, pgutil.Config{URL: pg.ConnectionString, ConnectAttempts: 3})
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	transactor = pgutil.NewTransactor(pool)

	code := m.Run()

	pool.Close()
	if err := pg.Terminate(ctx); err != nil {
		log.Printf("terminate postgres: %v", err)
	}
	os.Exit(code)
}

func newProject(userID domain.UserID, name string, description *string) domain.Project {
	p := domain.Project{
		ID:        domain.NewID[domain.ProjectKind](),
		UserID:    userID,
		Name:      domain.Name[domain.ProjectKind](name),
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	if description != nil {
		d := domain.Description[domain.ProjectKind](*description)
		p.Description = &d
	}
	return p
}

func TestRepository_InsertFindRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewRepository[domain.ProjectKind]()
	description := "round trip"
	p := newProject("uid-roundtrip", "Alpha", &description)

	err := transactor.WithTransaction(ctx, func(ctx context.Context, conn pgutil.Conn) error {
		return repo.Insert(ctx, conn, &p)
	})
	require.NoError(t, err)

	found, err := pgutil.InConnection(ctx, transactor, func(ctx context.Context, conn pgutil.Conn) ([]domain.Project, error) {
		return repo.Find(ctx, conn, resource.Filter[domain.ProjectKind]{ID: &p.ID})
	})
	require.NoError(t, err)
	require.Len(t, found, 1)

	got := found[0]
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, p.UserID, got.UserID)
	assert.Equal(t, p.Name, got.Name)
	require.NotNil(t, got.Description)
	assert.Equal(t, *p.Description, *got.Description)
	assert.True(t, p.CreatedAt.Equal(got.CreatedAt))
}

func TestRepository_FindFilters(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewRepository[domain.ProjectKind]()
	owner := domain.UserID("uid-filters")
	a := newProject(owner, "A", nil)
	b := newProject(owner, "B", nil)
	other := newProject("uid-filters-other", "A", nil)

	err := transactor.WithTransaction(ctx, func(ctx context.Context, conn pgutil.Conn) error {
		for _, p := range []*domain.Project{&a, &b, &other} {
			if err := repo.Insert(ctx, conn, p); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	find := func(f resource.Filter[domain.ProjectKind]) []domain.Project {
		t.Helper()
		found, err := pgutil.InConnection(ctx, transactor, func(ctx context.Context, conn pgutil.Conn) ([]domain.Project, error) {
			return repo.Find(ctx, conn, f)
		})
		require.NoError(t, err)
		return found
	}

	byOwner := find(resource.Filter[domain.ProjectKind]{UserID: &owner})
	assert.Len(t, byOwner, 2)

	name := domain.Name[domain.ProjectKind]("A")
	byName := find(resource.Filter[domain.ProjectKind]{UserID: &owner, Name: &name})
	require.Len(t, byName, 1)
	assert.Equal(t, a.ID, byName[0].ID)

	missing := domain.NewID[domain.ProjectKind]()
	assert.Empty(t, find(resource.Filter[domain.ProjectKind]{ID: &missing}))
}

func TestRepository_Update(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewRepository[domain.RoadmapKind]()
	r := domain.Roadmap{
		ID:        domain.NewID[domain.RoadmapKind](),
		UserID:    "uid-update",
		Name:      "Q3",
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, transactor.WithTransaction(ctx, func(ctx context.Context, conn pgutil.Conn) error {
		return repo.Insert(ctx, conn, &r)
	}))

	d := domain.Description[domain.RoadmapKind]("shipped")
	r.Name = "Q4"
	r.Description = &d

	affected, err := pgutil.InTransaction(ctx, transactor, func(ctx context.Context, conn pgutil.Conn) (int64, error) {
		return repo.Update(ctx, conn, &r)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	ghost := r
	ghost.ID = domain.NewID[domain.RoadmapKind]()
	affected, err = pgutil.InTransaction(ctx, transactor, func(ctx context.Context, conn pgutil.Conn) (int64, error) {
		return repo.Update(ctx, conn, &ghost)
	})
	require.NoError(t, err)
	assert.Zero(t, affected)

	found, err := pgutil.InConnection(ctx, transactor, func(ctx context.Context, conn pgutil.Conn) ([]domain.Roadmap, error) {
		return repo.Find(ctx, conn, resource.Filter[domain.RoadmapKind]{ID: &r.ID})
	})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Q4", found[0].Name.String())
	assert.Equal(t, "shipped", found[0].Description.String())
}

func TestTransactor_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewRepository[domain.ProjectKind]()
	p := newProject("uid-rollback", "Doomed", nil)
	errAbort := assert.AnError

	err := transactor.WithTransaction(ctx, func(ctx context.Context, conn pgutil.Conn) error {
		if err := repo.Insert(ctx, conn, &p); err != nil {
			return err
		}
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	found, err := pgutil.InConnection(ctx, transactor, func(ctx context.Context, conn pgutil.Conn) ([]domain.Project, error) {
		return repo.Find(ctx, conn, resource.Filter[domain.ProjectKind]{ID: &p.ID})
	})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestRepository_DuplicateID(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewRepository[domain.ProjectKind]()
	p := newProject("uid-dup", "One", nil)

	require.NoError(t, transactor.WithTransaction(ctx, func(ctx context.Context, conn pgutil.Conn) error {
		return repo.Insert(ctx, conn, &p)
	}))

	err := transactor.WithTransaction(ctx, func(ctx context.Context, conn pgutil.Conn) error {
		return repo.Insert(ctx, conn, &p)
	})
	assert.Error(t, err)
}
