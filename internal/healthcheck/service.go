// Package healthcheck reports service and database health.
package healthcheck

import (
	"context"
	"fmt"
	"time"

	"github.com/bissquit/roadmap-api/internal/domain"
	"github.com/bissquit/roadmap-api/internal/pkg/postgres"
)

// Info identifies the running service.
type Info struct {
	Name        string
	Environment string
	Version     string
}

// HTTPStatus is the body of GET /healthcheck/http.
type HTTPStatus struct {
	Name        string         `json:"name"`
	Environment string         `json:"environment"`
	Version     string         `json:"version"`
	UserID      *domain.UserID `json:"userId,omitempty"`
}

// DBStatus is the body of GET /healthcheck/db.
type DBStatus struct {
	// Latency is the round trip of a trivial query in milliseconds.
	Latency float64 `json:"latency"`
}

// Service runs health checks.
type Service struct {
	info Info
	tx   postgres.Runner
	now  func() time.Time
}

// NewService creates a new health check service.
func NewService(info Info, tx postgres.Runner) *Service {
	return &Service{info: info, tx: tx, now: time.Now}
}

// HTTP describes the service, including the caller when authenticated.
func (s *Service) HTTP(ac *domain.AuthContext) HTTPStatus {
	status := HTTPStatus{
		Name:        s.info.Name,
		Environment: s.info.Environment,
		Version:     s.info.Version,
	}
	if ac != nil {
		id := ac.ID
		status.UserID = &id
	}
	return status
}

// DB measures the latency of SELECT 1 on a pooled connection.
func (s *Service) DB(ctx context.Context) (DBStatus, error) {
	start := s.now()
	err := s.tx.WithConnection(ctx, func(ctx context.Context, conn postgres.Conn) error {
		var one int
		return conn.QueryRow(ctx, "SELECT 1").Scan(&one)
	})
	if err != nil {
		return DBStatus{}, fmt.Errorf("query database: %w", err)
	}
	elapsed := s.now().Sub(start)
	return DBStatus{Latency: float64(elapsed.Microseconds()) / 1000}, nil
}
