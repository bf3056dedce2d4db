// Package tracing carries request-scoped correlation metadata through context.
package tracing

import (
	"context"
	"sync"

	"github.com/bissquit/roadmap-api/internal/domain"
)

// HeaderCorrelationID is the request and response header holding the correlation id.
const HeaderCorrelationID = "Correlation-Id"

// Context is the tracing state of a single request. The correlation id is
// fixed at creation; the user id is set once authentication succeeds.
type Context struct {
	correlationID string

	mu     sync.RWMutex
	userID domain.UserID
}

// NewContext creates tracing state for a request.
func NewContext(correlationID string) *Context {
	return &Context{correlationID: correlationID}
}

// CorrelationID returns the request correlation id.
func (c *Context) CorrelationID() string {
	return c.correlationID
}

// UserID returns the authenticated user id, or "" before authentication.
func (c *Context) UserID() domain.UserID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// SetUserID records the authenticated user.
func (c *Context) SetUserID(id domain.UserID) {
	c.mu.Lock()
	c.userID = id
	c.mu.Unlock()
}

type ctxKey struct{}

// WithContext attaches tracing state to ctx.
func WithContext(ctx context.Context, tc *Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// FromContext returns the tracing state attached to ctx, or nil.
func FromContext(ctx context.Context) *Context {
	tc, _ := ctx.Value(ctxKey{}).(*Context)
	return tc
}

// SetUserID records id on the tracing state of ctx, if any.
func SetUserID(ctx context.Context, id domain.UserID) {
	if tc := FromContext(ctx); tc != nil {
		tc.SetUserID(id)
	}
}
