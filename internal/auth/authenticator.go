// Package auth authenticates requests carrying bearer tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bissquit/roadmap-api/internal/domain"
	"github.com/bissquit/roadmap-api/internal/pkg/ctxlog"
	"github.com/bissquit/roadmap-api/internal/pkg/metrics"
	"github.com/bissquit/roadmap-api/internal/pkg/tracing"
)

const bearerPrefix = "Bearer "

// ErrUnauthenticated matches every *Error.
var ErrUnauthenticated = errors.New("unauthenticated")

var errMissingBearer = errors.New("missing Bearer scheme")

// Token is the decoded content of a verified token.
type Token struct {
	UID   string
	Email string
	// Roles is the raw roles claim as decoded from the token.
	Roles any
}

// TokenVerifier verifies a raw token with the identity provider.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*Token, error)
}

// Status tags an authentication Result.
type Status string

// Authentication statuses.
const (
	StatusAuthenticated Status = "Authenticated"
	StatusMissingEmail  Status = "MissingEmail"
	StatusInvalidRoles  Status = "InvalidRoles"
	StatusInvalidToken  Status = "InvalidToken"
)

// Result is the outcome of verifying a credential. AuthContext is set for
// StatusAuthenticated; Err is set for StatusInvalidToken.
type Result struct {
	Status      Status
	AuthContext domain.AuthContext
	Err         error
}

// Error reports a non-authenticated Result.
type Error struct {
	Result Result
}

func (e *Error) Error() string {
	return fmt.Sprintf("Could not authenticate: %s", e.Result.Status)
}

// Unwrap returns the verification cause for StatusInvalidToken.
func (e *Error) Unwrap() error {
	return e.Result.Err
}

// Is reports whether target is ErrUnauthenticated.
func (e *Error) Is(target error) bool {
	return target == ErrUnauthenticated
}

// Authenticator derives an AuthContext from the Authorization header.
type Authenticator struct {
	verifier TokenVerifier
}

// NewAuthenticator creates a new Authenticator.
func NewAuthenticator(verifier TokenVerifier) *Authenticator {
	return &Authenticator{verifier: verifier}
}

// AuthenticateOpt authenticates when an Authorization header is present.
// It returns false if there is no credential to check.
func (a *Authenticator) AuthenticateOpt(ctx context.Context, h http.Header) (Result, bool) {
	credential := h.Get("Authorization")
	if credential == "" {
		return Result{}, false
	}
	return a.authenticate(ctx, credential), true
}

// Authenticate verifies the Authorization header. A missing header yields StatusInvalidToken.
func (a *Authenticator) Authenticate(ctx context.Context, h http.Header) Result {
	return a.authenticate(ctx, h.Get("Authorization"))
}

// AuthenticateOrError returns the caller's AuthContext or an *Error.
func (a *Authenticator) AuthenticateOrError(ctx context.Context, h http.Header) (domain.AuthContext, error) {
	res := a.Authenticate(ctx, h)
	if res.Status != StatusAuthenticated {
		return domain.AuthContext{}, &Error{Result: res}
	}
	return res.AuthContext, nil
}

func (a *Authenticator) authenticate(ctx context.Context, credential string) Result {
	res := a.verify(ctx, credential)
	metrics.AuthResults.WithLabelValues(string(res.Status)).Inc()
	return res
}

func (a *Authenticator) verify(ctx context.Context, credential string) Result {
	if !strings.HasPrefix(credential, bearerPrefix) {
		return invalidToken(errMissingBearer)
	}

	token, err := a.verifier.VerifyToken(ctx, strings.TrimPrefix(credential, bearerPrefix))
	if err != nil {
		ctxlog.FromContext(ctx).DebugContext(ctx, "token verification failed", "error", err)
		return invalidToken(err)
	}

	if token.Email == "" {
		return Result{Status: StatusMissingEmail}
	}

	roles, ok := parseRoles(token.Roles)
	if !ok {
		return Result{Status: StatusInvalidRoles}
	}

	uid, err := domain.ParseUserID(token.UID)
	if err != nil {
		return invalidToken(err)
	}
	email, err := domain.ParseEmail(token.Email)
	if err != nil {
		return invalidToken(err)
	}

	tracing.SetUserID(ctx, uid)

	return Result{
		Status:      StatusAuthenticated,
		AuthContext: domain.NewAuthContext(uid, email, roles),
	}
}

func invalidToken(err error) Result {
	return Result{Status: StatusInvalidToken, Err: err}
}

// parseRoles accepts an array whose every element is a known role name.
func parseRoles(raw any) ([]domain.Role, bool) {
	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case []string:
		items = make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
	default:
		return nil, false
	}

	roles := make([]domain.Role, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		role, err := domain.ParseRole(s)
		if err != nil {
			return nil, false
		}
		roles = append(roles, role)
	}
	return roles, true
}
