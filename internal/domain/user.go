package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Identity validation errors.
var (
	ErrInvalidUserID = errors.New("invalid user id")
	ErrInvalidEmail  = errors.New("invalid email")
	ErrInvalidRole   = errors.New("invalid role")
)

var validate = validator.New()

// UserID is the opaque identifier issued by the identity provider.
type UserID string

// ParseUserID validates a raw user identifier.
func ParseUserID(s string) (UserID, error) {
	if strings.TrimSpace(s) == "" {
		return "", ErrInvalidUserID
	}
	return UserID(s), nil
}

func (id UserID) String() string {
	return string(id)
}

// Email is an email address in valid address syntax.
type Email string

// ParseEmail validates a raw email address.
func ParseEmail(s string) (Email, error) {
	if err := validate.Var(s, "required,email"); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, s)
	}
	return Email(s), nil
}

func (e Email) String() string {
	return string(e)
}

// Role is a permission level granted by the identity provider.
type Role string

// Roles.
const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

// IsValid checks if the role is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleUser:
		return true
	}
	return false
}

// ParseRole parses a role name. Matching is exact.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// AuthContext identifies the caller of an authenticated request.
// It is derived from a verified token and never persisted.
type AuthContext struct {
	ID    UserID `json:"id"`
	Email Email  `json:"email"`
	Roles []Role `json:"roles"`
}

// NewAuthContext creates an AuthContext.
func NewAuthContext(id UserID, email Email, roles []Role) AuthContext {
	return AuthContext{
		ID:    id,
		Email: email,
		Roles: slices.Clone(roles),
	}
}

// IsAdmin returns true if the caller holds the Admin role.
func (a AuthContext) IsAdmin() bool {
	return slices.Contains(a.Roles, RoleAdmin)
}
