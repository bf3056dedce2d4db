package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Resource validation errors.
var (
	ErrInvalidID   = errors.New("invalid id")
	ErrInvalidName = errors.New("invalid name")
)

// MaxNameLength is the maximum length of a resource name in characters.
const MaxNameLength = 100

// Kind describes a user-owned resource type. Implementations are
// zero-size marker types used as type parameters.
type Kind interface {
	// Label is the human readable singular name, e.g. "Project".
	Label() string
	// Table is the storage table holding resources of this kind.
	Table() string
	// Path is the URL collection segment, e.g. "projects".
	Path() string
}

// ProjectKind marks project resources.
type ProjectKind struct{}

func (ProjectKind) Label() string { return "Project" }
func (ProjectKind) Table() string { return "project" }
func (ProjectKind) Path() string  { return "projects" }

// RoadmapKind marks roadmap resources.
type RoadmapKind struct{}

func (RoadmapKind) Label() string { return "Roadmap" }
func (RoadmapKind) Table() string { return "roadmap" }
func (RoadmapKind) Path() string  { return "roadmaps" }

// ID identifies a resource of kind K. IDs of different kinds are distinct types.
type ID[K Kind] string

// NewID generates a fresh random ID.
func NewID[K Kind]() ID[K] {
	return ID[K](uuid.NewString())
}

// ParseID validates that s is a UUID in canonical hyphenated form.
func ParseID[K Kind](s string) (ID[K], error) {
	if len(s) != 36 || uuid.Validate(s) != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return ID[K](s), nil
}

func (id ID[K]) String() string {
	return string(id)
}

// Name is a trimmed resource name of 1 to MaxNameLength characters.
type Name[K Kind] string

// ParseName trims s and checks its length.
func ParseName[K Kind](s string) (Name[K], error) {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	if n < 1 || n > MaxNameLength {
		return "", fmt.Errorf("%w: length must be between 1 and %d", ErrInvalidName, MaxNameLength)
	}
	return Name[K](s), nil
}

func (n Name[K]) String() string {
	return string(n)
}

// Description is a trimmed free-form resource description.
type Description[K Kind] string

// ParseDescription trims s.
func ParseDescription[K Kind](s string) Description[K] {
	return Description[K](strings.TrimSpace(s))
}

func (d Description[K]) String() string {
	return string(d)
}

// Resource is a user-owned named entity.
// ID, UserID and CreatedAt are fixed at creation.
type Resource[K Kind] struct {
	ID          ID[K]           `json:"id"`
	UserID      UserID          `json:"userId"`
	Name        Name[K]         `json:"name"`
	Description *Description[K] `json:"description"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Project is a user-owned project.
type Project = Resource[ProjectKind]

// Roadmap is a user-owned roadmap.
type Roadmap = Resource[RoadmapKind]
