package domain

import (
	"context"
	"time"
)

// Store is the persistence contract consumed by the identity service.
type Store interface {
	CreateDomain(ctx context.Context, domain *Domain) error
	DomainByID(ctx context.Context, id string) (*Domain, error)
	ListDomains(ctx context.Context) ([]Domain, error)

	CreateProject(ctx context.Context, project *Project) error
	ProjectByID(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context) ([]Project, error)
	UpdateProject(ctx context.Context, id string, fields map[string]any) error
	DeleteProject(ctx context.Context, id string) error

	CreateUser(ctx context.Context, user *User) error
	UserByID(ctx context.Context, id string) (*User, error)
	UserByName(ctx context.Context, name, domainID string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id string) error

	CreateRole(ctx context.Context, role *Role) error
	RoleByID(ctx context.Context, id string) (*Role, error)
	ListRoles(ctx context.Context) ([]Role, error)

	CreateToken(ctx context.Context, token *Token) error
	// TokenByDigest returns the token record matching digest whose
	// expires_at is after now. Expired or deleted rows are reported as
	// ErrTokenInvalid.
	TokenByDigest(ctx context.Context, digest string, now time.Time) (*Token, error)
	DeleteToken(ctx context.Context, id string) error
}
