package domain

import (
	"context"
	"time"

	"github.com/neilfarmer/mopenstack/internal/keystone/token"
)

// Service is the identity service consumed by the HTTP layer.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Introspect(ctx context.Context, rawToken string) (*Introspection, error)
	Revoke(ctx context.Context, rawToken string) error

	CreateDomain(ctx context.Context, req CreateDomainRequest) (*Domain, error)
	GetDomain(ctx context.Context, id string) (*Domain, error)
	ListDomains(ctx context.Context) ([]Domain, error)

	CreateProject(ctx context.Context, req CreateProjectRequest) (*Project, error)
	ResolveProject(ctx context.Context, idOrName string) (*Project, error)
	ListProjects(ctx context.Context) ([]Project, error)
	UpdateProject(ctx context.Context, idOrName string, req UpdateProjectRequest) (*Project, error)
	DeleteProject(ctx context.Context, idOrName string) error

	CreateUser(ctx context.Context, req CreateUserRequest) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
}

// ScopeRequest selects the project a token should be scoped to, by id or
// by name. Name resolution takes the first exact match; ordering among
// duplicate names is undefined.
type ScopeRequest struct {
	ProjectID   string
	ProjectName string
}

// LoginRequest carries the password authentication input. DomainRef is a
// domain id, or the literal "default" which resolves the domain named
// "Default" case-insensitively.
type LoginRequest struct {
	Username  string
	Password  string
	DomainRef string
	Scope     *ScopeRequest
}

// LoginResult is the outcome of a successful authentication.
type LoginResult struct {
	Token    *Token
	RawToken string
	User     *User
	Domain   *Domain
	Project  *Project
}

// Introspection is the outcome of validating a bearer token.
type Introspection struct {
	Claims  token.Claims
	User    *User
	Project *Project
}

type CreateDomainRequest struct {
	Name        string
	Description string
	Enabled     *bool
}

type CreateProjectRequest struct {
	Name        string
	Description string
	Enabled     *bool
	DomainID    string
	ParentID    *string
}

// UpdateProjectRequest applies only the fields that are set.
type UpdateProjectRequest struct {
	Name        *string
	Description *string
	Enabled     *bool
}

type CreateUserRequest struct {
	Name             string
	Password         string
	Email            string
	Enabled          *bool
	DomainID         string
	DefaultProjectID *string
}

// TokenTTL is the fixed lifetime of issued tokens.
const TokenTTL = 24 * time.Hour
