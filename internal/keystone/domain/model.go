// Package domain contains core types for the identity service.
package domain

import (
	"time"
)

// Domain is the root namespace partitioning users and projects.
type Domain struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:text;not null;uniqueIndex" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Enabled     bool      `gorm:"not null;default:true" json:"enabled"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Domain) TableName() string { return "domains" }

// Project is a tenant scope owned by exactly one domain.
// Project names are intentionally not unique; only the id is.
type Project struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:text;not null;index" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Enabled     bool      `gorm:"not null;default:true" json:"enabled"`
	DomainID    string    `gorm:"column:domain_id;not null;index" json:"domain_id"`
	ParentID    *string   `gorm:"column:parent_id" json:"parent_id,omitempty"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Project) TableName() string { return "projects" }

// User is an identity within a domain. Uniqueness of (name, domain_id) is
// enforced by lookup semantics, not a constraint, matching the Keystone API.
type User struct {
	ID               string    `gorm:"primaryKey" json:"id"`
	Name             string    `gorm:"type:text;not null;index" json:"name"`
	Email            string    `gorm:"type:text" json:"email,omitempty"`
	PasswordHash     string    `gorm:"column:password_hash;type:text;not null" json:"-"`
	Enabled          bool      `gorm:"not null;default:true" json:"enabled"`
	DomainID         string    `gorm:"column:domain_id;not null;index" json:"domain_id"`
	DefaultProjectID *string   `gorm:"column:default_project_id" json:"default_project_id,omitempty"`
	CreatedAt        time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// Role is static reference data seeded at bootstrap.
type Role struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:text;not null;uniqueIndex" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Role) TableName() string { return "roles" }

// Token is the server-side record of an issued bearer token. TokenDigest
// holds a sha256 digest of the signed string; the bearer value itself is
// never persisted. Deleting the row revokes the token regardless of its
// cryptographic validity.
type Token struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	TokenDigest string    `gorm:"column:token_hash;type:text;not null;uniqueIndex" json:"-"`
	UserID      string    `gorm:"column:user_id;not null;index" json:"user_id"`
	ProjectID   *string   `gorm:"column:project_id" json:"project_id,omitempty"`
	ExpiresAt   time.Time `gorm:"column:expires_at;not null;index" json:"expires_at"`
	CreatedAt   time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName sets the database table name.
func (Token) TableName() string { return "tokens" }
