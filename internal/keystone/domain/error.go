package domain

import "errors"

var (
	// ErrInvalidCredentials covers missing users, wrong passwords and
	// disabled users alike so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrDomainNotFound  = errors.New("domain not found")
	ErrProjectNotFound = errors.New("project not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrRoleNotFound    = errors.New("role not found")

	// ErrTokenInvalid covers bad signatures, expired claims and missing
	// store records alike so callers cannot tell which check failed.
	ErrTokenInvalid = errors.New("token invalid")

	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")
)
