// Package token issues and verifies the signed bearer tokens used by the
// identity service.
package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalid covers malformed tokens and bad signatures.
	ErrInvalid = errors.New("token is invalid")
	// ErrExpired is returned when the embedded expiry has passed.
	ErrExpired = errors.New("token is expired")
)

// Claims is the identity embedded in an issued token. ProjectID is empty
// for unscoped tokens.
type Claims struct {
	Subject   string
	Username  string
	DomainID  string
	ProjectID string
}

// wireClaims is the internal claims type used for JWT encoding.
type wireClaims struct {
	jwt.RegisteredClaims
	Username  string `json:"username"`
	DomainID  string `json:"domain_id"`
	ProjectID string `json:"project_id,omitempty"`
}

// Issuer signs and verifies HS256 tokens with a fixed per-process key.
// Rotating the key invalidates all outstanding tokens.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		i.now = now
	}
}

// NewIssuer builds an Issuer around the process-wide signing secret.
func NewIssuer(secret string, opts ...Option) *Issuer {
	issuer := &Issuer{
		secret: []byte(secret),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(issuer)
	}
	return issuer
}

// Issue signs claims into a bearer token expiring ttl from now. It returns
// the signed string and the absolute expiry embedded in it.
func (i *Issuer) Issue(claims Claims, ttl time.Duration) (string, time.Time, error) {
	now := i.now().UTC()
	expiresAt := now.Add(ttl)

	wire := wireClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Username:  claims.Username,
		DomainID:  claims.DomainID,
		ProjectID: claims.ProjectID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, wire).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks the signature and embedded expiry of raw and returns the
// decoded claims. It never consults any store; revocation is layered on by
// the identity service.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalid
	}

	var parsed wireClaims
	_, err := jwt.ParseWithClaims(raw, &parsed, func(token *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, ErrInvalid
	}

	if parsed.ExpiresAt == nil {
		return nil, ErrInvalid
	}
	if !parsed.ExpiresAt.Time.UTC().After(i.now().UTC()) {
		return nil, ErrExpired
	}

	return &Claims{
		Subject:   parsed.Subject,
		Username:  parsed.Username,
		DomainID:  parsed.DomainID,
		ProjectID: parsed.ProjectID,
	}, nil
}
