package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neilfarmer/mopenstack/internal/keystone/domain"
	"github.com/neilfarmer/mopenstack/internal/keystone/password"
	"github.com/neilfarmer/mopenstack/internal/keystone/token"
	"go.uber.org/zap"
)

// DefaultDomainRef is the literal domain reference clients may send in
// place of a domain id.
const DefaultDomainRef = "default"

type Service struct {
	log    *zap.Logger
	store  domain.Store
	issuer *token.Issuer
	now    func() time.Time
}

func New(log *zap.Logger, store domain.Store, issuer *token.Issuer) domain.Service {
	return &Service{
		log:    log.Named("keystone.service"),
		store:  store,
		issuer: issuer,
		now:    time.Now,
	}
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	dom, err := s.resolveDomain(ctx, req.DomainRef)
	if err != nil {
		return nil, err
	}

	user, err := s.store.UserByName(ctx, req.Username, dom.ID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Same error as a wrong password so callers cannot probe
			// for account existence.
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !password.Verify(req.Password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.Enabled {
		return nil, domain.ErrInvalidCredentials
	}

	var project *domain.Project
	if req.Scope != nil {
		project, err = s.resolveScope(ctx, req.Scope)
		if err != nil {
			return nil, err
		}
	}

	claims := token.Claims{
		Subject:  user.ID,
		Username: user.Name,
		DomainID: user.DomainID,
	}
	var projectID *string
	if project != nil {
		claims.ProjectID = project.ID
		projectID = &project.ID
	}

	raw, expiresAt, err := s.issuer.Issue(claims, domain.TokenTTL)
	if err != nil {
		return nil, err
	}

	record := &domain.Token{
		ID:          uuid.NewString(),
		TokenDigest: digest(raw),
		UserID:      user.ID,
		ProjectID:   projectID,
		ExpiresAt:   expiresAt,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.CreateToken(ctx, record); err != nil {
		return nil, err
	}

	s.log.Debug("token issued",
		zap.String("user_id", user.ID),
		zap.Time("expires_at", expiresAt),
	)

	return &domain.LoginResult{
		Token:    record,
		RawToken: raw,
		User:     user,
		Domain:   dom,
		Project:  project,
	}, nil
}

func (s *Service) Introspect(ctx context.Context, rawToken string) (*domain.Introspection, error) {
	claims, err := s.issuer.Verify(rawToken)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}

	// The store record is the revocation source of truth: a token forged
	// without store access, or one whose row was deleted, fails here even
	// though the signature verifies.
	record, err := s.store.TokenByDigest(ctx, digest(rawToken), s.now().UTC())
	if err != nil {
		return nil, err
	}

	user, err := s.store.UserByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.log.Warn("token references missing user",
				zap.String("token_id", record.ID),
				zap.String("user_id", record.UserID),
			)
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	var project *domain.Project
	if claims.ProjectID != "" {
		project, err = s.store.ProjectByID(ctx, claims.ProjectID)
		if err != nil && !errors.Is(err, domain.ErrProjectNotFound) {
			return nil, err
		}
	}

	return &domain.Introspection{
		Claims:  *claims,
		User:    user,
		Project: project,
	}, nil
}

// Revoke deletes the store record for rawToken. Subsequent introspection
// fails even though the signature still verifies.
func (s *Service) Revoke(ctx context.Context, rawToken string) error {
	if _, err := s.issuer.Verify(rawToken); err != nil {
		return domain.ErrTokenInvalid
	}
	record, err := s.store.TokenByDigest(ctx, digest(rawToken), s.now().UTC())
	if err != nil {
		return err
	}
	return s.store.DeleteToken(ctx, record.ID)
}

func (s *Service) CreateDomain(ctx context.Context, req domain.CreateDomainRequest) (*domain.Domain, error) {
	now := s.now().UTC()
	d := &domain.Domain{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Enabled:     enabledOrDefault(req.Enabled),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateDomain(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) GetDomain(ctx context.Context, id string) (*domain.Domain, error) {
	return s.store.DomainByID(ctx, id)
}

func (s *Service) ListDomains(ctx context.Context) ([]domain.Domain, error) {
	return s.store.ListDomains(ctx)
}

func (s *Service) CreateProject(ctx context.Context, req domain.CreateProjectRequest) (*domain.Project, error) {
	domainID := req.DomainID
	if strings.TrimSpace(domainID) == "" {
		dom, err := s.defaultDomain(ctx)
		if err != nil {
			return nil, err
		}
		domainID = dom.ID
	} else if _, err := s.store.DomainByID(ctx, domainID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := &domain.Project{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Enabled:     enabledOrDefault(req.Enabled),
		DomainID:    domainID,
		ParentID:    req.ParentID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ResolveProject looks a project up by id, then by exact name. With
// duplicate names the first match wins; ordering is undefined.
func (s *Service) ResolveProject(ctx context.Context, idOrName string) (*domain.Project, error) {
	project, err := s.store.ProjectByID(ctx, idOrName)
	if err == nil {
		return project, nil
	}
	if !errors.Is(err, domain.ErrProjectNotFound) {
		return nil, err
	}

	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		if projects[i].Name == idOrName {
			return &projects[i], nil
		}
	}
	return nil, domain.ErrProjectNotFound
}

func (s *Service) ListProjects(ctx context.Context) ([]domain.Project, error) {
	return s.store.ListProjects(ctx)
}

func (s *Service) UpdateProject(ctx context.Context, idOrName string, req domain.UpdateProjectRequest) (*domain.Project, error) {
	project, err := s.ResolveProject(ctx, idOrName)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{"updated_at": s.now().UTC()}
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Enabled != nil {
		fields["enabled"] = *req.Enabled
	}

	if err := s.store.UpdateProject(ctx, project.ID, fields); err != nil {
		return nil, err
	}
	return s.store.ProjectByID(ctx, project.ID)
}

func (s *Service) DeleteProject(ctx context.Context, idOrName string) error {
	project, err := s.ResolveProject(ctx, idOrName)
	if err != nil {
		return err
	}
	return s.store.DeleteProject(ctx, project.ID)
}

func (s *Service) CreateUser(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	domainID := req.DomainID
	if strings.TrimSpace(domainID) == "" {
		dom, err := s.defaultDomain(ctx)
		if err != nil {
			return nil, err
		}
		domainID = dom.ID
	} else if _, err := s.store.DomainByID(ctx, domainID); err != nil {
		return nil, err
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	u := &domain.User{
		ID:               uuid.NewString(),
		Name:             req.Name,
		Email:            req.Email,
		PasswordHash:     hashed,
		Enabled:          enabledOrDefault(req.Enabled),
		DomainID:         domainID,
		DefaultProjectID: req.DefaultProjectID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.store.UserByID(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.store.ListUsers(ctx)
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	return s.store.DeleteUser(ctx, id)
}

func (s *Service) resolveDomain(ctx context.Context, ref string) (*domain.Domain, error) {
	if strings.EqualFold(strings.TrimSpace(ref), DefaultDomainRef) {
		return s.defaultDomain(ctx)
	}
	return s.store.DomainByID(ctx, ref)
}

func (s *Service) defaultDomain(ctx context.Context) (*domain.Domain, error) {
	domains, err := s.store.ListDomains(ctx)
	if err != nil {
		return nil, err
	}
	for i := range domains {
		if strings.EqualFold(domains[i].Name, DefaultDomainRef) {
			return &domains[i], nil
		}
	}
	return nil, domain.ErrDomainNotFound
}

func (s *Service) resolveScope(ctx context.Context, scope *domain.ScopeRequest) (*domain.Project, error) {
	if scope.ProjectID != "" {
		return s.store.ProjectByID(ctx, scope.ProjectID)
	}
	if scope.ProjectName != "" {
		projects, err := s.store.ListProjects(ctx)
		if err != nil {
			return nil, err
		}
		for i := range projects {
			if projects[i].Name == scope.ProjectName {
				return &projects[i], nil
			}
		}
	}
	return nil, domain.ErrProjectNotFound
}

func enabledOrDefault(enabled *bool) bool {
	if enabled == nil {
		return true
	}
	return *enabled
}

func digest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
