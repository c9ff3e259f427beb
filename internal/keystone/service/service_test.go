package service

import (
	"context"
	"testing"

	"github.com/neilfarmer/mopenstack/internal/keystone/domain"
	"github.com/neilfarmer/mopenstack/internal/keystone/repository"
	"github.com/neilfarmer/mopenstack/internal/keystone/token"
	"github.com/neilfarmer/mopenstack/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (domain.Service, domain.Store) {
	t.Helper()

	gdb, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&domain.Domain{},
		&domain.Project{},
		&domain.User{},
		&domain.Role{},
		&domain.Token{},
	))

	store := repository.New(gdb)
	svc := New(zap.NewNop(), store, token.NewIssuer("test-secret"))
	return svc, store
}

func seedDefaultDomain(t *testing.T, svc domain.Service) *domain.Domain {
	t.Helper()
	dom, err := svc.CreateDomain(context.Background(), domain.CreateDomainRequest{
		Name:        "Default",
		Description: "The default domain",
	})
	require.NoError(t, err)
	return dom
}

func TestLoginIntrospectRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	dom := seedDefaultDomain(t, svc)

	project, err := svc.CreateProject(ctx, domain.CreateProjectRequest{Name: "admin", DomainID: dom.ID})
	require.NoError(t, err)

	user, err := svc.CreateUser(ctx, domain.CreateUserRequest{
		Name:     "admin",
		Password: "password",
		DomainID: dom.ID,
	})
	require.NoError(t, err)

	result, err := svc.Login(ctx, domain.LoginRequest{
		Username:  "admin",
		Password:  "password",
		DomainRef: dom.ID,
		Scope:     &domain.ScopeRequest{ProjectName: "admin"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.RawToken)
	require.Equal(t, user.ID, result.User.ID)
	require.NotNil(t, result.Project)
	require.Equal(t, project.ID, result.Project.ID)

	intro, err := svc.Introspect(ctx, result.RawToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, intro.User.ID)
	require.Equal(t, "admin", intro.Claims.Username)
	require.NotNil(t, intro.Project)
	require.Equal(t, project.ID, intro.Project.ID)
}

func TestLoginUnscoped(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	dom := seedDefaultDomain(t, svc)

	_, err := svc.CreateUser(ctx, domain.CreateUserRequest{Name: "bob", Password: "pw", DomainID: dom.ID})
	require.NoError(t, err)

	result, err := svc.Login(ctx, domain.LoginRequest{Username: "bob", Password: "pw", DomainRef: dom.ID})
	require.NoError(t, err)
	require.Nil(t, result.Project)
	require.Nil(t, result.Token.ProjectID)

	intro, err := svc.Introspect(ctx, result.RawToken)
	require.NoError(t, err)
	require.Nil(t, intro.Project)
	require.Empty(t, intro.Claims.ProjectID)
}

func TestLoginDefaultDomainLiteral(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	dom := seedDefaultDomain(t, svc)

	_, err := svc.CreateUser(ctx, domain.CreateUserRequest{Name: "alice", Password: "pw", DomainID: dom.ID})
	require.NoError(t, err)

	// The literal "default" resolves the domain named "Default", whatever
	// its id is.
	result, err := svc.Login(ctx, domain.LoginRequest{Username: "alice", Password: "pw", DomainRef: "default"})
	require.NoError(t, err)
	require.Equal(t, dom.ID, result.Domain.ID)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	dom := seedDefaultDomain(t, svc)

	enabled := false
	_, err := svc.CreateUser(ctx, domain.CreateUserRequest{Name: "carol", Password: "pw", DomainID: dom.ID})
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, domain.CreateUserRequest{Name: "dave", Password: "pw", DomainID: dom.ID, Enabled: &enabled})
	require.NoError(t, err)

	// Unknown user, wrong password, and disabled user all yield the same
	// error so the login endpoint leaks nothing about accounts.
	_, err = svc.Login(ctx, domain.LoginRequest{Username: "nobody", Password: "pw", DomainRef: dom.ID})
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Login(ctx, domain.LoginRequest{Username: "carol", Password: "wrong", DomainRef: dom.ID})
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Login(ctx, domain.LoginRequest{Username: "dave", Password: "pw", DomainRef: dom.ID})
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLoginUnknownScope(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	dom := seedDefaultDomain(t, svc)

	_, err := svc.CreateUser(ctx, domain.CreateUserRequest{Name: "erin", Password: "pw", DomainID: dom.ID})
	require.NoError(t, err)

	_, err = svc.Login(ctx, domain.LoginRequest{
		Username:  "erin",
		Password:  "pw",
		DomainRef: dom.ID,
		Scope:     &domain.ScopeRequest{ProjectName: "no-such-project"},
	})
	require.ErrorIs(t, err, domain.ErrProjectNotFound)
}

func TestRevokeInvalidatesToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	dom := seedDefaultDomain(t, svc)

	_, err := svc.CreateUser(ctx, domain.CreateUserRequest{Name: "frank", Password: "pw", DomainID: dom.ID})
	require.NoError(t, err)

	result, err := svc.Login(ctx, domain.LoginRequest{Username: "frank", Password: "pw", DomainRef: dom.ID})
	require.NoError(t, err)

	_, err = svc.Introspect(ctx, result.RawToken)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, result.RawToken))

	// The signature still verifies but the store record is gone.
	_, err = svc.Introspect(ctx, result.RawToken)
	require.ErrorIs(t, err, domain.ErrTokenInvalid)

	require.ErrorIs(t, svc.Revoke(ctx, result.RawToken), domain.ErrTokenInvalid)
}

func TestIntrospectRejectsForgedToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	dom := seedDefaultDomain(t, svc)

	_, err := svc.CreateUser(ctx, domain.CreateUserRequest{Name: "grace", Password: "pw", DomainID: dom.ID})
	require.NoError(t, err)

	// A token signed with the right key but never persisted is rejected.
	forged, _, err := token.NewIssuer("test-secret").Issue(token.Claims{Subject: "grace"}, domain.TokenTTL)
	require.NoError(t, err)

	_, err = svc.Introspect(ctx, forged)
	require.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestIntrospectDanglingUser(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	dom := seedDefaultDomain(t, svc)

	_, err := svc.CreateUser(ctx, domain.CreateUserRequest{Name: "heidi", Password: "pw", DomainID: dom.ID})
	require.NoError(t, err)

	result, err := svc.Login(ctx, domain.LoginRequest{Username: "heidi", Password: "pw", DomainRef: dom.ID})
	require.NoError(t, err)

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	for _, u := range users {
		require.NoError(t, store.DeleteUser(ctx, u.ID))
	}

	_, err = svc.Introspect(ctx, result.RawToken)
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestResolveProjectByIDThenName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	dom := seedDefaultDomain(t, svc)

	project, err := svc.CreateProject(ctx, domain.CreateProjectRequest{Name: "demo", DomainID: dom.ID})
	require.NoError(t, err)

	byID, err := svc.ResolveProject(ctx, project.ID)
	require.NoError(t, err)
	require.Equal(t, project.ID, byID.ID)

	byName, err := svc.ResolveProject(ctx, "demo")
	require.NoError(t, err)
	require.Equal(t, project.ID, byName.ID)

	_, err = svc.ResolveProject(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrProjectNotFound)
}

func TestUpdateProjectPartial(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	dom := seedDefaultDomain(t, svc)

	project, err := svc.CreateProject(ctx, domain.CreateProjectRequest{
		Name:        "demo",
		Description: "before",
		DomainID:    dom.ID,
	})
	require.NoError(t, err)

	desc := "after"
	updated, err := svc.UpdateProject(ctx, project.ID, domain.UpdateProjectRequest{Description: &desc})
	require.NoError(t, err)
	require.Equal(t, "after", updated.Description)
	require.Equal(t, "demo", updated.Name)
	require.True(t, updated.Enabled)
}

func TestDeleteProjectByName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	dom := seedDefaultDomain(t, svc)

	_, err := svc.CreateProject(ctx, domain.CreateProjectRequest{Name: "ephemeral", DomainID: dom.ID})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProject(ctx, "ephemeral"))

	_, err = svc.ResolveProject(ctx, "ephemeral")
	require.ErrorIs(t, err, domain.ErrProjectNotFound)
	require.ErrorIs(t, svc.DeleteProject(ctx, "ephemeral"), domain.ErrProjectNotFound)
}

func TestCreateProjectUnknownDomain(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedDefaultDomain(t, svc)

	_, err := svc.CreateProject(ctx, domain.CreateProjectRequest{Name: "demo", DomainID: "no-such-domain"})
	require.ErrorIs(t, err, domain.ErrDomainNotFound)
}

func TestCreateUserDefaultsToDefaultDomain(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	dom := seedDefaultDomain(t, svc)

	user, err := svc.CreateUser(ctx, domain.CreateUserRequest{Name: "ivan", Password: "pw"})
	require.NoError(t, err)
	require.Equal(t, dom.ID, user.DomainID)
}
