package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/neilfarmer/mopenstack/internal/config"
	keystonerepo "github.com/neilfarmer/mopenstack/internal/keystone/repository"
	keystoneservice "github.com/neilfarmer/mopenstack/internal/keystone/service"
	"github.com/neilfarmer/mopenstack/internal/keystone/token"
	novarepo "github.com/neilfarmer/mopenstack/internal/nova/repository"
	novaservice "github.com/neilfarmer/mopenstack/internal/nova/service"
	"github.com/neilfarmer/mopenstack/internal/seed"
	"github.com/neilfarmer/mopenstack/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		AppName:       "mopenstack",
		AppVersion:    "0.1.0",
		SecretKey:     "test-secret",
		AdminUsername: "admin",
		AdminPassword: "password",
		AdminProject:  "admin",
	}

	gdb, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, seed.Migrate(gdb))
	require.NoError(t, seed.Ensure(context.Background(), gdb, cfg, zap.NewNop()))

	identitySvc := keystoneservice.New(zap.NewNop(), keystonerepo.New(gdb), token.NewIssuer(cfg.SecretKey))
	computeSvc := novaservice.New(zap.NewNop(), novarepo.New(gdb))

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	return NewServer(ServerParams{
		Gin:         engine,
		Cfg:         cfg,
		Log:         zap.NewNop(),
		IdentitySvc: identitySvc,
		ComputeSvc:  computeSvc,
	})
}

func doJSON(s *Server, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func authBody(username, password, projectName string) map[string]any {
	identity := map[string]any{
		"methods": []string{"password"},
		"password": map[string]any{
			"user": map[string]any{
				"name":     username,
				"password": password,
				"domain":   map[string]any{"id": "default"},
			},
		},
	}
	auth := map[string]any{"identity": identity}
	if projectName != "" {
		auth["scope"] = map[string]any{
			"project": map[string]any{"name": projectName},
		}
	}
	return map[string]any{"auth": auth}
}

func issueToken(t *testing.T, s *Server, username, password, projectName string) string {
	t.Helper()
	w := doJSON(s, http.MethodPost, "/v3/auth/tokens", authBody(username, password, projectName), nil)
	require.Equal(t, http.StatusOK, w.Code)
	tok := w.Header().Get("X-Subject-Token")
	require.NotEmpty(t, tok)
	return tok
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestCreateTokenScoped(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, http.MethodPost, "/v3/auth/tokens", authBody("admin", "password", "admin"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Header().Get("X-Subject-Token"))

	body := decodeBody(t, w)
	tok := body["token"].(map[string]any)
	require.Equal(t, []any{"password"}, tok["methods"].([]any))

	user := tok["user"].(map[string]any)
	require.Equal(t, "admin", user["name"])
	require.Equal(t, "Default", user["domain"].(map[string]any)["name"])

	project := tok["project"].(map[string]any)
	require.Equal(t, "admin", project["name"])

	catalog := tok["catalog"].([]any)
	require.Len(t, catalog, 4)
}

func TestCreateTokenCatalogFollowsHost(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(authBody("admin", "password", "")))
	req := httptest.NewRequest(http.MethodPost, "/v3/auth/tokens", &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Host = "cloud.example.test:9999"

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	catalog := body["token"].(map[string]any)["catalog"].([]any)
	first := catalog[0].(map[string]any)
	endpoints := first["endpoints"].([]any)
	url := endpoints[0].(map[string]any)["url"].(string)
	require.Equal(t, "http://cloud.example.test:9999/v3", url)
}

func TestCreateTokenFailures(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, http.MethodPost, "/v3/auth/tokens", authBody("admin", "wrong", ""), nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	body := decodeBody(t, w)
	require.Equal(t, "unauthorized", body["error"].(map[string]any)["type"])

	w = doJSON(s, http.MethodPost, "/v3/auth/tokens", authBody("admin", "password", "no-such-project"), nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	// No password block: unsupported method.
	w = doJSON(s, http.MethodPost, "/v3/auth/tokens", map[string]any{
		"auth": map[string]any{
			"identity": map[string]any{"methods": []string{"token"}},
		},
	}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidateToken(t *testing.T) {
	s := newTestServer(t)
	tok := issueToken(t, s, "admin", "password", "admin")

	w := doJSON(s, http.MethodGet, "/v3/auth/tokens", nil, map[string]string{
		"X-Auth-Token":    tok,
		"X-Subject-Token": tok,
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	payload := body["token"].(map[string]any)
	require.Equal(t, "admin", payload["user"].(map[string]any)["name"])
	require.Equal(t, "admin", payload["project"].(map[string]any)["name"])

	// Unknown subject token validates as 404, not 401.
	w = doJSON(s, http.MethodGet, "/v3/auth/tokens", nil, map[string]string{
		"X-Auth-Token":    tok,
		"X-Subject-Token": "garbage",
	})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(s, http.MethodGet, "/v3/auth/tokens", nil, map[string]string{
		"X-Subject-Token": tok,
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRevokeToken(t *testing.T) {
	s := newTestServer(t)
	tok := issueToken(t, s, "admin", "password", "")

	w := doJSON(s, http.MethodDelete, "/v3/auth/tokens", nil, map[string]string{
		"X-Auth-Token":    tok,
		"X-Subject-Token": tok,
	})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(s, http.MethodGet, "/v3/auth/tokens", nil, map[string]string{
		"X-Auth-Token":    tok,
		"X-Subject-Token": tok,
	})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestProjectCRUD(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, http.MethodPost, "/v3/projects", map[string]any{
		"project": map[string]any{"name": "demo", "description": "demo project"},
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeBody(t, w)["project"].(map[string]any)
	projectID := created["id"].(string)

	w = doJSON(s, http.MethodGet, "/v3/projects/demo", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, projectID, decodeBody(t, w)["project"].(map[string]any)["id"])

	w = doJSON(s, http.MethodPatch, "/v3/projects/demo", map[string]any{
		"project": map[string]any{"description": "updated"},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "updated", decodeBody(t, w)["project"].(map[string]any)["description"])

	w = doJSON(s, http.MethodDelete, "/v3/projects/"+projectID, nil, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(s, http.MethodGet, "/v3/projects/demo", nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestNovaRequiresToken(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, http.MethodGet, "/v2.1/flavors", nil, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(s, http.MethodGet, "/v2.1/flavors", nil, map[string]string{"X-Auth-Token": "bogus"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func flavorBody(name string) map[string]any {
	return map[string]any{
		"flavor": map[string]any{"name": name, "vcpus": 2, "ram": 4096, "disk": 40},
	}
}

func serverBody(name, flavorRef, imageRef string) map[string]any {
	srv := map[string]any{"name": name, "flavorRef": flavorRef}
	if imageRef != "" {
		srv["imageRef"] = imageRef
	}
	return map[string]any{"server": srv}
}

func TestFlavorCRUD(t *testing.T) {
	s := newTestServer(t)
	tok := issueToken(t, s, "admin", "password", "admin")
	auth := map[string]string{"X-Auth-Token": tok}

	w := doJSON(s, http.MethodPost, "/v2.1/flavors", flavorBody("m1.small"), auth)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(s, http.MethodPost, "/v2.1/flavors", flavorBody("m1.small"), auth)
	require.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(s, http.MethodGet, "/v2.1/flavors", nil, auth)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decodeBody(t, w)["flavors"].([]any), 1)

	w = doJSON(s, http.MethodGet, "/v2.1/flavors/detail", nil, auth)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decodeBody(t, w)["flavors"].([]any)[0].(map[string]any)
	require.EqualValues(t, 4096, detail["ram"])

	w = doJSON(s, http.MethodGet, "/v2.1/flavors/m1.small", nil, auth)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(s, http.MethodDelete, "/v2.1/flavors/m1.small", nil, auth)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(s, http.MethodGet, "/v2.1/flavors/m1.small", nil, auth)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestServerLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	tok := issueToken(t, s, "admin", "password", "admin")
	auth := map[string]string{"X-Auth-Token": tok}

	w := doJSON(s, http.MethodPost, "/v2.1/flavors", flavorBody("m1.small"), auth)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(s, http.MethodPost, "/v2.1/servers", serverBody("web-1", "m1.small", "some-image"), auth)
	require.Equal(t, http.StatusAccepted, w.Code)
	created := decodeBody(t, w)["server"].(map[string]any)
	serverID := created["id"].(string)
	require.Equal(t, "ACTIVE", created["status"])

	// Deleting the flavor now conflicts with the running server.
	w = doJSON(s, http.MethodDelete, "/v2.1/flavors/m1.small", nil, auth)
	require.Equal(t, http.StatusConflict, w.Code)

	// Missing image ref is a 400.
	w = doJSON(s, http.MethodPost, "/v2.1/servers", serverBody("web-2", "m1.small", ""), auth)
	require.Equal(t, http.StatusBadRequest, w.Code)

	// reboot on ACTIVE is accepted, os-start is not.
	w = doJSON(s, http.MethodPost, "/v2.1/servers/"+serverID+"/action",
		map[string]any{"reboot": map[string]any{"type": "SOFT"}}, auth)
	require.Equal(t, http.StatusAccepted, w.Code)

	w = doJSON(s, http.MethodPost, "/v2.1/servers/"+serverID+"/action",
		map[string]any{"os-start": nil}, auth)
	require.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(s, http.MethodPost, "/v2.1/servers/"+serverID+"/action",
		map[string]any{"os-stop": nil}, auth)
	require.Equal(t, http.StatusAccepted, w.Code)

	w = doJSON(s, http.MethodGet, "/v2.1/servers/"+serverID, nil, auth)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "SHUTOFF", decodeBody(t, w)["server"].(map[string]any)["status"])

	w = doJSON(s, http.MethodPost, "/v2.1/servers/"+serverID+"/action",
		map[string]any{"os-start": nil}, auth)
	require.Equal(t, http.StatusAccepted, w.Code)

	// Unknown action names are rejected.
	w = doJSON(s, http.MethodPost, "/v2.1/servers/"+serverID+"/action",
		map[string]any{"resize": map[string]any{}}, auth)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(s, http.MethodDelete, "/v2.1/servers/"+serverID, nil, auth)
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestServerCrossProjectIsolation(t *testing.T) {
	s := newTestServer(t)
	adminTok := issueToken(t, s, "admin", "password", "admin")
	adminAuth := map[string]string{"X-Auth-Token": adminTok}

	w := doJSON(s, http.MethodPost, "/v2.1/flavors", flavorBody("m1.small"), adminAuth)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(s, http.MethodPost, "/v2.1/servers", serverBody("web-1", "m1.small", "img"), adminAuth)
	require.Equal(t, http.StatusAccepted, w.Code)
	serverID := decodeBody(t, w)["server"].(map[string]any)["id"].(string)

	// A second user scoped to another project cannot see it.
	w = doJSON(s, http.MethodPost, "/v3/projects", map[string]any{
		"project": map[string]any{"name": "other"},
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(s, http.MethodPost, "/v3/users", map[string]any{
		"user": map[string]any{"name": "intruder", "password": "pw"},
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	otherTok := issueToken(t, s, "intruder", "pw", "other")
	otherAuth := map[string]string{"X-Auth-Token": otherTok}

	w = doJSON(s, http.MethodGet, "/v2.1/servers/"+serverID, nil, otherAuth)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(s, http.MethodGet, "/v2.1/servers", nil, otherAuth)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, decodeBody(t, w)["servers"])
}

func TestKeyPairsOverHTTP(t *testing.T) {
	s := newTestServer(t)
	tok := issueToken(t, s, "admin", "password", "admin")
	auth := map[string]string{"X-Auth-Token": tok}

	w := doJSON(s, http.MethodPost, "/v2.1/os-keypairs", map[string]any{
		"keypair": map[string]any{"name": "deploy", "public_key": "ssh-rsa AAAAB3 test@host"},
	}, auth)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeBody(t, w)["keypair"].(map[string]any)
	require.NotEmpty(t, created["fingerprint"])

	w = doJSON(s, http.MethodPost, "/v2.1/os-keypairs", map[string]any{
		"keypair": map[string]any{"name": "deploy"},
	}, auth)
	require.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(s, http.MethodGet, "/v2.1/os-keypairs", nil, auth)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decodeBody(t, w)["keypairs"].([]any), 1)

	w = doJSON(s, http.MethodDelete, "/v2.1/os-keypairs/deploy", nil, auth)
	require.Equal(t, http.StatusAccepted, w.Code)

	w = doJSON(s, http.MethodGet, "/v2.1/os-keypairs/deploy", nil, auth)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGlanceEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, http.MethodGet, "/v2/images", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decodeBody(t, w)["images"].([]any), 3)

	w = doJSON(s, http.MethodGet, "/v2/images?name="+url.QueryEscape("Ubuntu 22.04 LTS"), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decodeBody(t, w)["images"].([]any), 1)

	w = doJSON(s, http.MethodGet, "/v2/images/ubuntu-22.04", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	img := decodeBody(t, w)
	require.Equal(t, "Ubuntu 22.04 LTS", img["name"])
	require.Equal(t, "qcow2", img["disk_format"])

	w = doJSON(s, http.MethodGet, "/v2/images/nonexistent-image", nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestServiceIndexAndVersionDocs(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, http.MethodGet, "/", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	services := decodeBody(t, w)["services"].(map[string]any)
	require.Contains(t, services["keystone"], "/v3")
	require.Contains(t, services["nova"], "/v2.1")

	w = doJSON(s, http.MethodGet, "/v3/", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "v3.14", decodeBody(t, w)["version"].(map[string]any)["id"])
}

