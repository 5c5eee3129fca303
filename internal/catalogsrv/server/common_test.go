package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/metacatalog/internal/catalogsrv/auth"
	"github.com/tansive/metacatalog/internal/catalogsrv/catalog"
	"github.com/tansive/metacatalog/internal/catalogsrv/config"
	"github.com/tansive/metacatalog/internal/catalogsrv/entitystore"
	"github.com/tansive/metacatalog/internal/catalogsrv/fileset/filesystem"
	"github.com/tansive/metacatalog/internal/catalogsrv/metalake"
	commonmiddleware "github.com/tansive/metacatalog/internal/common/middleware"

	_ "github.com/tansive/metacatalog/internal/catalogsrv/fileset"
	_ "github.com/tansive/metacatalog/internal/catalogsrv/jdbc/duckdb"
)

type testServer struct {
	t *testing.T
	s *CatalogServer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := entitystore.OpenBadger("")
	require.NoError(t, err)
	mgr := metalake.NewManager(catalog.Environment{Store: store})
	t.Cleanup(func() {
		mgr.Close()
		store.Close()
		filesystem.ResetMemVolume("srv")
	})
	verifier, err := auth.NewVerifier(config.AuthConfig{Mode: auth.ModeJWT, HMACSecret: testSecret})
	require.NoError(t, err)
	s, err := CreateNewServer(mgr, verifier)
	require.NoError(t, err, "create new server")
	s.MountHandlers()
	return &testServer{t: t, s: s}
}

const testSecret = "server-test-secret"

// tokenFor signs a bearer token for user with secret.
func tokenFor(t *testing.T, secret, user string) string {
	t.Helper()
	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

// do sends body as JSON, authenticated as user when user is not empty.
func (ts *testServer) do(method, path, user string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(ts.t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+tokenFor(ts.t, testSecret, user))
	}
	rr := httptest.NewRecorder()
	ts.s.Router.ServeHTTP(rr, req)
	return rr
}

func checkHeader(t *testing.T, h http.Header) {
	expected := "application/json"
	got := h.Get("Content-Type")
	assert.Equal(t, expected, got, "Content-Type expected %s, got %s", expected, got)
	assert.NotEmpty(t, h.Get(commonmiddleware.RequestIDHeader), "No Request Id")
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), out), rr.Body.String())
}

type errorBody struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

func requireError(t *testing.T, rr *httptest.ResponseRecorder, status int, kind string) {
	t.Helper()
	require.Equal(t, status, rr.Code, rr.Body.String())
	var e errorBody
	decode(t, rr, &e)
	assert.Equal(t, kind, e.Kind)
}

func newAuthRequest(method, path, authorization string) *http.Request {
	r := httptest.NewRequest(method, path, nil)
	r.Header.Set("Authorization", authorization)
	return r
}

func newRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}
