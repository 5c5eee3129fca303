package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/metacatalog/pkg/api"
)

func TestGetVersion(t *testing.T) {
	ts := newTestServer(t)
	response := ts.do(http.MethodGet, "/version", "", nil)

	require.Equal(t, http.StatusOK, response.Code)
	checkHeader(t, response.Result().Header)

	var rsp api.GetVersionRsp
	decode(t, response, &rsp)
	assert.Equal(t, api.ServerVersion, rsp.ServerVersion)
	assert.Equal(t, api.ApiVersion_1_0, rsp.ApiVersion)
	assert.Contains(t, rsp.Providers, "hadoop")
	assert.Contains(t, rsp.Providers, "jdbc-duckdb")
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(http.MethodGet, "/metalakes", "", nil)
	response := ts.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, response.Code)
	assert.Contains(t, response.Body.String(), "metacatalog_http_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	r := httptest.NewRequest(http.MethodOptions, "/metalakes", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	ts.s.Router.ServeHTTP(rr, r)
	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
}
