package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/metacatalog/internal/catalogsrv/apis"
	"github.com/tansive/metacatalog/internal/catalogsrv/catcommon"
	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/catalogsrv/meta"
)

func identNames(rsp apis.ListRsp) []string {
	var names []string
	for _, id := range rsp.Identifiers {
		names = append(names, id.Name())
	}
	return names
}

func TestMetalakeCrud(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodPost, "/metalakes", "alice", apis.CreateMetalakeReq{Name: "lake"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	checkHeader(t, rr.Result().Header)
	assert.Equal(t, "/metalakes/lake", rr.Header().Get("Location"))
	var lake meta.Metalake
	decode(t, rr, &lake)
	assert.Equal(t, "lake", lake.Name)
	require.NotNil(t, lake.Audit)
	assert.Equal(t, "alice", lake.Audit.Creator)

	rr = ts.do(http.MethodPost, "/metalakes", "alice", apis.CreateMetalakeReq{Name: "lake"})
	requireError(t, rr, http.StatusConflict, caterrors.KindAlreadyExists)

	rr = ts.do(http.MethodPost, "/metalakes", "", map[string]string{"comment": "no name"})
	requireError(t, rr, http.StatusBadRequest, caterrors.KindInvalidArgument)

	comment := "updated"
	rr = ts.do(http.MethodPut, "/metalakes/lake", "bob", apis.UpdateReq{Comment: &comment, Properties: map[string]string{"k": "v"}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	decode(t, rr, &lake)
	require.NotNil(t, lake.Comment)
	assert.Equal(t, "updated", *lake.Comment)
	assert.Equal(t, "bob", lake.Audit.LastModifier)

	rr = ts.do(http.MethodGet, "/metalakes", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var lakes struct {
		Metalakes []meta.Metalake `json:"metalakes"`
	}
	decode(t, rr, &lakes)
	require.Len(t, lakes.Metalakes, 1)
	assert.Equal(t, map[string]string{"k": "v"}, lakes.Metalakes[0].Properties)

	rr = ts.do(http.MethodDelete, "/metalakes/lake", "", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = ts.do(http.MethodGet, "/metalakes/lake", "", nil)
	requireError(t, rr, http.StatusNotFound, caterrors.KindNotFound)
	rr = ts.do(http.MethodDelete, "/metalakes/lake", "", nil)
	requireError(t, rr, http.StatusNotFound, caterrors.KindNotFound)
}

func TestFilesetCatalogOverREST(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusCreated, ts.do(http.MethodPost, "/metalakes", "", apis.CreateMetalakeReq{Name: "lake"}).Code)

	rr := ts.do(http.MethodPost, "/metalakes/lake/catalogs", "", apis.CreateCatalogReq{
		Name:     "files",
		Type:     "fileset",
		Provider: "hadoop",
		Properties: map[string]string{
			"location":             "mem://srv/warehouse",
			"s3-secret-access-key": "hunter2",
		},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var cat meta.Catalog
	decode(t, rr, &cat)
	assert.Equal(t, "******", cat.Properties["s3-secret-access-key"])
	assert.Equal(t, "mem://srv/warehouse", cat.Properties["location"])

	rr = ts.do(http.MethodPost, "/metalakes/lake/catalogs", "", apis.CreateCatalogReq{Name: "bad", Type: "fileset", Provider: "nope"})
	requireError(t, rr, http.StatusBadRequest, caterrors.KindInvalidArgument)
	rr = ts.do(http.MethodPost, "/metalakes/lake/catalogs", "", apis.CreateCatalogReq{Name: "bad", Type: "graph", Provider: "hadoop"})
	requireError(t, rr, http.StatusBadRequest, caterrors.KindInvalidArgument)

	// masked values sent back keep the stored secret
	rr = ts.do(http.MethodPut, "/metalakes/lake/catalogs/files", "", apis.UpdateReq{Properties: cat.Properties})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = ts.do(http.MethodGet, "/metalakes/lake/catalogs", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list apis.ListRsp
	decode(t, rr, &list)
	assert.Equal(t, []string{"files"}, identNames(list))

	base := "/metalakes/lake/catalogs/files/schemas"
	rr = ts.do(http.MethodPost, base, "alice", apis.CreateSchemaReq{Name: "raw"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, base+"/raw", rr.Header().Get("Location"))

	rr = ts.do(http.MethodPost, base+"/raw/filesets", "bob", apis.CreateFilesetReq{Name: "events"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var fs meta.Fileset
	decode(t, rr, &fs)
	assert.Equal(t, "mem://srv/warehouse/raw/events", fs.StorageLocation)
	assert.EqualValues(t, "managed", fs.Type)
	assert.NotNil(t, fs.Properties)
	assert.Equal(t, "bob", fs.Audit.Creator)

	rr = ts.do(http.MethodPost, base+"/raw/filesets", "bob", apis.CreateFilesetReq{Name: "events"})
	requireError(t, rr, http.StatusConflict, caterrors.KindAlreadyExists)
	rr = ts.do(http.MethodPost, base+"/raw/filesets", "bob", apis.CreateFilesetReq{Name: "ext", Type: "external"})
	requireError(t, rr, http.StatusBadRequest, caterrors.KindInvalidArgument)
	rr = ts.do(http.MethodPost, base+"/raw/filesets", "bob", apis.CreateFilesetReq{Name: "x", Type: "weird"})
	requireError(t, rr, http.StatusBadRequest, caterrors.KindInvalidArgument)

	rr = ts.do(http.MethodGet, base+"/raw/filesets/events", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, http.StatusOK, ts.do(http.MethodHead, base+"/raw/filesets/events", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodHead, base+"/raw/filesets/missing", "", nil).Code)

	rr = ts.do(http.MethodGet, base+"/raw/filesets", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	decode(t, rr, &list)
	assert.Equal(t, []string{"events"}, identNames(list))

	rr = ts.do(http.MethodGet, base+"/raw/tables", "", nil)
	requireError(t, rr, http.StatusNotImplemented, caterrors.KindUnsupportedOperation)

	rr = ts.do(http.MethodDelete, base+"/raw", "", nil)
	requireError(t, rr, http.StatusConflict, caterrors.KindInvalidArgument)
	rr = ts.do(http.MethodDelete, base+"/raw?cascade=maybe", "", nil)
	requireError(t, rr, http.StatusBadRequest, caterrors.KindInvalidArgument)

	rr = ts.do(http.MethodDelete, "/metalakes/lake", "", nil)
	requireError(t, rr, http.StatusConflict, caterrors.KindInvalidArgument)

	rr = ts.do(http.MethodDelete, base+"/raw?cascade=true", "", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = ts.do(http.MethodGet, base+"/raw", "", nil)
	requireError(t, rr, http.StatusNotFound, caterrors.KindNotFound)

	require.Equal(t, http.StatusOK, ts.do(http.MethodDelete, "/metalakes/lake/catalogs/files", "", nil).Code)
	rr = ts.do(http.MethodGet, base, "", nil)
	requireError(t, rr, http.StatusNotFound, caterrors.KindNotFound)
	require.Equal(t, http.StatusOK, ts.do(http.MethodDelete, "/metalakes/lake", "", nil).Code)
}

func TestRelationalCatalogOverREST(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusCreated, ts.do(http.MethodPost, "/metalakes", "", apis.CreateMetalakeReq{Name: "lake"}).Code)
	rr := ts.do(http.MethodPost, "/metalakes/lake/catalogs", "", apis.CreateCatalogReq{
		Name:     "duck",
		Type:     "relational",
		Provider: "jdbc-duckdb",
		Properties: map[string]string{
			"jdbc-url":      "jdbc:duckdb:",
			"jdbc-database": "memory",
		},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	base := "/metalakes/lake/catalogs/duck/schemas"
	rr = ts.do(http.MethodPost, base, "", apis.CreateSchemaReq{Name: "sales"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	rr = ts.do(http.MethodGet, base, "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list apis.ListRsp
	decode(t, rr, &list)
	assert.Contains(t, identNames(list), "sales")
	assert.NotContains(t, identNames(list), "information_schema")

	body := map[string]any{
		"name": "orders",
		"columns": []map[string]any{
			{"name": "id", "type": "long", "nullable": false},
			{"name": "note", "type": "string", "nullable": true},
		},
	}
	rr = ts.do(http.MethodPost, base+"/sales/tables", "", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = ts.do(http.MethodPost, base+"/sales/tables", "", map[string]any{"name": "empty", "columns": []any{}})
	requireError(t, rr, http.StatusBadRequest, caterrors.KindInvalidArgument)
	rr = ts.do(http.MethodPost, base+"/sales/tables", "", map[string]any{
		"name":    "bad",
		"columns": []map[string]any{{"name": "x", "type": "no-such-type"}},
	})
	require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())

	rr = ts.do(http.MethodGet, base+"/sales/tables/orders", "", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var table meta.Table
	decode(t, rr, &table)
	require.Len(t, table.Columns, 2)
	assert.Equal(t, "id", table.Columns[0].Name)
	assert.Equal(t, "long", table.Columns[0].Type.String())
	assert.False(t, table.Columns[0].Nullable)

	rr = ts.do(http.MethodGet, base+"/sales/tables", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	decode(t, rr, &list)
	assert.Equal(t, []string{"orders"}, identNames(list))

	rr = ts.do(http.MethodGet, base+"/sales/filesets", "", nil)
	requireError(t, rr, http.StatusNotImplemented, caterrors.KindUnsupportedOperation)

	require.Equal(t, http.StatusOK, ts.do(http.MethodDelete, base+"/sales/tables/orders", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodHead, base+"/sales/tables/orders", "", nil).Code)
	rr = ts.do(http.MethodDelete, base+"/sales/tables/orders", "", nil)
	requireError(t, rr, http.StatusNotFound, caterrors.KindNotFound)
}

func TestCallerAuthentication(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(http.MethodGet, "/metalakes", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rejected := []string{
		"Bearer token",
		"Bearer " + tokenFor(t, "not-the-server-secret", "alice"),
		"Basic YWxpY2U6",
	}
	for _, h := range rejected {
		rr = newRecorder()
		ts.s.Router.ServeHTTP(rr, newAuthRequest(http.MethodPost, "/metalakes", h))
		requireError(t, rr, http.StatusUnauthorized, caterrors.KindSecurityFailure)
	}

	rr = ts.do(http.MethodGet, "/metalakes/missing/catalogs/c/schemas", "alice", nil)
	requireError(t, rr, http.StatusNotFound, caterrors.KindNotFound)

	rr = ts.do(http.MethodPost, "/metalakes", "", apis.CreateMetalakeReq{Name: "anon"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var lake meta.Metalake
	decode(t, rr, &lake)
	require.NotNil(t, lake.Audit)
	assert.Equal(t, catcommon.AnonymousUser, lake.Audit.Creator)
}
