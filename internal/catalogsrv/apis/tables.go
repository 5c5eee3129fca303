package apis

import (
	"net/http"

	"github.com/tansive/metacatalog/internal/catalogsrv/catalog"
	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/common/apperrors"
	"github.com/tansive/metacatalog/internal/common/httpx"
)

func (a *API) tables(r *http.Request) (catalog.TableCatalog, apperrors.Error) {
	c, err := a.openCatalog(r)
	if err != nil {
		return nil, err
	}
	return c.AsTableCatalog()
}

func (a *API) createTable(r *http.Request) (*httpx.Response, error) {
	schema, err := pathIdent(r, "metalake", "catalog", "schema")
	if err != nil {
		return nil, err
	}
	var req CreateTableReq
	if err := decodeRequest(r, &req); err != nil {
		return nil, err
	}
	ident, err := childIdent(schema, req.Name)
	if err != nil {
		return nil, err
	}
	t, err := a.tables(r)
	if err != nil {
		return nil, err
	}
	table, err := t.CreateTable(r.Context(), ident, req.Columns, req.Comment, req.Properties)
	if err != nil {
		return nil, err
	}
	return rspCreated(r.URL.Path+"/"+table.Name, table), nil
}

func (a *API) listTables(r *http.Request) (*httpx.Response, error) {
	schema, err := pathIdent(r, "metalake", "catalog", "schema")
	if err != nil {
		return nil, err
	}
	t, err := a.tables(r)
	if err != nil {
		return nil, err
	}
	ns, _ := schema.AsNamespace()
	idents, err := t.ListTables(r.Context(), ns)
	if err != nil {
		return nil, err
	}
	return rspList(idents), nil
}

func (a *API) getTable(r *http.Request) (*httpx.Response, error) {
	ident, err := pathIdent(r, "metalake", "catalog", "schema", "table")
	if err != nil {
		return nil, err
	}
	t, err := a.tables(r)
	if err != nil {
		return nil, err
	}
	table, err := t.LoadTable(r.Context(), ident)
	if err != nil {
		return nil, err
	}
	return rspOK(table), nil
}

func (a *API) tableExists(r *http.Request) (*httpx.Response, error) {
	ident, err := pathIdent(r, "metalake", "catalog", "schema", "table")
	if err != nil {
		return nil, err
	}
	t, err := a.tables(r)
	if err != nil {
		return nil, err
	}
	exists, err := t.TableExists(r.Context(), ident)
	if err != nil {
		return nil, err
	}
	return existsRsp(exists, caterrors.ErrNoSuchTable, ident)
}

func (a *API) dropTable(r *http.Request) (*httpx.Response, error) {
	ident, err := pathIdent(r, "metalake", "catalog", "schema", "table")
	if err != nil {
		return nil, err
	}
	t, err := a.tables(r)
	if err != nil {
		return nil, err
	}
	if err := t.DropTable(r.Context(), ident); err != nil {
		return nil, err
	}
	return rspOK(&DropRsp{Dropped: true}), nil
}
