package apis

import (
	"net/http"

	"github.com/tansive/metacatalog/internal/catalogsrv/catalog"
	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/common/apperrors"
	"github.com/tansive/metacatalog/internal/common/httpx"
	"github.com/tansive/metacatalog/pkg/types"
)

// openCatalog returns the open catalog named by the metalake and catalog
// path parameters. The catalog stays acquired until the request ends.
func (a *API) openCatalog(r *http.Request) (*catalog.Catalog, apperrors.Error) {
	ident, err := pathIdent(r, "metalake", "catalog")
	if err != nil {
		return nil, err
	}
	c, release, err := a.mgr.Acquire(r.Context(), ident)
	if err != nil {
		return nil, err
	}
	holdUntilDone(r.Context(), release)
	return c, nil
}

func (a *API) schemas(r *http.Request) (catalog.SupportsSchemas, apperrors.Error) {
	c, err := a.openCatalog(r)
	if err != nil {
		return nil, err
	}
	return c.AsSchemas()
}

func (a *API) createSchema(r *http.Request) (*httpx.Response, error) {
	cat, err := pathIdent(r, "metalake", "catalog")
	if err != nil {
		return nil, err
	}
	var req CreateSchemaReq
	if err := decodeRequest(r, &req); err != nil {
		return nil, err
	}
	ident, err := childIdent(cat, req.Name)
	if err != nil {
		return nil, err
	}
	s, err := a.schemas(r)
	if err != nil {
		return nil, err
	}
	schema, err := s.CreateSchema(r.Context(), ident, req.Comment, req.Properties)
	if err != nil {
		return nil, err
	}
	return rspCreated(r.URL.Path+"/"+schema.Name, schema), nil
}

func (a *API) listSchemas(r *http.Request) (*httpx.Response, error) {
	cat, err := pathIdent(r, "metalake", "catalog")
	if err != nil {
		return nil, err
	}
	s, err := a.schemas(r)
	if err != nil {
		return nil, err
	}
	ns, _ := cat.AsNamespace()
	idents, err := s.ListSchemas(r.Context(), ns)
	if err != nil {
		return nil, err
	}
	return rspList(idents), nil
}

func (a *API) getSchema(r *http.Request) (*httpx.Response, error) {
	ident, err := pathIdent(r, "metalake", "catalog", "schema")
	if err != nil {
		return nil, err
	}
	s, err := a.schemas(r)
	if err != nil {
		return nil, err
	}
	schema, err := s.LoadSchema(r.Context(), ident)
	if err != nil {
		return nil, err
	}
	return rspOK(schema), nil
}

func (a *API) schemaExists(r *http.Request) (*httpx.Response, error) {
	ident, err := pathIdent(r, "metalake", "catalog", "schema")
	if err != nil {
		return nil, err
	}
	s, err := a.schemas(r)
	if err != nil {
		return nil, err
	}
	exists, err := s.SchemaExists(r.Context(), ident)
	if err != nil {
		return nil, err
	}
	return existsRsp(exists, caterrors.ErrNoSuchSchema, ident)
}

func (a *API) dropSchema(r *http.Request) (*httpx.Response, error) {
	ident, err := pathIdent(r, "metalake", "catalog", "schema")
	if err != nil {
		return nil, err
	}
	cascade, err := queryBool(r, "cascade")
	if err != nil {
		return nil, err
	}
	s, err := a.schemas(r)
	if err != nil {
		return nil, err
	}
	if err := s.DropSchema(r.Context(), ident, cascade); err != nil {
		return nil, err
	}
	return rspOK(&DropRsp{Dropped: true}), nil
}

func existsRsp(exists bool, notFound apperrors.Error, ident types.NameIdentifier) (*httpx.Response, error) {
	if !exists {
		return nil, notFound.Msgf("%s does not exist", ident)
	}
	return &httpx.Response{StatusCode: http.StatusOK}, nil
}
