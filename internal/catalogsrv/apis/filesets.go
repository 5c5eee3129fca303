package apis

import (
	"net/http"

	"github.com/tansive/metacatalog/internal/catalogsrv/catalog"
	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/common/apperrors"
	"github.com/tansive/metacatalog/internal/common/httpx"
	"github.com/tansive/metacatalog/pkg/types"
)

func (a *API) filesets(r *http.Request) (catalog.FilesetCatalog, apperrors.Error) {
	c, err := a.openCatalog(r)
	if err != nil {
		return nil, err
	}
	return c.AsFilesetCatalog()
}

func (a *API) createFileset(r *http.Request) (*httpx.Response, error) {
	schema, err := pathIdent(r, "metalake", "catalog", "schema")
	if err != nil {
		return nil, err
	}
	var req CreateFilesetReq
	if err := decodeRequest(r, &req); err != nil {
		return nil, err
	}
	typ, perr := types.ParseFilesetType(req.Type)
	if perr != nil {
		return nil, caterrors.ErrInvalidArgument.Err(perr)
	}
	ident, err := childIdent(schema, req.Name)
	if err != nil {
		return nil, err
	}
	f, err := a.filesets(r)
	if err != nil {
		return nil, err
	}
	fileset, err := f.CreateFileset(r.Context(), ident, req.Comment, typ, req.StorageLocation, req.Properties)
	if err != nil {
		return nil, err
	}
	return rspCreated(r.URL.Path+"/"+fileset.Name, fileset), nil
}

func (a *API) listFilesets(r *http.Request) (*httpx.Response, error) {
	schema, err := pathIdent(r, "metalake", "catalog", "schema")
	if err != nil {
		return nil, err
	}
	f, err := a.filesets(r)
	if err != nil {
		return nil, err
	}
	ns, _ := schema.AsNamespace()
	idents, err := f.ListFilesets(r.Context(), ns)
	if err != nil {
		return nil, err
	}
	return rspList(idents), nil
}

func (a *API) getFileset(r *http.Request) (*httpx.Response, error) {
	ident, err := pathIdent(r, "metalake", "catalog", "schema", "fileset")
	if err != nil {
		return nil, err
	}
	f, err := a.filesets(r)
	if err != nil {
		return nil, err
	}
	fileset, err := f.LoadFileset(r.Context(), ident)
	if err != nil {
		return nil, err
	}
	return rspOK(fileset), nil
}

func (a *API) filesetExists(r *http.Request) (*httpx.Response, error) {
	ident, err := pathIdent(r, "metalake", "catalog", "schema", "fileset")
	if err != nil {
		return nil, err
	}
	f, err := a.filesets(r)
	if err != nil {
		return nil, err
	}
	exists, err := f.FilesetExists(r.Context(), ident)
	if err != nil {
		return nil, err
	}
	return existsRsp(exists, caterrors.ErrNoSuchFileset, ident)
}

func (a *API) dropFileset(r *http.Request) (*httpx.Response, error) {
	ident, err := pathIdent(r, "metalake", "catalog", "schema", "fileset")
	if err != nil {
		return nil, err
	}
	f, err := a.filesets(r)
	if err != nil {
		return nil, err
	}
	if err := f.DropFileset(r.Context(), ident); err != nil {
		return nil, err
	}
	return rspOK(&DropRsp{Dropped: true}), nil
}
