package apis

import (
	"net/http"

	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/common/httpx"
	"github.com/tansive/metacatalog/pkg/types"
)

func (a *API) createCatalog(r *http.Request) (*httpx.Response, error) {
	lake, err := pathIdent(r, "metalake")
	if err != nil {
		return nil, err
	}
	var req CreateCatalogReq
	if err := decodeRequest(r, &req); err != nil {
		return nil, err
	}
	typ, perr := types.ParseCatalogType(req.Type)
	if perr != nil {
		return nil, caterrors.ErrInvalidArgument.Err(perr)
	}
	ident, err := childIdent(lake, req.Name)
	if err != nil {
		return nil, err
	}
	c, err := a.mgr.CreateCatalog(r.Context(), ident, typ, req.Provider, req.Comment, req.Properties)
	if err != nil {
		return nil, err
	}
	return rspCreated("/metalakes/"+lake.Name()+"/catalogs/"+c.Name, maskedCatalog(c)), nil
}

func (a *API) listCatalogs(r *http.Request) (*httpx.Response, error) {
	lake, err := pathIdent(r, "metalake")
	if err != nil {
		return nil, err
	}
	idents, err := a.mgr.ListCatalogs(r.Context(), lake.Name())
	if err != nil {
		return nil, err
	}
	return rspList(idents), nil
}

func (a *API) getCatalog(r *http.Request) (*httpx.Response, error) {
	ident, err := pathIdent(r, "metalake", "catalog")
	if err != nil {
		return nil, err
	}
	c, err := a.mgr.LoadCatalog(r.Context(), ident)
	if err != nil {
		return nil, err
	}
	return rspOK(maskedCatalog(c)), nil
}

func (a *API) updateCatalog(r *http.Request) (*httpx.Response, error) {
	ident, err := pathIdent(r, "metalake", "catalog")
	if err != nil {
		return nil, err
	}
	var req UpdateReq
	if err := decodeRequest(r, &req); err != nil {
		return nil, err
	}
	current, err := a.mgr.LoadCatalog(r.Context(), ident)
	if err != nil {
		return nil, err
	}
	c, err := a.mgr.UpdateCatalog(r.Context(), ident, req.Comment, unmaskProperties(req.Properties, current.Properties))
	if err != nil {
		return nil, err
	}
	return rspOK(maskedCatalog(c)), nil
}

func (a *API) dropCatalog(r *http.Request) (*httpx.Response, error) {
	ident, err := pathIdent(r, "metalake", "catalog")
	if err != nil {
		return nil, err
	}
	if err := a.mgr.DropCatalog(r.Context(), ident); err != nil {
		return nil, err
	}
	return rspOK(&DropRsp{Dropped: true}), nil
}
