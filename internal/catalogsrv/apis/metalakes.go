package apis

import (
	"net/http"

	"github.com/tansive/metacatalog/internal/catalogsrv/meta"
	"github.com/tansive/metacatalog/internal/common/httpx"
)

type ListMetalakesRsp struct {
	Metalakes []*meta.Metalake `json:"metalakes"`
}

func (a *API) createMetalake(r *http.Request) (*httpx.Response, error) {
	var req CreateMetalakeReq
	if err := decodeRequest(r, &req); err != nil {
		return nil, err
	}
	m, err := a.mgr.CreateMetalake(r.Context(), req.Name, req.Comment, req.Properties)
	if err != nil {
		return nil, err
	}
	return rspCreated("/metalakes/"+m.Name, m), nil
}

func (a *API) listMetalakes(r *http.Request) (*httpx.Response, error) {
	lakes, err := a.mgr.ListMetalakes(r.Context())
	if err != nil {
		return nil, err
	}
	if lakes == nil {
		lakes = []*meta.Metalake{}
	}
	return rspOK(&ListMetalakesRsp{Metalakes: lakes}), nil
}

func (a *API) getMetalake(r *http.Request) (*httpx.Response, error) {
	ident, err := pathIdent(r, "metalake")
	if err != nil {
		return nil, err
	}
	m, err := a.mgr.LoadMetalake(r.Context(), ident.Name())
	if err != nil {
		return nil, err
	}
	return rspOK(m), nil
}

func (a *API) updateMetalake(r *http.Request) (*httpx.Response, error) {
	ident, err := pathIdent(r, "metalake")
	if err != nil {
		return nil, err
	}
	var req UpdateReq
	if err := decodeRequest(r, &req); err != nil {
		return nil, err
	}
	m, err := a.mgr.UpdateMetalake(r.Context(), ident.Name(), req.Comment, req.Properties)
	if err != nil {
		return nil, err
	}
	return rspOK(m), nil
}

func (a *API) dropMetalake(r *http.Request) (*httpx.Response, error) {
	ident, err := pathIdent(r, "metalake")
	if err != nil {
		return nil, err
	}
	if err := a.mgr.DropMetalake(r.Context(), ident.Name()); err != nil {
		return nil, err
	}
	return rspOK(&DropRsp{Dropped: true}), nil
}
