package apis

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/tansive/metacatalog/internal/catalogsrv/metalake"
	"github.com/tansive/metacatalog/internal/common/httpx"
)

const (
	metalakePath = "/metalakes/{metalake}"
	catalogPath  = metalakePath + "/catalogs/{catalog}"
	schemaPath   = catalogPath + "/schemas/{schema}"
)

// API serves the metalake hierarchy over REST.
type API struct {
	mgr *metalake.Manager
}

func New(mgr *metalake.Manager) *API {
	return &API{mgr: mgr}
}

func (a *API) handlers() []httpx.ResponseHandlerParam {
	return []httpx.ResponseHandlerParam{
		{Method: http.MethodPost, Path: "/metalakes", Handler: a.createMetalake},
		{Method: http.MethodGet, Path: "/metalakes", Handler: a.listMetalakes},
		{Method: http.MethodGet, Path: metalakePath, Handler: a.getMetalake},
		{Method: http.MethodPut, Path: metalakePath, Handler: a.updateMetalake},
		{Method: http.MethodDelete, Path: metalakePath, Handler: a.dropMetalake},

		{Method: http.MethodPost, Path: metalakePath + "/catalogs", Handler: a.createCatalog},
		{Method: http.MethodGet, Path: metalakePath + "/catalogs", Handler: a.listCatalogs},
		{Method: http.MethodGet, Path: catalogPath, Handler: a.getCatalog},
		{Method: http.MethodPut, Path: catalogPath, Handler: a.updateCatalog},
		{Method: http.MethodDelete, Path: catalogPath, Handler: a.dropCatalog},

		{Method: http.MethodPost, Path: catalogPath + "/schemas", Handler: a.createSchema},
		{Method: http.MethodGet, Path: catalogPath + "/schemas", Handler: a.listSchemas},
		{Method: http.MethodGet, Path: schemaPath, Handler: a.getSchema},
		{Method: http.MethodHead, Path: schemaPath, Handler: a.schemaExists},
		{Method: http.MethodDelete, Path: schemaPath, Handler: a.dropSchema},

		{Method: http.MethodPost, Path: schemaPath + "/tables", Handler: a.createTable},
		{Method: http.MethodGet, Path: schemaPath + "/tables", Handler: a.listTables},
		{Method: http.MethodGet, Path: schemaPath + "/tables/{table}", Handler: a.getTable},
		{Method: http.MethodHead, Path: schemaPath + "/tables/{table}", Handler: a.tableExists},
		{Method: http.MethodDelete, Path: schemaPath + "/tables/{table}", Handler: a.dropTable},

		{Method: http.MethodPost, Path: schemaPath + "/filesets", Handler: a.createFileset},
		{Method: http.MethodGet, Path: schemaPath + "/filesets", Handler: a.listFilesets},
		{Method: http.MethodGet, Path: schemaPath + "/filesets/{fileset}", Handler: a.getFileset},
		{Method: http.MethodHead, Path: schemaPath + "/filesets/{fileset}", Handler: a.filesetExists},
		{Method: http.MethodDelete, Path: schemaPath + "/filesets/{fileset}", Handler: a.dropFileset},
	}
}

// Router returns the REST routes of the catalog service.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	for _, handler := range a.handlers() {
		r.Method(handler.Method, handler.Path, httpx.WrapHttpRsp(withReleases(handler.Handler)))
	}
	return r
}

type releasesKey struct{}

// releases collects what a request acquired, to be given back when its
// handler returns.
type releases struct {
	mu  sync.Mutex
	fns []func()
}

func withReleases(handler httpx.RequestHandler) httpx.RequestHandler {
	return func(r *http.Request) (*httpx.Response, error) {
		rel := &releases{}
		defer rel.run()
		return handler(r.WithContext(context.WithValue(r.Context(), releasesKey{}, rel)))
	}
}

// holdUntilDone defers release to the end of the request in ctx. Outside a
// request it releases at once.
func holdUntilDone(ctx context.Context, release func()) {
	rel, ok := ctx.Value(releasesKey{}).(*releases)
	if !ok {
		release()
		return
	}
	rel.mu.Lock()
	rel.fns = append(rel.fns, release)
	rel.mu.Unlock()
}

func (rel *releases) run() {
	rel.mu.Lock()
	fns := rel.fns
	rel.fns = nil
	rel.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
