package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/tansive/metacatalog/internal/catalogsrv/apis"
	"github.com/tansive/metacatalog/internal/catalogsrv/auth"
	"github.com/tansive/metacatalog/internal/catalogsrv/catalog"
	"github.com/tansive/metacatalog/internal/catalogsrv/config"
	"github.com/tansive/metacatalog/internal/catalogsrv/metalake"
	"github.com/tansive/metacatalog/internal/catalogsrv/server/middleware"
	"github.com/tansive/metacatalog/internal/common/httpx"
	"github.com/tansive/metacatalog/internal/common/logtrace"
	commonmiddleware "github.com/tansive/metacatalog/internal/common/middleware"
	"github.com/tansive/metacatalog/pkg/api"
)

type CatalogServer struct {
	Router   *chi.Mux
	mgr      *metalake.Manager
	verifier *auth.Verifier
}

// CreateNewServer serves mgr, identifying callers with verifier. A nil
// verifier disables authentication.
func CreateNewServer(mgr *metalake.Manager, verifier *auth.Verifier) (*CatalogServer, error) {
	if mgr == nil {
		return nil, errors.New("catalog server requires a metalake manager")
	}
	s := &CatalogServer{mgr: mgr, verifier: verifier}
	s.Router = chi.NewRouter()
	return s, nil
}

func (s *CatalogServer) MountHandlers() {
	cfg := config.Config()
	s.Router.Use(commonmiddleware.RequestLogger)
	s.Router.Use(commonmiddleware.PanicHandler)
	s.Router.Use(middleware.Metrics)
	if cfg.HandleCORS {
		s.Router.Use(s.HandleCORS)
	}
	s.Router.Get("/version", s.getVersion)
	if cfg.Metrics.Enabled {
		s.Router.Handle(cfg.Metrics.Path, promhttp.Handler())
	}
	s.Router.Group(s.mountResourceHandlers)
	if logtrace.IsTraceEnabled() {
		walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
			log.Trace().Str("method", method).Str("route", route).Msg("route")
			return nil
		}
		if err := chi.Walk(s.Router, walkFunc); err != nil {
			log.Error().Err(err).Msg("unable to walk routes")
		}
	}
}

func (s *CatalogServer) mountResourceHandlers(r chi.Router) {
	r.Use(middleware.CallerIdentity(s.verifier))
	r.Mount("/", apis.New(s.mgr).Router())
}

func (s *CatalogServer) getVersion(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("GetVersion")
	rsp := &api.GetVersionRsp{
		ServerVersion: api.ServerVersion,
		ApiVersion:    api.ApiVersion_1_0,
		Providers:     catalog.Providers(),
	}
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, rsp)
}

func (s *CatalogServer) HandleCORS(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   config.Config().AllowedOrigins,
		AllowedMethods:   []string{"GET", "HEAD", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "Accept-Encoding", commonmiddleware.RequestIDHeader},
		ExposedHeaders:   []string{"Location", commonmiddleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})(next)
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests for at most the configured shutdown grace period.
func (s *CatalogServer) ListenAndServe(ctx context.Context) error {
	cfg := config.Config()
	grace, err := cfg.ShutdownGrace()
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.ServerPort),
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("catalog server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("catalog server: %w", err)
	case <-ctx.Done():
	}

	log.Info().Dur("grace", grace).Msg("shutting down catalog server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("catalog server shutdown: %w", err)
	}
	return nil
}
