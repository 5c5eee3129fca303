package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tansive/metacatalog/internal/catalogsrv/metrics"
	"github.com/tansive/metacatalog/internal/common/httpx"
)

// Metrics records the count and latency of each request by route pattern.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := httpx.NewResponseWriter(w)
		start := time.Now()
		next.ServeHTTP(rw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		metrics.RecordRequest(r.Method, route, rw.Status(), time.Since(start))
	})
}
