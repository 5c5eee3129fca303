package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tansive/metacatalog/internal/catalogsrv/catcommon"
	"github.com/tansive/metacatalog/internal/common/httpx"
)

// RequestIDHeader carries the request id back to the client. A valid id sent
// by the client is reused.
const RequestIDHeader = "X-Metacatalog-Request-ID"

// RequestLogger is a middleware that logs the request details and adds a unique request ID to the context.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = newRequestId()
		}
		ctx = catcommon.SetRequestIdInContext(ctx, requestID)
		// Add a sub-logger with requestId to context
		ctx = log.With().Str("request_id", requestID).Logger().WithContext(ctx)
		w.Header().Set(RequestIDHeader, requestID)

		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		requestFields := map[string]interface{}{
			"requestURL":    fmt.Sprintf("%s://%s%s", scheme, r.Host, r.RequestURI),
			"requestMethod": r.Method,
			"requestPath":   r.URL.Path,
			"remoteIP":      r.RemoteAddr,
			"proto":         r.Proto,
		}
		log.Ctx(ctx).Info().Fields(requestFields).Msg("request")

		rw := httpx.NewResponseWriter(w)
		start := time.Now()
		next.ServeHTTP(rw, r.WithContext(ctx))
		log.Ctx(ctx).Info().
			Int("status", rw.Status()).
			Int("bytes", rw.BytesWritten()).
			Dur("elapsed", time.Since(start)).
			Msg("response")
	})
}

func newRequestId() string {
	u, err := uuid.NewRandom()
	if err == nil {
		return u.String()
	} else {
		return ""
	}
}
