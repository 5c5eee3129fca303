package middleware

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/tansive/metacatalog/internal/catalogsrv/auth"
	"github.com/tansive/metacatalog/internal/catalogsrv/catcommon"
	"github.com/tansive/metacatalog/internal/common/httpx"
)

// CallerIdentity records the calling user in the request context. The user is
// the subject of a bearer token accepted by v. Requests without an
// Authorization header carry no caller: they are audited as anonymous and
// cannot reach impersonated backends.
func CallerIdentity(v *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}
			user, err := v.Authenticate(ctx, authHeader)
			if err != nil {
				log.Ctx(ctx).Info().Err(err).Msg("authentication failed")
				httpx.SendError(w, err)
				return
			}
			ctx = catcommon.SetCallerInContext(ctx, user)
			logger := log.Ctx(ctx).With().Str("caller", user).Logger()
			ctx = logger.WithContext(ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
