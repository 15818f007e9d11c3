package middleware

import (
	"net/http"
	"strings"

	"github.com/shopin/storefront-bff/api/responses"
	pkgAuth "github.com/shopin/storefront-bff/pkg/auth"
	"github.com/shopin/storefront-bff/pkg/config"
	pkgerrors "github.com/shopin/storefront-bff/pkg/errors"
	"github.com/shopin/storefront-bff/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the
// user identity and the raw token for upstream forwarding. Cart sync and
// checkout only exist behind this middleware: unauthenticated traffic
// never reaches a reconciler.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithUserID(r.Context(), claims.UserID.String())
			ctx = WithToken(ctx, token)

			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
