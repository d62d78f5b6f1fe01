package middleware

import (
	"net/http"
	"strings"

	"github.com/RayhanLauzzadani/pasma-apps/api/responses"
	pkgAuth "github.com/RayhanLauzzadani/pasma-apps/pkg/auth"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/config"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
	pkgerrors "github.com/RayhanLauzzadani/pasma-apps/pkg/errors"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the claims.
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
			userID, _ := claims.UserID()
			role := claims.Role
			if role == "" {
				role = enums.UserRoleUser
			}

			ctx := WithUserID(r.Context(), userID.String())
			ctx = WithRole(ctx, string(role))
			if logg != nil {
				ctx = logg.WithUserID(ctx, userID.String())
				ctx = logg.WithActorRole(ctx, string(role))
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
