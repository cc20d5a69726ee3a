package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/taskhub-api/internal/api/shared"
	"github.com/phrazzld/taskhub-api/internal/domain"
	"github.com/phrazzld/taskhub-api/internal/platform/logger"
	"github.com/phrazzld/taskhub-api/internal/redact"
	"github.com/phrazzld/taskhub-api/internal/service/auth"
)

// AccessTokenQueryParam carries the bearer token on websocket upgrades,
// where browsers cannot set an Authorization header.
const AccessTokenQueryParam = "access_token"

// AuthMiddleware resolves the caller identity from a bearer token.
type AuthMiddleware struct {
	jwtService auth.JWTService
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
func NewAuthMiddleware(jwtService auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
	}
}

// Authenticate validates the token from the Authorization header and adds
// the caller identity to the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return m.authenticate(next, false)
}

// AuthenticateWebSocket is Authenticate that also accepts the token from
// the access_token query parameter.
func (m *AuthMiddleware) AuthenticateWebSocket(next http.Handler) http.Handler {
	return m.authenticate(next, true)
}

func (m *AuthMiddleware) authenticate(next http.Handler, allowQuery bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok && allowQuery {
			token = r.URL.Query().Get(AccessTokenQueryParam)
			ok = token != ""
		}
		if !ok {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
			return
		}

		claims, err := m.jwtService.ValidateToken(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Token expired")
			case errors.Is(err, domain.ErrUnauthenticated):
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
			default:
				logger.FromContextOrDefault(r.Context(), slog.Default()).
					Error("failed to validate token", slog.String("error", redact.Error(err)))
				shared.RespondWithError(w, r, http.StatusInternalServerError, "Authentication error")
			}
			return
		}

		ctx := shared.WithUserID(r.Context(), claims.UserID, claims.Role)
		log := logger.FromContextOrDefault(ctx, slog.Default()).
			With(slog.String("user_id", claims.UserID.String()))
		ctx = logger.WithLogger(ctx, log)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
