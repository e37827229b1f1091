package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/vidora-app/vidora/internal/platform/httpx"
	"github.com/vidora-app/vidora/internal/shared"
)

// AccessTokenCookie is the cookie carrying the access token.
const AccessTokenCookie = "accessToken"

// AccountResolver loads the account behind a verified token subject.
type AccountResolver interface {
	ResolveAccount(ctx context.Context, id uuid.UUID) (*shared.Account, error)
}

// Guard gates endpoints that require an authenticated user.
type Guard struct {
	logger   *slog.Logger
	issuer   *TokenIssuer
	resolver AccountResolver
	group    singleflight.Group
}

// NewGuard constructs a Guard.
func NewGuard(logger *slog.Logger, issuer *TokenIssuer, resolver AccountResolver) *Guard {
	return &Guard{logger: logger, issuer: issuer, resolver: resolver}
}

// RequireUser verifies the bearer access token, resolves the account and
// attaches it to the request context. Requests without a usable token get a
// 401 envelope.
func (g *Guard) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			httpx.Error(w, http.StatusUnauthorized, shared.ErrUnauthorized.Error())
			return
		}

		claims, err := g.issuer.VerifyAccess(token)
		if err != nil {
			g.logger.Warn("access token rejected", slog.String("path", r.URL.Path))
			httpx.Error(w, http.StatusUnauthorized, shared.ErrUnauthorized.Error())
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			httpx.Error(w, http.StatusUnauthorized, shared.ErrUnauthorized.Error())
			return
		}

		// Concurrent requests with the same subject share one lookup.
		v, err, _ := g.group.Do(claims.Subject, func() (any, error) {
			return g.resolver.ResolveAccount(r.Context(), userID)
		})
		if err != nil {
			httpx.Error(w, http.StatusUnauthorized, shared.ErrUnauthorized.Error())
			return
		}
		acc := v.(*shared.Account)

		ctx := shared.ContextWithAccount(r.Context(), acc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BearerToken extracts the access token from the accessToken cookie or the
// Authorization header, in that order.
func BearerToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
