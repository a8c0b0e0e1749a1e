package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/bookwell/libs/auth"
	"github.com/md-rashed-zaman/bookwell/libs/httpx"
)

const (
	HeaderUserID   = "X-User-Id"
	HeaderTenantID = "X-Business-Id"
	HeaderRole     = "X-Role"

	RoleAdmin = "admin"
)

// Identity is the caller as resolved by the bearer token or the gateway.
type Identity struct {
	UserID   string
	TenantID string
	Role     string
}

type identityKey struct{}

func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

type IdentityConfig struct {
	JWTSecret string
	// TrustGatewayHeaders accepts X-User-Id/X-Business-Id/X-Role when no bearer
	// token is present. Only enable behind a gateway that strips client copies.
	TrustGatewayHeaders bool
	Now                 func() time.Time
}

// RequireIdentity rejects requests that carry neither a valid HS256 bearer token
// nor, when trusted, gateway identity headers.
func RequireIdentity(cfg IdentityConfig) httpx.Middleware {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, status, msg := resolveIdentity(r, cfg)
			if status != 0 {
				http.Error(w, msg, status)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), id)))
		})
	}
}

func resolveIdentity(r *http.Request, cfg IdentityConfig) (Identity, int, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		if !strings.HasPrefix(authHeader, "Bearer ") || len(strings.TrimSpace(authHeader)) <= len("Bearer ") {
			return Identity{}, http.StatusUnauthorized, "missing or invalid Authorization header"
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		claims, err := auth.ParseAndVerifyHS256(token, cfg.JWTSecret, cfg.Now())
		if err != nil {
			return Identity{}, http.StatusUnauthorized, "invalid token"
		}
		return Identity{UserID: claims.Sub, TenantID: claims.TenantID, Role: claims.Role}, 0, ""
	}

	if cfg.TrustGatewayHeaders {
		id := Identity{
			UserID:   strings.TrimSpace(r.Header.Get(HeaderUserID)),
			TenantID: strings.TrimSpace(r.Header.Get(HeaderTenantID)),
			Role:     strings.TrimSpace(r.Header.Get(HeaderRole)),
		}
		if id.UserID != "" && id.TenantID != "" {
			return id, 0, ""
		}
	}
	return Identity{}, http.StatusUnauthorized, "missing or invalid Authorization header"
}

func RequireRole(roles ...string) httpx.Middleware {
	allowed := map[string]struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, _ := IdentityFromContext(r.Context())
			if _, ok := allowed[id.Role]; !ok {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
