package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/bookwell/libs/httpx"
	"github.com/md-rashed-zaman/bookwell/services/availability-service/internal/model"
)

type TenantStatusReader interface {
	Status(ctx context.Context, tenantID string) (string, error)
}

// TenantFunc extracts the tenant a request acts on.
type TenantFunc func(r *http.Request) string

// TenantFromIdentity reads the tenant of the authenticated caller.
func TenantFromIdentity(r *http.Request) string {
	id, _ := IdentityFromContext(r.Context())
	return id.TenantID
}

// TenantFromQuery reads the tenant_id query parameter of public requests.
func TenantFromQuery(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("tenant_id"))
}

// RequireActiveTenant answers 403 for tenants whose billing status is blocked.
// Overdue tenants keep access. Requests without a tenant pass through to the
// handler, which reports the missing field.
func RequireActiveTenant(reader TenantStatusReader, tenant TenantFunc, logger *slog.Logger) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID := tenant(r)
			if tenantID == "" || reader == nil {
				next.ServeHTTP(w, r)
				return
			}
			status, err := reader.Status(r.Context(), tenantID)
			if err != nil {
				httpx.Logger(r.Context(), logger).Error("tenant status lookup failed", "tenant_id", tenantID, "err", err)
				http.Error(w, "failed to check tenant status", http.StatusInternalServerError)
				return
			}
			if status == model.TenantBlocked {
				http.Error(w, "tenant is blocked", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
