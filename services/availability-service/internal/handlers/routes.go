package handlers

import (
	"net/http"

	"github.com/md-rashed-zaman/bookwell/libs/httpx"
)

const (
	PathWindows      = "/api/v1/availability/windows"
	PathAdminWindows = "/api/v1/admin/availability/windows"
	PathPublicSlots  = "/api/v1/public/slots"
)

// RouteConfig carries the middleware guarding each route group. Nil entries are skipped.
type RouteConfig struct {
	Identity     httpx.Middleware
	TenantAccess httpx.Middleware
	PublicTenant httpx.Middleware
	PublicLimit  httpx.Middleware
}

func Register(mux *http.ServeMux, h *AvailabilityHandler, rc RouteConfig) {
	mux.Handle(PathWindows, httpx.Chain(http.HandlerFunc(h.Windows),
		rc.Identity,
		rc.TenantAccess,
	))
	mux.Handle(PathAdminWindows, httpx.Chain(http.HandlerFunc(h.AllWindows),
		rc.Identity,
		RequireRole(RoleAdmin),
	))
	mux.Handle(PathPublicSlots, httpx.Chain(http.HandlerFunc(h.Slots),
		rc.PublicLimit,
		rc.PublicTenant,
	))
}
