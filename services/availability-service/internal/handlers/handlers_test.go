package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/bookwell/libs/auth"
	"github.com/md-rashed-zaman/bookwell/services/availability-service/internal/calendar"
	"github.com/md-rashed-zaman/bookwell/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/bookwell/services/availability-service/internal/scheduling"
)

type fakeScheduler struct {
	created  scheduling.CreateWindowInput
	deleted  [2]string
	query    scheduling.SlotQuery
	listArgs [3]string
	err      error
	slots    []string
}

func (f *fakeScheduler) CreateWindow(_ context.Context, in scheduling.CreateWindowInput) (model.AvailabilityWindow, error) {
	f.created = in
	if f.err != nil {
		return model.AvailabilityWindow{}, f.err
	}
	day, _ := calendar.ParseDay(in.Date)
	return model.AvailabilityWindow{
		ID: "w1", ProfessionalID: in.ProfessionalID, TenantID: in.TenantID, Day: day,
		StartMinute: in.StartMinute, EndMinute: in.EndMinute, SlotMinutes: 30, Active: true,
	}, nil
}

func (f *fakeScheduler) ListWindows(_ context.Context, professionalID, tenantID, date string) ([]model.AvailabilityWindow, error) {
	f.listArgs = [3]string{professionalID, tenantID, date}
	return nil, f.err
}

func (f *fakeScheduler) ListAllWindows(context.Context) ([]model.AvailabilityWindow, error) {
	return []model.AvailabilityWindow{{ID: "w1"}, {ID: "w2"}}, f.err
}

func (f *fakeScheduler) DeleteWindow(_ context.Context, professionalID, windowID string) error {
	f.deleted = [2]string{professionalID, windowID}
	return f.err
}

func (f *fakeScheduler) ComputeSlots(_ context.Context, q scheduling.SlotQuery, _ time.Time) ([]string, error) {
	f.query = q
	return f.slots, f.err
}

func (f *fakeScheduler) Now() time.Time { return time.Date(2026, 1, 27, 12, 0, 0, 0, time.UTC) }

type fakeTenants map[string]string

func (f fakeTenants) Status(_ context.Context, tenantID string) (string, error) {
	if s, ok := f[tenantID]; ok {
		return s, nil
	}
	return model.TenantActive, nil
}

const testSecret = "test-secret"

func newTestMux(sched *fakeScheduler) *http.ServeMux {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tenants := fakeTenants{"blocked-tenant": model.TenantBlocked, "late-tenant": model.TenantOverdue}
	mux := http.NewServeMux()
	Register(mux, NewAvailabilityHandler(sched, logger), RouteConfig{
		Identity:     RequireIdentity(IdentityConfig{JWTSecret: testSecret, TrustGatewayHeaders: true}),
		TenantAccess: RequireActiveTenant(tenants, TenantFromIdentity, logger),
		PublicTenant: RequireActiveTenant(tenants, TenantFromQuery, logger),
	})
	return mux
}

func gatewayRequest(method, target, body, user, tenant, role string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(HeaderUserID, user)
	req.Header.Set(HeaderTenantID, tenant)
	req.Header.Set(HeaderRole, role)
	return req
}

func TestCreateWindowUsesCallerIdentity(t *testing.T) {
	sched := &fakeScheduler{}
	mux := newTestMux(sched)

	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, gatewayRequest(http.MethodPost, PathWindows,
		`{"date":"2026-01-28","start_minute":540,"end_minute":600}`, "pro-1", "t1", "professional"))
	if rw.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rw.Code, rw.Body.String())
	}
	if sched.created.ProfessionalID != "pro-1" || sched.created.TenantID != "t1" || sched.created.StartMinute != 540 {
		t.Fatalf("unexpected input %+v", sched.created)
	}
	var resp windowResponse
	if err := json.Unmarshal(rw.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Date != "2026-01-28" || resp.ID != "w1" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestCreateWindowRequiresOffsets(t *testing.T) {
	mux := newTestMux(&fakeScheduler{})
	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, gatewayRequest(http.MethodPost, PathWindows, `{"date":"2026-01-28"}`, "pro-1", "t1", ""))
	if rw.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rw.Code)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{&scheduling.ValidationError{Fields: map[string]string{"date": "must be YYYY-MM-DD"}}, http.StatusBadRequest},
		{model.ErrConflict, http.StatusConflict},
		{fmt.Errorf("service x: %w", model.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("list windows: %w", model.ErrStorage), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		mux := newTestMux(&fakeScheduler{err: tc.err})
		rw := httptest.NewRecorder()
		mux.ServeHTTP(rw, gatewayRequest(http.MethodGet, PathWindows+"?date=2026-01-28", "", "pro-1", "t1", ""))
		if rw.Code != tc.code {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.code, rw.Code)
		}
	}
}

func TestDeleteWindow(t *testing.T) {
	sched := &fakeScheduler{}
	mux := newTestMux(sched)
	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, gatewayRequest(http.MethodDelete, PathWindows+"?id=w1", "", "pro-1", "t1", ""))
	if rw.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rw.Code)
	}
	if sched.deleted != [2]string{"pro-1", "w1"} {
		t.Fatalf("unexpected delete args %v", sched.deleted)
	}
}

func TestMissingIdentityIsUnauthorized(t *testing.T) {
	mux := newTestMux(&fakeScheduler{})
	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, PathWindows+"?date=2026-01-28", nil))
	if rw.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rw.Code)
	}
}

func TestBearerTokenIdentity(t *testing.T) {
	sched := &fakeScheduler{}
	mux := newTestMux(sched)

	token, err := auth.SignHS256(auth.Claims{
		Sub:      "pro-9",
		TenantID: "t9",
		Role:     "professional",
		Iat:      time.Now().Unix(),
		Exp:      time.Now().Add(time.Hour).Unix(),
	}, testSecret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, PathWindows+"?date=2026-01-28", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	// Token wins over gateway headers.
	req.Header.Set(HeaderUserID, "spoofed")
	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
	if sched.listArgs != [3]string{"pro-9", "t9", "2026-01-28"} {
		t.Fatalf("unexpected list args %v", sched.listArgs)
	}

	reqBad := httptest.NewRequest(http.MethodGet, PathWindows+"?date=2026-01-28", nil)
	reqBad.Header.Set("Authorization", "Bearer badtoken")
	rwBad := httptest.NewRecorder()
	mux.ServeHTTP(rwBad, reqBad)
	if rwBad.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rwBad.Code)
	}
}

func TestAdminListingRequiresRole(t *testing.T) {
	mux := newTestMux(&fakeScheduler{})

	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, gatewayRequest(http.MethodGet, PathAdminWindows, "", "pro-1", "t1", "professional"))
	if rw.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rw.Code)
	}

	rwOK := httptest.NewRecorder()
	mux.ServeHTTP(rwOK, gatewayRequest(http.MethodGet, PathAdminWindows, "", "ops", "t1", RoleAdmin))
	if rwOK.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rwOK.Code)
	}
	var list []windowResponse
	if err := json.Unmarshal(rwOK.Body.Bytes(), &list); err != nil || len(list) != 2 {
		t.Fatalf("unexpected body %s (%v)", rwOK.Body.String(), err)
	}
}

func TestBlockedTenant(t *testing.T) {
	mux := newTestMux(&fakeScheduler{slots: []string{"09:00"}})

	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, gatewayRequest(http.MethodGet, PathWindows+"?date=2026-01-28", "", "pro-1", "blocked-tenant", ""))
	if rw.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rw.Code)
	}

	rwPublic := httptest.NewRecorder()
	mux.ServeHTTP(rwPublic, httptest.NewRequest(http.MethodGet,
		PathPublicSlots+"?tenant_id=blocked-tenant&professional_id=p&service_id=s&date=2026-01-28", nil))
	if rwPublic.Code != http.StatusForbidden {
		t.Fatalf("expected 403 on public route, got %d", rwPublic.Code)
	}

	rwOverdue := httptest.NewRecorder()
	mux.ServeHTTP(rwOverdue, gatewayRequest(http.MethodGet, PathWindows+"?date=2026-01-28", "", "pro-1", "late-tenant", ""))
	if rwOverdue.Code != http.StatusOK {
		t.Fatalf("expected overdue tenant to pass, got %d", rwOverdue.Code)
	}
}

func TestPublicSlots(t *testing.T) {
	sched := &fakeScheduler{slots: []string{"09:00", "09:30"}}
	mux := newTestMux(sched)

	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, httptest.NewRequest(http.MethodGet,
		PathPublicSlots+"?tenant_id=t1&professional_id=p&service_id=s&date=2026-01-28", nil))
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
	if strings.TrimSpace(rw.Body.String()) != `["09:00","09:30"]` {
		t.Fatalf("unexpected body %s", rw.Body.String())
	}
	if sched.query.ServiceID != "s" || sched.query.Date != "2026-01-28" {
		t.Fatalf("unexpected query %+v", sched.query)
	}

	rwMissing := httptest.NewRecorder()
	mux.ServeHTTP(rwMissing, httptest.NewRequest(http.MethodGet, PathPublicSlots+"?tenant_id=t1", nil))
	if rwMissing.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rwMissing.Code)
	}
}

func TestTenantLookupFailure(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := RequireActiveTenant(failingTenants{}, TenantFromQuery, logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/?tenant_id=t1", nil))
	if rw.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rw.Code)
	}
}

type failingTenants struct{}

func (failingTenants) Status(context.Context, string) (string, error) {
	return "", errors.New("db down")
}
