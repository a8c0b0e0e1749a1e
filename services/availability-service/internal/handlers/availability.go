package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/bookwell/libs/httpx"
	"github.com/md-rashed-zaman/bookwell/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/bookwell/services/availability-service/internal/scheduling"
)

type Scheduler interface {
	CreateWindow(ctx context.Context, in scheduling.CreateWindowInput) (model.AvailabilityWindow, error)
	ListWindows(ctx context.Context, professionalID, tenantID, date string) ([]model.AvailabilityWindow, error)
	ListAllWindows(ctx context.Context) ([]model.AvailabilityWindow, error)
	DeleteWindow(ctx context.Context, professionalID, windowID string) error
	ComputeSlots(ctx context.Context, q scheduling.SlotQuery, now time.Time) ([]string, error)
	Now() time.Time
}

type AvailabilityHandler struct {
	svc    Scheduler
	logger *slog.Logger
}

func NewAvailabilityHandler(svc Scheduler, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{svc: svc, logger: logger}
}

type windowResponse struct {
	ID             string `json:"id"`
	ProfessionalID string `json:"professional_id"`
	TenantID       string `json:"tenant_id"`
	Date           string `json:"date"`
	StartMinute    int    `json:"start_minute"`
	EndMinute      int    `json:"end_minute"`
	SlotMinutes    int    `json:"slot_minutes"`
	Active         bool   `json:"active"`
	CreatedAt      string `json:"created_at,omitempty"`
}

func toWindowResponse(w model.AvailabilityWindow) windowResponse {
	resp := windowResponse{
		ID:             w.ID,
		ProfessionalID: w.ProfessionalID,
		TenantID:       w.TenantID,
		Date:           w.Day.String(),
		StartMinute:    w.StartMinute,
		EndMinute:      w.EndMinute,
		SlotMinutes:    w.SlotMinutes,
		Active:         w.Active,
	}
	if !w.CreatedAt.IsZero() {
		resp.CreatedAt = w.CreatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func toWindowList(windows []model.AvailabilityWindow) []windowResponse {
	out := make([]windowResponse, 0, len(windows))
	for _, w := range windows {
		out = append(out, toWindowResponse(w))
	}
	return out
}

// Windows serves the professional's own windows: POST creates, GET lists a day,
// DELETE removes by id.
func (h *AvailabilityHandler) Windows(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createWindow(w, r)
	case http.MethodGet:
		h.listWindows(w, r)
	case http.MethodDelete:
		h.deleteWindow(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AvailabilityHandler) createWindow(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())

	var req struct {
		Date        string `json:"date"`
		StartMinute *int   `json:"start_minute"`
		EndMinute   *int   `json:"end_minute"`
		SlotMinutes int    `json:"slot_minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.StartMinute == nil || req.EndMinute == nil {
		http.Error(w, "start_minute and end_minute are required", http.StatusBadRequest)
		return
	}

	created, err := h.svc.CreateWindow(r.Context(), scheduling.CreateWindowInput{
		ProfessionalID: id.UserID,
		TenantID:       id.TenantID,
		Date:           strings.TrimSpace(req.Date),
		StartMinute:    *req.StartMinute,
		EndMinute:      *req.EndMinute,
		SlotMinutes:    req.SlotMinutes,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWindowResponse(created))
}

func (h *AvailabilityHandler) listWindows(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		http.Error(w, "date is required", http.StatusBadRequest)
		return
	}

	windows, err := h.svc.ListWindows(r.Context(), id.UserID, id.TenantID, date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWindowList(windows))
}

func (h *AvailabilityHandler) deleteWindow(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())
	windowID := strings.TrimSpace(r.URL.Query().Get("id"))
	if windowID == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	if err := h.svc.DeleteWindow(r.Context(), id.UserID, windowID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AllWindows is the administrative listing across professionals.
func (h *AvailabilityHandler) AllWindows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	windows, err := h.svc.ListAllWindows(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWindowList(windows))
}

// Slots is public: it answers the "HH:MM" start times still bookable for a service.
func (h *AvailabilityHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	query := scheduling.SlotQuery{
		TenantID:       strings.TrimSpace(q.Get("tenant_id")),
		ProfessionalID: strings.TrimSpace(q.Get("professional_id")),
		ServiceID:      strings.TrimSpace(q.Get("service_id")),
		Date:           strings.TrimSpace(q.Get("date")),
	}
	if query.TenantID == "" || query.ProfessionalID == "" || query.ServiceID == "" || query.Date == "" {
		http.Error(w, "tenant_id, professional_id, service_id, and date are required", http.StatusBadRequest)
		return
	}

	slots, err := h.svc.ComputeSlots(r.Context(), query, h.svc.Now())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

func (h *AvailabilityHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *scheduling.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid input", "fields": verr.Fields})
	case errors.Is(err, model.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, model.ErrConflict):
		http.Error(w, "availability window overlaps an existing window", http.StatusConflict)
	case errors.Is(err, model.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		httpx.Logger(r.Context(), h.logger).Error("availability request failed", "path", r.URL.Path, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
