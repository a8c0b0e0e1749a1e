package scheduling

import (
	"sort"
	"strings"

	"github.com/md-rashed-zaman/bookwell/services/availability-service/internal/calendar"
	"github.com/md-rashed-zaman/bookwell/services/availability-service/internal/model"
)

// ValidationError lists the rejected fields. It matches model.ErrInvalidInput.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return model.ErrInvalidInput }

func requireIdentity(professionalID, tenantID string) error {
	fields := map[string]string{}
	if professionalID == "" {
		fields["professional_id"] = "required"
	}
	if tenantID == "" {
		fields["tenant_id"] = "required"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func parseDay(token string) (calendar.Day, error) {
	day, err := calendar.ParseDay(token)
	if err != nil {
		return calendar.Day{}, &ValidationError{Fields: map[string]string{"date": "must be YYYY-MM-DD"}}
	}
	return day, nil
}

func validateWindow(in CreateWindowInput) (model.AvailabilityWindow, error) {
	fields := map[string]string{}
	if in.ProfessionalID == "" {
		fields["professional_id"] = "required"
	}
	if in.TenantID == "" {
		fields["tenant_id"] = "required"
	}
	day, err := calendar.ParseDay(in.Date)
	if err != nil {
		fields["date"] = "must be YYYY-MM-DD"
	}
	if in.StartMinute < 0 || in.StartMinute >= model.MinutesPerDay {
		fields["start_minute"] = "must be in [0, 1440)"
	}
	if in.EndMinute <= 0 || in.EndMinute > model.MinutesPerDay {
		fields["end_minute"] = "must be in (0, 1440]"
	}
	if _, bad := fields["start_minute"]; !bad && in.EndMinute <= in.StartMinute {
		fields["end_minute"] = "must be after start_minute"
	}
	slot := in.SlotMinutes
	if slot == 0 {
		slot = model.DefaultSlotMinutes
	}
	if slot < 0 || slot > model.MinutesPerDay {
		fields["slot_minutes"] = "must be in (0, 1440]"
	}
	if len(fields) > 0 {
		return model.AvailabilityWindow{}, &ValidationError{Fields: fields}
	}

	return model.AvailabilityWindow{
		ProfessionalID: in.ProfessionalID,
		TenantID:       in.TenantID,
		Day:            day,
		StartMinute:    in.StartMinute,
		EndMinute:      in.EndMinute,
		SlotMinutes:    slot,
		Active:         true,
	}, nil
}
