// Package scheduling exposes the availability operations used by the transport
// layer: window management and slot computation.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/bookwell/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/bookwell/services/availability-service/internal/calendar"
	"github.com/md-rashed-zaman/bookwell/services/availability-service/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type WindowStore interface {
	ListForDay(ctx context.Context, professionalID, tenantID string, day, today calendar.Day) ([]model.AvailabilityWindow, error)
	ListAll(ctx context.Context, today calendar.Day) ([]model.AvailabilityWindow, error)
	Create(ctx context.Context, w model.AvailabilityWindow) (model.AvailabilityWindow, error)
	Delete(ctx context.Context, professionalID, windowID string) error
}

type ServiceCatalog interface {
	GetService(ctx context.Context, tenantID, serviceID string) (model.Service, error)
}

type OccupancyResolver interface {
	OccupiedOffsets(ctx context.Context, professionalID, tenantID string, day calendar.Day) (map[int]struct{}, error)
}

type Config struct {
	// Location is the wall-clock zone of the deployment. Defaults to UTC.
	Location *time.Location
	// Now defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

type Service struct {
	windows   WindowStore
	catalog   ServiceCatalog
	occupancy OccupancyResolver
	loc       *time.Location
	now       func() time.Time
	logger    *slog.Logger
	tracer    trace.Tracer
}

func NewService(windows WindowStore, catalog ServiceCatalog, occupancy OccupancyResolver, cfg Config) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		windows:   windows,
		catalog:   catalog,
		occupancy: occupancy,
		loc:       cfg.Location,
		now:       cfg.Now,
		logger:    cfg.Logger,
		tracer:    otel.Tracer("availability-service/scheduling"),
	}
}

// Now is the current instant in the service's location.
func (s *Service) Now() time.Time {
	return s.now().In(s.loc)
}

func (s *Service) today() calendar.Day {
	return calendar.DayOf(s.Now())
}

type CreateWindowInput struct {
	ProfessionalID string
	TenantID       string
	Date           string
	StartMinute    int
	EndMinute      int
	// SlotMinutes of zero selects model.DefaultSlotMinutes.
	SlotMinutes int
}

func (s *Service) CreateWindow(ctx context.Context, in CreateWindowInput) (model.AvailabilityWindow, error) {
	ctx, span := s.tracer.Start(ctx, "availability.create_window", trace.WithAttributes(
		attribute.String("professional.id", in.ProfessionalID),
		attribute.String("availability.date", in.Date),
	))
	defer span.End()

	w, err := validateWindow(in)
	if err != nil {
		return model.AvailabilityWindow{}, s.fail(span, err)
	}

	created, err := s.windows.Create(ctx, w)
	if err != nil {
		return model.AvailabilityWindow{}, s.fail(span, s.storageError("create window", err))
	}
	s.logger.Info("availability window created",
		"window_id", created.ID,
		"professional_id", created.ProfessionalID,
		"date", created.Day.String(),
		"start_minute", created.StartMinute,
		"end_minute", created.EndMinute,
	)
	return created, nil
}

func (s *Service) ListWindows(ctx context.Context, professionalID, tenantID, date string) ([]model.AvailabilityWindow, error) {
	ctx, span := s.tracer.Start(ctx, "availability.list_windows", trace.WithAttributes(
		attribute.String("professional.id", professionalID),
		attribute.String("availability.date", date),
	))
	defer span.End()

	if err := requireIdentity(professionalID, tenantID); err != nil {
		return nil, s.fail(span, err)
	}
	day, err := parseDay(date)
	if err != nil {
		return nil, s.fail(span, err)
	}

	windows, err := s.windows.ListForDay(ctx, professionalID, tenantID, day, s.today())
	if err != nil {
		return nil, s.fail(span, s.storageError("list windows", err))
	}
	return windows, nil
}

// ListAllWindows is the unscoped administrative listing.
func (s *Service) ListAllWindows(ctx context.Context) ([]model.AvailabilityWindow, error) {
	ctx, span := s.tracer.Start(ctx, "availability.list_all_windows")
	defer span.End()

	windows, err := s.windows.ListAll(ctx, s.today())
	if err != nil {
		return nil, s.fail(span, s.storageError("list all windows", err))
	}
	return windows, nil
}

func (s *Service) DeleteWindow(ctx context.Context, professionalID, windowID string) error {
	ctx, span := s.tracer.Start(ctx, "availability.delete_window", trace.WithAttributes(
		attribute.String("professional.id", professionalID),
		attribute.String("window.id", windowID),
	))
	defer span.End()

	if professionalID == "" || windowID == "" {
		return s.fail(span, &ValidationError{Fields: map[string]string{"id": "required"}})
	}
	if err := s.windows.Delete(ctx, professionalID, windowID); err != nil {
		return s.fail(span, s.storageError("delete window", err))
	}
	s.logger.Info("availability window deleted", "window_id", windowID, "professional_id", professionalID)
	return nil
}

type SlotQuery struct {
	ProfessionalID string
	TenantID       string
	ServiceID      string
	Date           string
}

// ComputeSlots lists the bookable "HH:MM" start times for the query at instant now.
func (s *Service) ComputeSlots(ctx context.Context, q SlotQuery, now time.Time) ([]string, error) {
	ctx, span := s.tracer.Start(ctx, "availability.compute_slots", trace.WithAttributes(
		attribute.String("professional.id", q.ProfessionalID),
		attribute.String("service.id", q.ServiceID),
		attribute.String("availability.date", q.Date),
	))
	defer span.End()

	fields := map[string]string{}
	if q.ProfessionalID == "" {
		fields["professional_id"] = "required"
	}
	if q.TenantID == "" {
		fields["tenant_id"] = "required"
	}
	if q.ServiceID == "" {
		fields["service_id"] = "required"
	}
	if len(fields) > 0 {
		return nil, s.fail(span, &ValidationError{Fields: fields})
	}
	day, err := parseDay(q.Date)
	if err != nil {
		return nil, s.fail(span, err)
	}

	svc, err := s.catalog.GetService(ctx, q.TenantID, q.ServiceID)
	if err != nil {
		return nil, s.fail(span, s.storageError("get service", err))
	}
	if !svc.Active || svc.DurationMinutes <= 0 {
		return nil, s.fail(span, fmt.Errorf("service %s: %w", q.ServiceID, model.ErrNotFound))
	}

	now = now.In(s.loc)
	windows, err := s.windows.ListForDay(ctx, q.ProfessionalID, q.TenantID, day, calendar.DayOf(now))
	if err != nil {
		return nil, s.fail(span, s.storageError("list windows", err))
	}
	if len(windows) == 0 {
		return []string{}, nil
	}

	occupied, err := s.occupancy.OccupiedOffsets(ctx, q.ProfessionalID, q.TenantID, day)
	if err != nil {
		return nil, s.fail(span, s.storageError("resolve occupancy", err))
	}

	spans := make([]availability.Window, 0, len(windows))
	for _, w := range windows {
		spans = append(spans, availability.Window{Start: w.StartMinute, End: w.EndMinute, Step: w.SlotMinutes})
	}
	slots := availability.ComputeSlots(spans, occupied, svc.DurationMinutes, day, now)
	span.SetAttributes(attribute.Int("availability.slot_count", len(slots)))
	return slots, nil
}

// storageError passes domain errors through and wraps anything else as a storage failure.
func (s *Service) storageError(op string, err error) error {
	for _, known := range []error{model.ErrConflict, model.ErrNotFound, model.ErrInvalidInput} {
		if errors.Is(err, known) {
			return err
		}
	}
	s.logger.Error("availability storage failure", "op", op, "err", err)
	return fmt.Errorf("%s: %w: %w", op, model.ErrStorage, err)
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
