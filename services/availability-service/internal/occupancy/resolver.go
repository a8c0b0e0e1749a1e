package occupancy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/md-rashed-zaman/bookwell/services/availability-service/internal/calendar"
	"github.com/md-rashed-zaman/bookwell/services/availability-service/internal/model"
)

// ReservationSource lists a professional's reservations on a day whose status is one of statuses.
type ReservationSource interface {
	ListReservations(ctx context.Context, professionalID, tenantID string, day calendar.Day, statuses []string) ([]model.Reservation, error)
}

type Resolver struct {
	source ReservationSource
	logger *slog.Logger
}

func NewResolver(source ReservationSource, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{source: source, logger: logger}
}

// OccupiedOffsets returns the start minute of every pending or in-progress
// reservation. Only start offsets are recorded; the slot generator probes
// candidate spans against them.
func (r *Resolver) OccupiedOffsets(ctx context.Context, professionalID, tenantID string, day calendar.Day) (map[int]struct{}, error) {
	reservations, err := r.source.ListReservations(ctx, professionalID, tenantID, day, model.OccupyingStatuses)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}

	occupied := make(map[int]struct{}, len(reservations))
	for _, res := range reservations {
		if !occupies(res.Status) {
			continue
		}
		minute, err := calendar.ParseClock(res.StartTime)
		if err != nil {
			r.logger.Warn("skipping reservation with unparseable start time",
				"reservation_id", res.ID, "start_time", res.StartTime, "err", err)
			continue
		}
		occupied[minute] = struct{}{}
	}
	return occupied, nil
}

func occupies(status string) bool {
	for _, s := range model.OccupyingStatuses {
		if s == status {
			return true
		}
	}
	return false
}
