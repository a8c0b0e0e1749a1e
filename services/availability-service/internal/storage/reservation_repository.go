package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/md-rashed-zaman/bookwell/libs/db"
	"github.com/md-rashed-zaman/bookwell/services/availability-service/internal/calendar"
	"github.com/md-rashed-zaman/bookwell/services/availability-service/internal/model"
)

// ReservationRepository reads the reservations projection. Rows are owned by the
// booking side; this service never writes them.
type ReservationRepository struct {
	pool *db.Pool
	loc  *time.Location
}

func NewReservationRepository(pool *db.Pool, loc *time.Location) *ReservationRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &ReservationRepository{pool: pool, loc: loc}
}

func (r *ReservationRepository) ListReservations(ctx context.Context, professionalID, tenantID string, day calendar.Day, statuses []string) ([]model.Reservation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, start_time, status
		FROM reservations
		WHERE professional_id = $1
			AND tenant_id = $2
			AND day = $3
			AND status = ANY($4)
		ORDER BY start_time ASC
	`, professionalID, tenantID, pgtype.Date{Time: day.Anchor(r.loc), Valid: true}, statuses)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Reservation, error) {
		var res model.Reservation
		err := row.Scan(&res.ID, &res.StartTime, &res.Status)
		return res, err
	})
}
