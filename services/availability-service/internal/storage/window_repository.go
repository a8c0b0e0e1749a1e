package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/md-rashed-zaman/bookwell/libs/db"
	"github.com/md-rashed-zaman/bookwell/services/availability-service/internal/calendar"
	"github.com/md-rashed-zaman/bookwell/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/bookwell/services/availability-service/internal/outbox"
)

// WindowRepository persists availability windows. Days are written as the local
// noon anchor of the configured location and read back as bare dates.
type WindowRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
	loc    *time.Location
}

func NewWindowRepository(pool *db.Pool, outboxRepo *outbox.Repository, loc *time.Location) *WindowRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &WindowRepository{pool: pool, outbox: outboxRepo, loc: loc}
}

type windowEvent struct {
	WindowID       string `json:"window_id"`
	ProfessionalID string `json:"professional_id"`
	TenantID       string `json:"tenant_id"`
	Date           string `json:"date"`
	StartMinute    int    `json:"start_minute"`
	EndMinute      int    `json:"end_minute"`
	SlotMinutes    int    `json:"slot_minutes"`
	OccurredAt     string `json:"occurred_at"`
}

const windowColumns = `id::text, professional_id, tenant_id, day, start_minute, end_minute, slot_minutes, active, created_at`

func (r *WindowRepository) date(d calendar.Day) pgtype.Date {
	return pgtype.Date{Time: d.Anchor(r.loc), Valid: true}
}

func scanWindow(row pgx.CollectableRow) (model.AvailabilityWindow, error) {
	var (
		w   model.AvailabilityWindow
		day pgtype.Date
	)
	if err := row.Scan(&w.ID, &w.ProfessionalID, &w.TenantID, &day, &w.StartMinute, &w.EndMinute, &w.SlotMinutes, &w.Active, &w.CreatedAt); err != nil {
		return model.AvailabilityWindow{}, err
	}
	w.Day = calendar.DayOf(day.Time)
	return w, nil
}

// PurgeExpired deletes active windows dated before today. An empty professionalID
// sweeps every professional. Each removed window emits an expired event.
func (r *WindowRepository) PurgeExpired(ctx context.Context, professionalID string, today calendar.Day) (int, error) {
	var purged int
	err := r.pool.InTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			DELETE FROM availability_windows
			WHERE active
				AND day < $1
				AND ($2::text = '' OR professional_id = $2::text)
			RETURNING `+windowColumns,
			r.date(today), professionalID)
		if err != nil {
			return err
		}
		expired, err := pgx.CollectRows(rows, scanWindow)
		if err != nil {
			return err
		}
		for _, w := range expired {
			if err := r.emit(ctx, tx, outbox.WindowExpired, w); err != nil {
				return err
			}
		}
		purged = len(expired)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("purge expired windows: %w", err)
	}
	return purged, nil
}

// ListForDay purges the professional's past windows and then returns the active
// windows of (professional, tenant, day) ordered by start minute.
func (r *WindowRepository) ListForDay(ctx context.Context, professionalID, tenantID string, day, today calendar.Day) ([]model.AvailabilityWindow, error) {
	if _, err := r.PurgeExpired(ctx, professionalID, today); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+windowColumns+`
		FROM availability_windows
		WHERE professional_id = $1
			AND tenant_id = $2
			AND day = $3
			AND active
		ORDER BY start_minute ASC
	`, professionalID, tenantID, r.date(day))
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}
	windows, err := pgx.CollectRows(rows, scanWindow)
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}
	return windows, nil
}

// ListAll returns every active window after a global purge.
func (r *WindowRepository) ListAll(ctx context.Context, today calendar.Day) ([]model.AvailabilityWindow, error) {
	if _, err := r.PurgeExpired(ctx, "", today); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+windowColumns+`
		FROM availability_windows
		WHERE active
		ORDER BY day ASC, professional_id ASC, start_minute ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list all windows: %w", err)
	}
	windows, err := pgx.CollectRows(rows, scanWindow)
	if err != nil {
		return nil, fmt.Errorf("list all windows: %w", err)
	}
	return windows, nil
}

// Create inserts w unless an active window of the same professional and day
// intersects it, boundaries included. The lookup is a fast path; concurrent
// creates that slip past it are rejected by the exclusion constraint (23P01).
func (r *WindowRepository) Create(ctx context.Context, w model.AvailabilityWindow) (model.AvailabilityWindow, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	w.Active = true

	err := r.pool.InTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT `+windowColumns+`
			FROM availability_windows
			WHERE professional_id = $1
				AND day = $2
				AND active
		`, w.ProfessionalID, r.date(w.Day))
		if err != nil {
			return err
		}
		sameDay, err := pgx.CollectRows(rows, scanWindow)
		if err != nil {
			return err
		}
		for _, existing := range sameDay {
			if existing.Intersects(w.StartMinute, w.EndMinute) {
				return model.ErrConflict
			}
		}

		if err := tx.QueryRow(ctx, `
			INSERT INTO availability_windows
				(id, professional_id, tenant_id, day, start_minute, end_minute, slot_minutes, active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, true)
			RETURNING created_at
		`, w.ID, w.ProfessionalID, w.TenantID, r.date(w.Day), w.StartMinute, w.EndMinute, w.SlotMinutes).Scan(&w.CreatedAt); err != nil {
			return err
		}
		return r.emit(ctx, tx, outbox.WindowCreated, w)
	})
	switch {
	case err == nil:
		return w, nil
	case errors.Is(err, model.ErrConflict), IsOverlap(err):
		return model.AvailabilityWindow{}, model.ErrConflict
	default:
		return model.AvailabilityWindow{}, fmt.Errorf("create window: %w", err)
	}
}

// Delete removes the window only when professionalID owns it.
func (r *WindowRepository) Delete(ctx context.Context, professionalID, windowID string) error {
	err := r.pool.InTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			DELETE FROM availability_windows
			WHERE id = $1 AND professional_id = $2
			RETURNING `+windowColumns,
			windowID, professionalID)
		if err != nil {
			return err
		}
		w, err := pgx.CollectExactlyOneRow(rows, scanWindow)
		if err != nil {
			return err
		}
		return r.emit(ctx, tx, outbox.WindowDeleted, w)
	})
	switch {
	case err == nil:
		return nil
	case IsNotFound(err):
		return model.ErrNotFound
	default:
		return fmt.Errorf("delete window: %w", err)
	}
}

func (r *WindowRepository) emit(ctx context.Context, tx pgx.Tx, eventType string, w model.AvailabilityWindow) error {
	payload, err := json.Marshal(windowEvent{
		WindowID:       w.ID,
		ProfessionalID: w.ProfessionalID,
		TenantID:       w.TenantID,
		Date:           w.Day.String(),
		StartMinute:    w.StartMinute,
		EndMinute:      w.EndMinute,
		SlotMinutes:    w.SlotMinutes,
		OccurredAt:     time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return r.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: outbox.AggregateWindow,
		AggregateID:   w.ID,
		EventType:     eventType,
		Payload:       payload,
	})
}
