package storage

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/bookwell/libs/db"
	"github.com/md-rashed-zaman/bookwell/services/availability-service/internal/calendar"
	"github.com/md-rashed-zaman/bookwell/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/bookwell/services/availability-service/internal/outbox"
)

// openTestPool connects to TEST_DATABASE_URL, skipping the test when it is unset.
func openTestPool(t *testing.T) *db.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.Open(ctx, url, db.PoolConfig{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := EnsureSchema(ctx, pool); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return pool
}

func newWindow(pro string, day calendar.Day, start, end int) model.AvailabilityWindow {
	return model.AvailabilityWindow{
		ProfessionalID: pro,
		TenantID:       "tenant-" + pro,
		Day:            day,
		StartMinute:    start,
		EndMinute:      end,
		SlotMinutes:    30,
	}
}

func TestWindowRepository_CreateConflictAndList(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	repo := NewWindowRepository(pool, outbox.NewRepository(pool), time.UTC)

	pro := uuid.NewString()
	day := calendar.Day{Year: 2099, Month: time.March, Day: 3}
	today := calendar.Day{Year: 2099, Month: time.March, Day: 1}

	created, err := repo.Create(ctx, newWindow(pro, day, 540, 600))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.Day != day {
		t.Fatalf("unexpected window %+v", created)
	}

	// Touching at 10:00 is a conflict.
	if _, err := repo.Create(ctx, newWindow(pro, day, 600, 660)); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := repo.Create(ctx, newWindow(pro, day, 601, 660)); err != nil {
		t.Fatalf("create adjacent: %v", err)
	}

	windows, err := repo.ListForDay(ctx, pro, "tenant-"+pro, day, today)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(windows) != 2 || windows[0].StartMinute != 540 || windows[1].StartMinute != 601 {
		t.Fatalf("unexpected windows %+v", windows)
	}
}

func TestWindowRepository_ConcurrentCreateAdmitsOne(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	repo := NewWindowRepository(pool, nil, time.UTC)

	pro := uuid.NewString()
	day := calendar.Day{Year: 2099, Month: time.April, Day: 4}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			_, err := repo.Create(ctx, newWindow(pro, day, 540+offset, 600+offset))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			if !errors.Is(err, model.ErrConflict) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if succeeded != 1 {
		t.Fatalf("expected exactly one window to be created, got %d", succeeded)
	}
}

func TestWindowRepository_ConcurrentDisjointCreatesAllSucceed(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	repo := NewWindowRepository(pool, outbox.NewRepository(pool), time.UTC)

	pro := uuid.NewString()
	day := calendar.Day{Year: 2099, Month: time.April, Day: 5}

	const n = 12
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Create(ctx, newWindow(pro, day, 60*i, 60*i+30))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("disjoint create failed: %v", err)
		}
	}

	got, err := repo.ListForDay(ctx, pro, "tenant-"+pro, day, day)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != n {
		t.Fatalf("expected %d windows, got %d", n, len(got))
	}
}

func TestWindowRepository_PurgeAndDelete(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	repo := NewWindowRepository(pool, outbox.NewRepository(pool), time.UTC)

	pro := uuid.NewString()
	past := calendar.Day{Year: 2000, Month: time.January, Day: 1}
	future := calendar.Day{Year: 2099, Month: time.January, Day: 1}
	today := calendar.Day{Year: 2050, Month: time.June, Day: 15}

	if _, err := repo.Create(ctx, newWindow(pro, past, 540, 600)); err != nil {
		t.Fatalf("create past: %v", err)
	}
	kept, err := repo.Create(ctx, newWindow(pro, future, 540, 600))
	if err != nil {
		t.Fatalf("create future: %v", err)
	}

	if _, err := repo.ListForDay(ctx, pro, "tenant-"+pro, future, today); err != nil {
		t.Fatalf("list: %v", err)
	}
	past2, err := repo.ListForDay(ctx, pro, "tenant-"+pro, past, today)
	if err != nil {
		t.Fatalf("list past: %v", err)
	}
	if len(past2) != 0 {
		t.Fatalf("expected past window to be purged, got %+v", past2)
	}

	if err := repo.Delete(ctx, "someone-else", kept.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found for other owner, got %v", err)
	}
	if err := repo.Delete(ctx, pro, "not-a-uuid"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found for malformed id, got %v", err)
	}
	if err := repo.Delete(ctx, pro, kept.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, pro, kept.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestTenantRepository_DefaultsToActive(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	repo := NewTenantRepository(pool)

	tenant := uuid.NewString()
	status, err := repo.Status(ctx, tenant)
	if err != nil || status != model.TenantActive {
		t.Fatalf("expected active default, got %q, %v", status, err)
	}

	now := time.Now().UTC()
	if err := repo.Upsert(ctx, model.TenantStatus{TenantID: tenant, Status: model.TenantBlocked}, now); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// Older update is ignored.
	if err := repo.Upsert(ctx, model.TenantStatus{TenantID: tenant, Status: model.TenantActive}, now.Add(-time.Minute)); err != nil {
		t.Fatalf("upsert stale: %v", err)
	}
	status, err = repo.Status(ctx, tenant)
	if err != nil || status != model.TenantBlocked {
		t.Fatalf("expected blocked, got %q, %v", status, err)
	}
}
