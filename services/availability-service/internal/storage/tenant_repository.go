package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/bookwell/libs/db"
	"github.com/md-rashed-zaman/bookwell/services/availability-service/internal/model"
)

// TenantRepository keeps the local read model of tenant billing status.
type TenantRepository struct {
	pool *db.Pool
}

func NewTenantRepository(pool *db.Pool) *TenantRepository {
	return &TenantRepository{pool: pool}
}

// Status returns model.TenantActive for tenants this service has not heard about.
func (r *TenantRepository) Status(ctx context.Context, tenantID string) (string, error) {
	var status string
	err := r.pool.QueryRow(ctx, `SELECT status FROM tenant_status WHERE tenant_id = $1`, tenantID).Scan(&status)
	if err != nil {
		if IsNotFound(err) {
			return model.TenantActive, nil
		}
		return "", fmt.Errorf("tenant status: %w", err)
	}
	return status, nil
}

// Upsert applies a status change unless a newer one has already been stored.
func (r *TenantRepository) Upsert(ctx context.Context, ts model.TenantStatus, updatedAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tenant_status (tenant_id, status, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id) DO UPDATE
		SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
		WHERE tenant_status.updated_at <= EXCLUDED.updated_at
	`, ts.TenantID, ts.Status, updatedAt)
	if err != nil {
		return fmt.Errorf("upsert tenant status: %w", err)
	}
	return nil
}
