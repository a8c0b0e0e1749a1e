package storage

import (
	"context"
	"fmt"

	"github.com/md-rashed-zaman/bookwell/libs/db"
	"github.com/md-rashed-zaman/bookwell/services/availability-service/internal/model"
)

type CatalogRepository struct {
	pool *db.Pool
}

func NewCatalogRepository(pool *db.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// GetService returns the tenant's service. A missing row maps to model.ErrNotFound;
// inactive services are returned as-is for the caller to judge.
func (r *CatalogRepository) GetService(ctx context.Context, tenantID, serviceID string) (model.Service, error) {
	var svc model.Service
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, duration_minutes, active
		FROM services
		WHERE id = $1 AND tenant_id = $2
	`, serviceID, tenantID).Scan(&svc.ID, &svc.TenantID, &svc.DurationMinutes, &svc.Active)
	if err != nil {
		if IsNotFound(err) {
			return model.Service{}, model.ErrNotFound
		}
		return model.Service{}, fmt.Errorf("get service: %w", err)
	}
	return svc, nil
}
