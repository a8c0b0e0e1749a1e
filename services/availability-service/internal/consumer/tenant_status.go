package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/md-rashed-zaman/bookwell/services/availability-service/internal/model"
	"github.com/segmentio/kafka-go"
)

type TenantStatusWriter interface {
	Upsert(ctx context.Context, ts model.TenantStatus, updatedAt time.Time) error
}

type tenantStatusEvent struct {
	TenantID  string `json:"tenant_id"`
	Status    string `json:"status"`
	UpdatedAt string `json:"updated_at"`
}

// TenantStatusHandler applies billing.tenant.status events to the local read model.
// Malformed events are logged and dropped; only store failures are returned.
func TenantStatusHandler(store TenantStatusWriter, logger *slog.Logger) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt tenantStatusEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Error("invalid tenant status event", "err", err)
			return nil
		}
		evt.TenantID = strings.TrimSpace(evt.TenantID)
		evt.Status = strings.ToLower(strings.TrimSpace(evt.Status))
		if evt.TenantID == "" {
			logger.Error("tenant status event missing tenant_id")
			return nil
		}
		switch evt.Status {
		case model.TenantActive, model.TenantOverdue, model.TenantBlocked:
		default:
			logger.Warn("unknown tenant status ignored", "tenant_id", evt.TenantID, "status", evt.Status)
			return nil
		}

		updatedAt := msg.Time
		if evt.UpdatedAt != "" {
			if t, err := time.Parse(time.RFC3339, evt.UpdatedAt); err == nil {
				updatedAt = t
			}
		}
		if updatedAt.IsZero() {
			updatedAt = time.Now()
		}

		if err := store.Upsert(ctx, model.TenantStatus{TenantID: evt.TenantID, Status: evt.Status}, updatedAt.UTC()); err != nil {
			return err
		}
		logger.Info("tenant status updated", "tenant_id", evt.TenantID, "status", evt.Status)
		return nil
	}
}
