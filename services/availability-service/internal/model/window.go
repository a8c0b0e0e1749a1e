package model

import (
	"time"

	"github.com/md-rashed-zaman/bookwell/services/availability-service/internal/calendar"
)

const (
	MinutesPerDay      = 24 * 60
	DefaultSlotMinutes = 30
)

// AvailabilityWindow is a span of one calendar day, in minutes since local
// midnight, during which a professional accepts bookings.
type AvailabilityWindow struct {
	ID             string
	ProfessionalID string
	TenantID       string
	Day            calendar.Day
	StartMinute    int
	EndMinute      int
	SlotMinutes    int
	Active         bool
	CreatedAt      time.Time
}

// Intersects uses the boundary-inclusive rule: windows that only touch still conflict.
func (w AvailabilityWindow) Intersects(startMinute, endMinute int) bool {
	return w.StartMinute <= endMinute && w.EndMinute >= startMinute
}
