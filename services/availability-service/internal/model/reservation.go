package model

const (
	ReservationPending    = "pending"
	ReservationInProgress = "in_progress"
	ReservationCompleted  = "completed"
	ReservationCancelled  = "cancelled"
)

// OccupyingStatuses are the reservation statuses that hold a professional's time.
var OccupyingStatuses = []string{ReservationPending, ReservationInProgress}

// Reservation is the read-only projection of a booking needed to compute occupancy.
type Reservation struct {
	ID        string
	StartTime string // "HH:MM"
	Status    string
}

// Service is the read-only projection of a catalog entry.
type Service struct {
	ID              string
	TenantID        string
	DurationMinutes int
	Active          bool
}

const (
	TenantActive  = "active"
	TenantOverdue = "overdue"
	TenantBlocked = "blocked"
)

type TenantStatus struct {
	TenantID string
	Status   string
}
