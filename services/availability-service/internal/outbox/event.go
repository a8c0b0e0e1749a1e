package outbox

// Event is the envelope written to outbox_events. The Kafka topic equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	AggregateWindow = "availability_window"

	WindowCreated = "availability.window.created.v1"
	WindowDeleted = "availability.window.deleted.v1"
	WindowExpired = "availability.window.expired.v1"
)
