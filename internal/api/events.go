package api

import (
	"time"

	"github.com/MrMouse2405/CSE362/internal/metrics"
)

// Auth event names published on the event bus.
const (
	EventSessionCreated = "session_created"
	EventSessionRevoked = "session_revoked"
	EventLoginFailed    = "login_failed"
	EventUserCreated    = "user_created"
	EventUserDeleted    = "user_deleted"
)

// AuthEvent is the payload published for every auth event. It never
// carries passwords, tokens or secret hashes.
type AuthEvent struct {
	Event     string    `json:"event"`
	Outcome   string    `json:"outcome"`
	UserID    int64     `json:"user_id,omitempty"`
	Username  string    `json:"username,omitempty"`
	Role      string    `json:"role,omitempty"`
	Count     int64     `json:"count,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventPublisher receives auth events. Publish must not block the request
// for long and must not fail it; implementations log their own errors.
type EventPublisher interface {
	Publish(event AuthEvent)
}

// NopPublisher discards every event.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(AuthEvent) {}

// EventBus is the slice of the MQTT client used for events.
type EventBus interface {
	PublishEvent(event string, payload any) error
}

// Telemetry is the slice of the InfluxDB client used for events.
type Telemetry interface {
	WriteAuthEvent(event, outcome string)
}

// eventLogger is the subset of a logger fanOut needs.
type eventLogger interface {
	Warn(msg string, args ...any)
}

// fanOut publishes each event to the bus and to telemetry. Either may be nil.
type fanOut struct {
	bus       EventBus
	telemetry Telemetry
	logger    eventLogger
}

// NewEventPublisher combines an MQTT bus and InfluxDB telemetry into one
// publisher. When both are nil it returns NopPublisher.
func NewEventPublisher(bus EventBus, telemetry Telemetry, logger eventLogger) EventPublisher {
	if bus == nil && telemetry == nil {
		return NopPublisher{}
	}
	return &fanOut{bus: bus, telemetry: telemetry, logger: logger}
}

// Publish implements EventPublisher.
func (f *fanOut) Publish(event AuthEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Outcome == "" {
		event.Outcome = metrics.OutcomeSuccess
	}

	if f.telemetry != nil {
		f.telemetry.WriteAuthEvent(event.Event, event.Outcome)
	}
	if f.bus != nil {
		if err := f.bus.PublishEvent(event.Event, event); err != nil && f.logger != nil {
			f.logger.Warn("auth event not published", "event", event.Event, "error", err)
		}
	}
}
