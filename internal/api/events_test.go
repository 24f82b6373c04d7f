package api

import (
	"errors"
	"testing"

	"github.com/MrMouse2405/CSE362/internal/metrics"
)

type recordingBus struct {
	events []string
	err    error
}

func (b *recordingBus) PublishEvent(event string, _ any) error {
	b.events = append(b.events, event)
	return b.err
}

type recordingTelemetry struct {
	points [][2]string
}

func (t *recordingTelemetry) WriteAuthEvent(event, outcome string) {
	t.points = append(t.points, [2]string{event, outcome})
}

type recordingWarn struct{ n int }

func (l *recordingWarn) Warn(string, ...any) { l.n++ }

func TestNewEventPublisherNop(t *testing.T) {
	if _, ok := NewEventPublisher(nil, nil, nil).(NopPublisher); !ok {
		t.Error("NewEventPublisher(nil, nil) should return NopPublisher")
	}
}

func TestFanOut(t *testing.T) {
	bus := &recordingBus{}
	tel := &recordingTelemetry{}
	pub := NewEventPublisher(bus, tel, nil)

	pub.Publish(AuthEvent{Event: EventSessionCreated, UserID: 1})
	pub.Publish(AuthEvent{Event: EventLoginFailed, Outcome: metrics.OutcomeFailure})

	if len(bus.events) != 2 || bus.events[0] != EventSessionCreated {
		t.Errorf("bus events = %v", bus.events)
	}
	want := [][2]string{
		{EventSessionCreated, metrics.OutcomeSuccess},
		{EventLoginFailed, metrics.OutcomeFailure},
	}
	if len(tel.points) != len(want) {
		t.Fatalf("telemetry points = %v", tel.points)
	}
	for i := range want {
		if tel.points[i] != want[i] {
			t.Errorf("point[%d] = %v, want %v", i, tel.points[i], want[i])
		}
	}
}

func TestFanOutLogsBusErrors(t *testing.T) {
	logger := &recordingWarn{}
	pub := NewEventPublisher(&recordingBus{err: errors.New("not connected")}, nil, logger)

	pub.Publish(AuthEvent{Event: EventUserDeleted})

	if logger.n != 1 {
		t.Errorf("warnings = %d, want 1", logger.n)
	}
}
