package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// AuthEventsMeasurement is the measurement every auth event is written to.
const AuthEventsMeasurement = "auth_events"

// WriteAuthEvent records one auth event, such as ("login", "failure").
// The write is buffered; nothing is sent when the client is not connected.
func (c *Client) WriteAuthEvent(event, outcome string) {
	c.WriteAuthEventAt(event, outcome, time.Now())
}

// WriteAuthEventAt is WriteAuthEvent with an explicit timestamp.
func (c *Client) WriteAuthEventAt(event, outcome string, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(authEventPoint(event, outcome, at))
}

// WriteSweep records how many expired sessions a sweep removed.
func (c *Client) WriteSweep(removed int64) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(
		"session_sweeps",
		nil,
		map[string]any{"removed": removed},
		time.Now(),
	))
}

// authEventPoint builds an auth_events point. Tags stay low cardinality;
// user ids and session ids are never written.
func authEventPoint(event, outcome string, at time.Time) *write.Point {
	return write.NewPoint(
		AuthEventsMeasurement,
		map[string]string{
			"event":   event,
			"outcome": outcome,
		},
		map[string]any{
			"count": int64(1),
		},
		at,
	)
}
