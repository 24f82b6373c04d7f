// Package influxdb writes CSE362 auth telemetry to InfluxDB v2.
//
// Each login, logout and session event becomes a point in the auth_events
// measurement tagged with the event name and its outcome. Writes are
// batched and non-blocking; a disabled or unreachable server never slows
// down a request.
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	client.WriteAuthEvent("login", "success")
package influxdb
