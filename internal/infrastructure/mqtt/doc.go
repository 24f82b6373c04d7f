// Package mqtt publishes CSE362 auth events to an MQTT broker.
//
// This package manages:
//   - Connection to a Mosquitto broker with auto-reconnect
//   - Event publishing with a configurable QoS
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health checks
//
// # Topics
//
// All topics live under a configurable prefix (default "cse362"):
//
//	{prefix}/system/status          retained online/offline status
//	{prefix}/auth/events/{event}    login, logout and session events
//
// # Security Considerations
//
//   - Enable TLS outside of development (cfg.Broker.TLS=true)
//   - Payloads never contain passwords, tokens or secret hashes
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return fmt.Errorf("mqtt connect: %w", err)
//	}
//	defer client.Close()
//
//	err = client.PublishEvent("login_succeeded", event)
package mqtt
