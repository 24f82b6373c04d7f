package mqtt

import "strings"

// DefaultTopicPrefix is used when the configured prefix is empty.
const DefaultTopicPrefix = "cse362"

// Topics builds CSE362 MQTT topic names under a configurable prefix.
//
//	topics := mqtt.NewTopics("cse362")
//	topics.AuthEvent("session_created") // "cse362/auth/events/session_created"
type Topics struct {
	prefix string
}

// NewTopics returns a topic builder rooted at prefix. Surrounding slashes are trimmed.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the root of every topic.
func (t Topics) Prefix() string {
	if t.prefix == "" {
		return DefaultTopicPrefix
	}
	return t.prefix
}

// AuthEvent returns the topic for a single auth event type.
//
// Example: cse362/auth/events/login_failed
func (t Topics) AuthEvent(event string) string {
	return t.Prefix() + "/auth/events/" + event
}

// AllAuthEvents returns a wildcard matching every auth event.
//
// Example: cse362/auth/events/+
func (t Topics) AllAuthEvents() string {
	return t.Prefix() + "/auth/events/+"
}

// SystemStatus returns the retained online/offline status topic.
//
// Example: cse362/system/status
func (t Topics) SystemStatus() string {
	return t.Prefix() + "/system/status"
}
