package eventsub

import (
	"encoding/json"
	"time"
)

// DefaultURL is the public EventSub WebSocket endpoint.
const DefaultURL = "wss://eventsub.wss.twitch.tv/ws"

// MaxSubscriptionsPerConnection is the server-side cap of enabled
// subscriptions on one WebSocket session.
const MaxSubscriptionsPerConnection = 30

// Message types carried in metadata.message_type.
const (
	MessageTypeWelcome      = "session_welcome"
	MessageTypeKeepalive    = "session_keepalive"
	MessageTypeReconnect    = "session_reconnect"
	MessageTypeNotification = "notification"
	MessageTypeRevocation   = "revocation"
)

// Subscription types and versions.
const (
	SubscriptionTypeStreamOnline    = "stream.online"
	SubscriptionVersionStreamOnline = "1"
)

// Envelope is the outer shape of every frame sent by the server.
type Envelope struct {
	Metadata Metadata        `json:"metadata"`
	Payload  json.RawMessage `json:"payload"`
}

// Metadata identifies a frame. Timestamps are kept as sent; a bad one must not
// make the frame undecodable.
type Metadata struct {
	MessageID           string `json:"message_id"`
	MessageType         string `json:"message_type"`
	MessageTimestamp    string `json:"message_timestamp"`
	SubscriptionType    string `json:"subscription_type,omitempty"`
	SubscriptionVersion string `json:"subscription_version,omitempty"`
}

// SessionPayload is the payload of session_welcome and session_reconnect.
type SessionPayload struct {
	Session SessionInfo `json:"session"`
}

// SessionInfo describes a server-side WebSocket session.
type SessionInfo struct {
	ID                      string `json:"id"`
	Status                  string `json:"status"`
	KeepaliveTimeoutSeconds int    `json:"keepalive_timeout_seconds"`
	ReconnectURL            string `json:"reconnect_url"`
	ConnectedAt             string `json:"connected_at"`
}

// NotificationPayload is the payload of notification and revocation frames.
// Event is absent on revocations.
type NotificationPayload struct {
	Subscription SubscriptionInfo `json:"subscription"`
	Event        json.RawMessage  `json:"event,omitempty"`
}

// SubscriptionInfo describes the subscription a notification belongs to.
type SubscriptionInfo struct {
	ID        string            `json:"id"`
	Status    string            `json:"status"`
	Type      string            `json:"type"`
	Version   string            `json:"version"`
	Condition map[string]string `json:"condition"`
	CreatedAt string            `json:"created_at"`
}

// StreamOnlineEvent is the event body of a stream.online notification.
type StreamOnlineEvent struct {
	ID                   string `json:"id"`
	BroadcasterUserID    string `json:"broadcaster_user_id"`
	BroadcasterUserLogin string `json:"broadcaster_user_login"`
	BroadcasterUserName  string `json:"broadcaster_user_name"`
	Type                 string `json:"type"` // "live", "playlist", "watch_party", ...
	StartedAt            string `json:"started_at"`
}

// ParseTimestamp parses an RFC 3339 timestamp from a frame. It returns the
// zero time when s is empty or malformed.
func ParseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// DecodeEnvelope parses a raw frame.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}
