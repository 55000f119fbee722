package api

import "time"

// TransportWebSocket is the EventSub transport method for WebSocket sessions.
const TransportWebSocket = "websocket"

// Transport is where EventSub delivers notifications.
type Transport struct {
	Method         string     `json:"method"`
	SessionID      string     `json:"session_id,omitempty"`
	ConnectedAt    *time.Time `json:"connected_at,omitempty"`
	DisconnectedAt *time.Time `json:"disconnected_at,omitempty"`
}

// CreateSubscriptionParams is the body of POST /eventsub/subscriptions.
type CreateSubscriptionParams struct {
	Type      string            `json:"type"`
	Version   string            `json:"version"`
	Condition map[string]string `json:"condition"`
	Transport Transport         `json:"transport"`
}

// Subscription is an EventSub subscription as returned by Helix.
type Subscription struct {
	ID        string            `json:"id"`
	Status    string            `json:"status"`
	Type      string            `json:"type"`
	Version   string            `json:"version"`
	Condition map[string]string `json:"condition"`
	Transport Transport         `json:"transport"`
	CreatedAt time.Time         `json:"created_at"`
	Cost      int               `json:"cost"`
}

// SubscriptionsResponse is the envelope of the subscription endpoints.
type SubscriptionsResponse struct {
	Data         []Subscription `json:"data"`
	Total        int            `json:"total"`
	TotalCost    int            `json:"total_cost"`
	MaxTotalCost int            `json:"max_total_cost"`
}

// User is a Helix user.
type User struct {
	ID              string    `json:"id"`
	Login           string    `json:"login"`
	DisplayName     string    `json:"display_name"`
	Type            string    `json:"type"`
	BroadcasterType string    `json:"broadcaster_type"`
	CreatedAt       time.Time `json:"created_at"`
}

// UsersResponse is the envelope of GET /users.
type UsersResponse struct {
	Data []User `json:"data"`
}
