package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Connection Metrics
var (
	// ConnectionAttemptsTotal tracks connection attempts by how they ended
	ConnectionAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventsub_connection_attempts_total",
			Help: "EventSub connection attempts by outcome (reconnect, closed, error)",
		},
		[]string{"outcome"},
	)

	// ReconnectsTotal tracks reconnects by kind (graceful = server directive, unexpected = backoff path)
	ReconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventsub_reconnects_total",
			Help: "EventSub reconnects by kind",
		},
		[]string{"kind"},
	)

	// HandshakeDuration tracks time from dial to session_welcome
	HandshakeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eventsub_handshake_duration_seconds",
			Help:    "Time from dial to session_welcome in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// ListenersConnected tracks listeners currently holding a live session
	ListenersConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventsub_listeners_connected",
			Help: "Listeners currently holding a live EventSub session",
		},
	)
)

// Subscription Metrics
var (
	// SubscriptionsTotal tracks subscription registrations by credential mode and result
	SubscriptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventsub_subscriptions_total",
			Help: "Subscription registrations by credential mode and result",
		},
		[]string{"mode", "result"},
	)

	// SubscriptionsDropped tracks accounts beyond the per-connection capacity
	SubscriptionsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventsub_subscriptions_dropped_total",
			Help: "Accounts not subscribed because they exceed the per-connection limit",
		},
	)
)

// Dispatch Metrics
var (
	// FramesTotal tracks inbound frames by message type
	FramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventsub_frames_total",
			Help: "Inbound EventSub frames by message type",
		},
		[]string{"message_type"},
	)

	// NotificationsTotal tracks notification handling by result
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventsub_notifications_total",
			Help: "Notifications by result (dispatched, ignored, failed)",
		},
		[]string{"result"},
	)
)

// Token Metrics
var (
	// TokenLookupsTotal tracks token resolver lookups by source and result
	TokenLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_lookups_total",
			Help: "Token resolver lookups by source and result (hit, miss, error)",
		},
		[]string{"source", "result"},
	)
)

// Handler returns the HTTP handler exposing the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
