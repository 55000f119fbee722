package eventsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/livewatch/internal/connection"
	"github.com/rickgao/livewatch/internal/metrics"
)

// Online reports that an account went live.
type Online struct {
	AccountID   string
	Handle      string // login name, may be empty
	DisplayName string
	StreamType  string
	StartedAt   time.Time
	ReceivedAt  time.Time
}

// Handler receives stream.online notifications. It runs on the listener's
// goroutine and must return before the next frame is processed. Errors and
// panics are logged and do not end the connection.
type Handler interface {
	HandleOnline(ctx context.Context, ev Online) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev Online) error

// HandleOnline calls f(ctx, ev).
func (f HandlerFunc) HandleOnline(ctx context.Context, ev Online) error {
	return f(ctx, ev)
}

// dispatcher classifies inbound frames for one listener.
type dispatcher struct {
	handler Handler
	logger  *slog.Logger
}

// dispatch handles one frame. It returns the reconnect URL and true when the
// frame is a session_reconnect; every other frame kind continues the loop.
func (d *dispatcher) dispatch(ctx context.Context, msg connection.TimestampedMessage) (string, bool) {
	env, err := DecodeEnvelope(msg.Data)
	if err != nil {
		metrics.FramesTotal.WithLabelValues("malformed").Inc()
		d.logger.Debug("ignoring malformed frame", "error", err)
		return "", false
	}

	msgType := env.Metadata.MessageType
	switch msgType {
	case MessageTypeKeepalive:
		metrics.FramesTotal.WithLabelValues(msgType).Inc()
		return "", false

	case MessageTypeReconnect:
		metrics.FramesTotal.WithLabelValues(msgType).Inc()
		return d.reconnectURL(env)

	case MessageTypeNotification:
		metrics.FramesTotal.WithLabelValues(msgType).Inc()
		d.notification(ctx, env, msg.ReceivedAt)
		return "", false

	case MessageTypeRevocation:
		metrics.FramesTotal.WithLabelValues(msgType).Inc()
		d.revocation(env)
		return "", false

	default:
		metrics.FramesTotal.WithLabelValues("other").Inc()
		d.logger.Debug("ignoring frame", "message_type", msgType)
		return "", false
	}
}

func (d *dispatcher) reconnectURL(env Envelope) (string, bool) {
	var payload SessionPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		d.logger.Warn("ignoring malformed reconnect frame", "error", err)
		return "", false
	}
	if payload.Session.ReconnectURL == "" {
		d.logger.Warn("ignoring reconnect frame without reconnect_url")
		return "", false
	}
	return payload.Session.ReconnectURL, true
}

func (d *dispatcher) notification(ctx context.Context, env Envelope, receivedAt time.Time) {
	var payload NotificationPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		metrics.NotificationsTotal.WithLabelValues("ignored").Inc()
		d.logger.Debug("ignoring malformed notification", "error", err)
		return
	}

	if payload.Subscription.Type != SubscriptionTypeStreamOnline {
		metrics.NotificationsTotal.WithLabelValues("ignored").Inc()
		d.logger.Debug("ignoring notification", "subscription_type", payload.Subscription.Type)
		return
	}

	var event StreamOnlineEvent
	if err := json.Unmarshal(payload.Event, &event); err != nil || event.BroadcasterUserID == "" {
		metrics.NotificationsTotal.WithLabelValues("ignored").Inc()
		d.logger.Debug("ignoring stream.online without broadcaster", "error", err)
		return
	}

	ev := Online{
		AccountID:   event.BroadcasterUserID,
		Handle:      event.BroadcasterUserLogin,
		DisplayName: event.BroadcasterUserName,
		StreamType:  event.Type,
		StartedAt:   ParseTimestamp(event.StartedAt),
		ReceivedAt:  receivedAt,
	}

	if err := d.deliver(ctx, ev); err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		d.logger.Error("online handler failed",
			"account_id", ev.AccountID,
			"handle", ev.Handle,
			"error", err,
		)
		return
	}

	metrics.NotificationsTotal.WithLabelValues("dispatched").Inc()
}

// deliver invokes the handler, converting a panic into an error.
func (d *dispatcher) deliver(ctx context.Context, ev Online) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return d.handler.HandleOnline(ctx, ev)
}

func (d *dispatcher) revocation(env Envelope) {
	var payload NotificationPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		d.logger.Debug("ignoring malformed revocation", "error", err)
		return
	}

	sub := payload.Subscription
	d.logger.Warn("subscription revoked",
		"subscription_id", sub.ID,
		"subscription_type", sub.Type,
		"status", sub.Status,
		"account_id", sub.Condition["broadcaster_user_id"],
	)
}
