package main

import (
	"context"
	"log/slog"

	"github.com/rickgao/livewatch/internal/api"
	"github.com/rickgao/livewatch/internal/eventsub"
)

// subscriptionCreator is the Helix call the subscriber needs.
type subscriptionCreator interface {
	CreateEventSubSubscription(ctx context.Context, params api.CreateSubscriptionParams, userToken string) (*api.Subscription, error)
}

// helixSubscriber registers EventSub subscriptions through Helix.
type helixSubscriber struct {
	api    subscriptionCreator
	logger *slog.Logger
}

func newHelixSubscriber(c subscriptionCreator, logger *slog.Logger) *helixSubscriber {
	return &helixSubscriber{api: c, logger: logger}
}

// CreateSubscription implements eventsub.Subscriber. A 409 means the
// subscription already exists and counts as success.
func (s *helixSubscriber) CreateSubscription(ctx context.Context, req eventsub.SubscriptionRequest) error {
	sub, err := s.api.CreateEventSubSubscription(ctx, api.CreateSubscriptionParams{
		Type:      req.Type,
		Version:   req.Version,
		Condition: req.Condition(),
		Transport: api.Transport{
			Method:    api.TransportWebSocket,
			SessionID: req.SessionID,
		},
	}, req.Credential)
	if api.IsConflict(err) {
		s.logger.Debug("subscription already exists", "account_id", req.AccountID)
		return nil
	}
	if err != nil {
		return err
	}

	s.logger.Debug("subscription created",
		"account_id", req.AccountID,
		"subscription_id", sub.ID,
		"status", sub.Status,
	)
	return nil
}

// onlineLogger reports live accounts to the log.
type onlineLogger struct {
	logger *slog.Logger
}

func newOnlineLogger(logger *slog.Logger) *onlineLogger {
	return &onlineLogger{logger: logger}
}

// HandleOnline implements eventsub.Handler.
func (h *onlineLogger) HandleOnline(ctx context.Context, ev eventsub.Online) error {
	h.logger.Info("account went live",
		"account_id", ev.AccountID,
		"login", ev.Handle,
		"display_name", ev.DisplayName,
		"stream_type", ev.StreamType,
		"started_at", ev.StartedAt,
	)
	return nil
}
