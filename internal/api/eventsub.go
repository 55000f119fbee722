package api

import (
	"context"
	"errors"
	"fmt"
)

// CreateEventSubSubscription registers a subscription delivered over the
// given WebSocket session. userToken authenticates the call on behalf of an
// account; when empty the application token is used.
func (c *Client) CreateEventSubSubscription(ctx context.Context, params CreateSubscriptionParams, userToken string) (*Subscription, error) {
	if params.Transport.Method == "" {
		params.Transport.Method = TransportWebSocket
	}
	if params.Transport.Method == TransportWebSocket && params.Transport.SessionID == "" {
		return nil, errors.New("websocket transport requires a session id")
	}

	var resp SubscriptionsResponse
	if err := c.post(ctx, "/eventsub/subscriptions", params, userToken, &resp); err != nil {
		return nil, fmt.Errorf("create %s subscription: %w", params.Type, err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("create %s subscription: empty response", params.Type)
	}

	return &resp.Data[0], nil
}
