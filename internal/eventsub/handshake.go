package eventsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rickgao/livewatch/internal/connection"
)

// Errors
var (
	ErrNoSession       = errors.New("no session")
	ErrStaleConnection = errors.New("connection stale (no keepalive)")
	ErrAlreadyRunning  = errors.New("listener already running")
)

// Session is a live EventSub session. It belongs to exactly one connection
// attempt and is dropped with it.
type Session struct {
	ID               string
	URL              string
	KeepaliveTimeout time.Duration
}

// awaitWelcome waits for the first frame on client and requires it to be a
// session_welcome. A timeout, a closed transport, a different message type
// or an undecodable payload all yield ErrNoSession.
func awaitWelcome(ctx context.Context, client connection.Client, timeout time.Duration, clock clockwork.Clock) (Session, error) {
	timer := clock.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return Session{}, ctx.Err()

	case <-timer.Chan():
		return Session{}, fmt.Errorf("%w: no welcome within %s", ErrNoSession, timeout)

	case msg, ok := <-client.Messages():
		if !ok {
			return Session{}, fmt.Errorf("%w: connection ended before welcome: %v", ErrNoSession, client.Err())
		}
		return parseWelcome(msg.Data, client.URL())
	}
}

// parseWelcome extracts the session from a session_welcome frame.
func parseWelcome(data []byte, url string) (Session, error) {
	env, err := DecodeEnvelope(data)
	if err != nil {
		return Session{}, fmt.Errorf("%w: malformed frame: %v", ErrNoSession, err)
	}

	if env.Metadata.MessageType != MessageTypeWelcome {
		return Session{}, fmt.Errorf("%w: expected %s, got %q", ErrNoSession, MessageTypeWelcome, env.Metadata.MessageType)
	}

	var payload SessionPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return Session{}, fmt.Errorf("%w: malformed welcome payload: %v", ErrNoSession, err)
	}
	if payload.Session.ID == "" {
		return Session{}, fmt.Errorf("%w: welcome without session id", ErrNoSession)
	}

	return Session{
		ID:               payload.Session.ID,
		URL:              url,
		KeepaliveTimeout: time.Duration(payload.Session.KeepaliveTimeoutSeconds) * time.Second,
	}, nil
}
