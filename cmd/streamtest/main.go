// streamtest connects to an EventSub WebSocket endpoint and prints every
// frame it receives. It follows session_reconnect directives but never
// creates subscriptions, so against the real endpoint it only shows the
// welcome and keepalives; point it at a mock server to see notifications.
//
// Usage: go run ./cmd/streamtest --url ws://127.0.0.1:8080/ws
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/livewatch/internal/connection"
	"github.com/rickgao/livewatch/internal/eventsub"
	"github.com/rickgao/livewatch/internal/logging"
)

func main() {
	url := flag.String("url", eventsub.DefaultURL, "EventSub WebSocket URL")
	verbose := flag.Bool("verbose", false, "print full message JSON")
	logLevel := flag.String("log-level", "debug", "log level")
	flag.Parse()

	logger := logging.New(*logLevel, "text", os.Stderr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	logger.Info("streaming started - press Ctrl+C to stop", "url", *url)

	next := *url
	for next != "" {
		var err error
		next, err = stream(ctx, next, *verbose, logger)
		if err != nil {
			logger.Error("stream ended", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}

// stream prints frames from url until the connection ends. It returns the
// reconnect URL when the server sends one, or "" when done.
func stream(ctx context.Context, url string, verbose bool, logger *slog.Logger) (string, error) {
	cfg := connection.DefaultClientConfig()
	cfg.URL = url

	client := connection.NewClient(cfg, logger)
	if err := client.Connect(ctx); err != nil {
		return "", fmt.Errorf("connect %s: %w", url, err)
	}
	defer client.Close()

	logger.Info("connected", "url", url)

	for {
		select {
		case <-ctx.Done():
			return "", nil

		case msg, ok := <-client.Messages():
			if !ok {
				if err := client.Err(); err != nil && !connection.IsNormalClose(err) {
					return "", err
				}
				return "", nil
			}

			reconnectURL := printFrame(msg, verbose)
			if reconnectURL != "" {
				logger.Info("following reconnect", "reconnect_url", reconnectURL)
				return reconnectURL, nil
			}
		}
	}
}

// printFrame writes one line per frame and returns the reconnect URL of a
// session_reconnect frame.
func printFrame(msg connection.TimestampedMessage, verbose bool) string {
	ts := msg.ReceivedAt.Format(time.RFC3339Nano)

	env, err := eventsub.DecodeEnvelope(msg.Data)
	if err != nil {
		fmt.Printf("%s [MALFORMED] %s\n", ts, msg.Data)
		return ""
	}

	if verbose {
		var pretty any
		if json.Unmarshal(msg.Data, &pretty) == nil {
			data, _ := json.MarshalIndent(pretty, "", "  ")
			fmt.Printf("%s [%s] %s\n", ts, env.Metadata.MessageType, data)
		}
	}

	switch env.Metadata.MessageType {
	case eventsub.MessageTypeWelcome:
		var p eventsub.SessionPayload
		json.Unmarshal(env.Payload, &p)
		fmt.Printf("%s [WELCOME] session=%s keepalive=%ds\n", ts, p.Session.ID, p.Session.KeepaliveTimeoutSeconds)

	case eventsub.MessageTypeKeepalive:
		fmt.Printf("%s [KEEPALIVE]\n", ts)

	case eventsub.MessageTypeReconnect:
		var p eventsub.SessionPayload
		json.Unmarshal(env.Payload, &p)
		fmt.Printf("%s [RECONNECT] url=%s\n", ts, p.Session.ReconnectURL)
		return p.Session.ReconnectURL

	case eventsub.MessageTypeNotification:
		var p eventsub.NotificationPayload
		json.Unmarshal(env.Payload, &p)
		if p.Subscription.Type == eventsub.SubscriptionTypeStreamOnline {
			var ev eventsub.StreamOnlineEvent
			json.Unmarshal(p.Event, &ev)
			fmt.Printf("%s [ONLINE] id=%s login=%s type=%s started=%s\n",
				ts, ev.BroadcasterUserID, ev.BroadcasterUserLogin, ev.Type, ev.StartedAt)
		} else {
			fmt.Printf("%s [NOTIFICATION] type=%s\n", ts, p.Subscription.Type)
		}

	case eventsub.MessageTypeRevocation:
		var p eventsub.NotificationPayload
		json.Unmarshal(env.Payload, &p)
		fmt.Printf("%s [REVOCATION] type=%s status=%s\n", ts, p.Subscription.Type, p.Subscription.Status)

	default:
		fmt.Printf("%s [%s]\n", ts, env.Metadata.MessageType)
	}

	return ""
}
