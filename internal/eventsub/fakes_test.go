package eventsub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rickgao/livewatch/internal/connection"
)

// fakeClient is an in-memory connection.Client fed with scripted frames.
type fakeClient struct {
	url  string
	msgs chan connection.TimestampedMessage

	mu     sync.Mutex
	err    error
	ended  bool
	closed bool
}

func newFakeClient(url string, frames ...string) *fakeClient {
	c := &fakeClient{
		url:  url,
		msgs: make(chan connection.TimestampedMessage, len(frames)+16),
	}
	for _, f := range frames {
		c.msgs <- connection.TimestampedMessage{Data: []byte(f), ReceivedAt: time.Now()}
	}
	return c
}

// end closes the message stream with err, as a read loop exit would.
// Frames already queued are still delivered first.
func (c *fakeClient) end(err error) *fakeClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ended {
		return c
	}
	c.ended = true
	c.err = err
	close(c.msgs)
	return c
}

func (c *fakeClient) Connect(ctx context.Context) error { return nil }

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeClient) Messages() <-chan connection.TimestampedMessage { return c.msgs }

func (c *fakeClient) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && !c.ended
}

func (c *fakeClient) URL() string { return c.url }

func (c *fakeClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// scriptedDialer hands out one scripted client per dial. Once the script is
// exhausted it returns idle clients that never produce a frame.
type scriptedDialer struct {
	mu      sync.Mutex
	script  []func(url string) (*fakeClient, error)
	urls    []string
	clients []*fakeClient
}

func (d *scriptedDialer) add(fn func(url string) (*fakeClient, error)) *scriptedDialer {
	d.script = append(d.script, fn)
	return d
}

func (d *scriptedDialer) dial(ctx context.Context, url string) (connection.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.urls = append(d.urls, url)

	var (
		c   *fakeClient
		err error
	)
	if len(d.script) > 0 {
		next := d.script[0]
		d.script = d.script[1:]
		c, err = next(url)
	} else {
		c = newFakeClient(url)
	}
	if err != nil {
		return nil, err
	}
	d.clients = append(d.clients, c)
	return c, nil
}

func (d *scriptedDialer) dialedURLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.urls...)
}

func (d *scriptedDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

func (d *scriptedDialer) client(i int) *fakeClient {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clients[i]
}

// recordingSubscriber records requests and fails the accounts in fail.
type recordingSubscriber struct {
	mu   sync.Mutex
	reqs []SubscriptionRequest
	fail map[string]error
}

func (s *recordingSubscriber) CreateSubscription(ctx context.Context, req SubscriptionRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	if err, ok := s.fail[req.AccountID]; ok {
		return err
	}
	return nil
}

func (s *recordingSubscriber) requests() []SubscriptionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SubscriptionRequest(nil), s.reqs...)
}

// recordingHandler collects delivered events.
type recordingHandler struct {
	events chan Online
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{events: make(chan Online, 64)}
}

func (h *recordingHandler) HandleOnline(ctx context.Context, ev Online) error {
	h.events <- ev
	return nil
}

// Frame builders

func welcomeFrame(sessionID string, keepaliveSeconds int) string {
	return fmt.Sprintf(`{"metadata":{"message_id":"m-welcome","message_type":"session_welcome","message_timestamp":"2024-01-01T00:00:00Z"},"payload":{"session":{"id":%q,"status":"connected","keepalive_timeout_seconds":%d,"reconnect_url":null,"connected_at":"2024-01-01T00:00:00Z"}}}`,
		sessionID, keepaliveSeconds)
}

func keepaliveFrame() string {
	return `{"metadata":{"message_id":"m-ka","message_type":"session_keepalive","message_timestamp":"2024-01-01T00:00:10Z"},"payload":{}}`
}

func reconnectFrame(url string) string {
	return fmt.Sprintf(`{"metadata":{"message_id":"m-rc","message_type":"session_reconnect","message_timestamp":"2024-01-01T00:00:20Z"},"payload":{"session":{"id":"s","status":"reconnecting","keepalive_timeout_seconds":null,"reconnect_url":%q}}}`, url)
}

func notificationFrame(subType, userID, login string) string {
	return fmt.Sprintf(`{"metadata":{"message_id":"m-n","message_type":"notification","message_timestamp":"2024-01-01T00:00:30Z","subscription_type":%q,"subscription_version":"1"},"payload":{"subscription":{"id":"sub-1","status":"enabled","type":%q,"version":"1","condition":{"broadcaster_user_id":%q}},"event":{"id":"9001","broadcaster_user_id":%q,"broadcaster_user_login":%q,"broadcaster_user_name":"Example","type":"live","started_at":"2024-01-01T00:00:29Z"}}}`,
		subType, subType, userID, userID, login)
}

func onlineFrame(userID, login string) string {
	return notificationFrame(SubscriptionTypeStreamOnline, userID, login)
}

func revocationFrame(userID string) string {
	return fmt.Sprintf(`{"metadata":{"message_id":"m-rv","message_type":"revocation","message_timestamp":"2024-01-01T00:00:40Z","subscription_type":"stream.online","subscription_version":"1"},"payload":{"subscription":{"id":"sub-1","status":"authorization_revoked","type":"stream.online","version":"1","condition":{"broadcaster_user_id":%q}}}}`, userID)
}
