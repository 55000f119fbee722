package eventsub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/rickgao/livewatch/internal/connection"
	"github.com/rickgao/livewatch/internal/metrics"
)

// OutcomeKind classifies how a connection attempt ended.
type OutcomeKind int

const (
	// OutcomeClosed means the server closed the connection normally.
	OutcomeClosed OutcomeKind = iota
	// OutcomeReconnect means the server asked to continue on another URL.
	OutcomeReconnect
	// OutcomeError means the attempt failed: dial, handshake, transport or
	// stale connection.
	OutcomeError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeClosed:
		return "closed"
	case OutcomeReconnect:
		return "reconnect"
	case OutcomeError:
		return "error"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the result of one connection attempt.
type Outcome struct {
	Kind OutcomeKind
	URL  string // reconnect target, set for OutcomeReconnect
	Err  error
}

// Dialer opens a connected transport to url.
type Dialer func(ctx context.Context, url string) (connection.Client, error)

// NewDialer returns a Dialer backed by connection.NewClient.
func NewDialer(cfg connection.ClientConfig, logger *slog.Logger) Dialer {
	return func(ctx context.Context, url string) (connection.Client, error) {
		c := cfg
		c.URL = url
		client := connection.NewClient(c, logger)
		if err := client.Connect(ctx); err != nil {
			return nil, err
		}
		return client, nil
	}
}

// Config holds listener settings.
type Config struct {
	URL              string        // default endpoint
	HandshakeTimeout time.Duration // wait for session_welcome
	RetryDelay       time.Duration // wait after an unexpected disconnect
	MaxSubscriptions int           // per connection, at most MaxSubscriptionsPerConnection
	KeepaliveGrace   time.Duration // added to the session keepalive timeout; stale check off when the session has none
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		URL:              DefaultURL,
		HandshakeTimeout: 10 * time.Second,
		RetryDelay:       10 * time.Second,
		MaxSubscriptions: MaxSubscriptionsPerConnection,
		KeepaliveGrace:   5 * time.Second,
	}
}

// Option configures a Listener.
type Option func(*Listener)

// WithDialer replaces the transport dialer.
func WithDialer(d Dialer) Option {
	return func(l *Listener) {
		l.dial = d
	}
}

// WithClock replaces the clock driving timeouts and backoff.
func WithClock(c clockwork.Clock) Option {
	return func(l *Listener) {
		l.clock = c
	}
}

// WithTokenResolver sets the per-account token source. Without one every
// subscription uses the application credential.
func WithTokenResolver(r TokenResolver) Option {
	return func(l *Listener) {
		l.resolver = r
	}
}

// runState is the per-listener state carried between attempts.
type runState struct {
	url           string
	skipSubscribe bool
}

// Listener keeps one EventSub connection alive and reports stream.online
// notifications to its Handler.
type Listener struct {
	cfg      Config
	id       string
	dial     Dialer
	clock    clockwork.Clock
	resolver TokenResolver
	logger   *slog.Logger

	registrar  *registrar
	dispatcher *dispatcher

	stopped   atomic.Bool
	stopOnce  sync.Once
	stopCh    chan struct{}
	connected atomic.Bool
	running   atomic.Bool
}

// NewListener creates a listener that registers subscriptions through
// subscriber and delivers events to handler.
func NewListener(cfg Config, subscriber Subscriber, handler Handler, logger *slog.Logger, opts ...Option) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.MaxSubscriptions <= 0 || cfg.MaxSubscriptions > MaxSubscriptionsPerConnection {
		cfg.MaxSubscriptions = MaxSubscriptionsPerConnection
	}
	if handler == nil {
		handler = HandlerFunc(func(context.Context, Online) error { return nil })
	}

	id := uuid.NewString()
	logger = logger.With("listener_id", id)

	l := &Listener{
		cfg:    cfg,
		id:     id,
		clock:  clockwork.NewRealClock(),
		logger: logger,
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.dial == nil {
		cc := connection.DefaultClientConfig()
		cc.HandshakeTimeout = cfg.HandshakeTimeout
		l.dial = NewDialer(cc, logger)
	}

	l.registrar = &registrar{
		subscriber: subscriber,
		resolver:   l.resolver,
		limit:      cfg.MaxSubscriptions,
		logger:     logger,
	}
	l.dispatcher = &dispatcher{
		handler: handler,
		logger:  logger,
	}

	return l
}

// ID returns the listener's unique id.
func (l *Listener) ID() string {
	return l.id
}

// Connected reports whether the listener currently holds a live session.
func (l *Listener) Connected() bool {
	return l.connected.Load()
}

// Stop asks Run to return before its next connection attempt. It does not
// interrupt an attempt in progress; cancel Run's context for that.
func (l *Listener) Stop() {
	l.stopOnce.Do(func() {
		l.stopped.Store(true)
		close(l.stopCh)
	})
}

// Run connects and keeps the listener connected until ctx is done or Stop is
// called. It returns ctx.Err() on cancellation and nil after Stop. An empty
// account set returns nil without connecting. A second call while one is in
// progress returns ErrAlreadyRunning.
func (l *Listener) Run(ctx context.Context, accountIDs []string) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer l.running.Store(false)

	if len(accountIDs) == 0 {
		l.logger.Info("no accounts to monitor")
		return nil
	}

	accounts := append([]string(nil), accountIDs...)
	if kept, dropped := capAccounts(accounts, l.cfg.MaxSubscriptions); dropped > 0 {
		metrics.SubscriptionsDropped.Add(float64(dropped))
		l.logger.Warn("account set exceeds subscription limit, extra accounts not monitored",
			"accounts", len(accounts),
			"limit", l.cfg.MaxSubscriptions,
			"dropped", dropped,
		)
		accounts = kept
	}

	st := runState{url: l.cfg.URL}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if l.stopped.Load() {
			l.logger.Info("listener stopped")
			return nil
		}

		logger := l.logger.With("attempt", attempt, "url", st.url)
		out := l.attempt(ctx, st, accounts, logger)
		metrics.ConnectionAttemptsTotal.WithLabelValues(out.Kind.String()).Inc()

		if err := ctx.Err(); err != nil {
			return err
		}

		if out.Kind == OutcomeReconnect {
			logger.Info("server requested reconnect", "reconnect_url", out.URL)
			metrics.ReconnectsTotal.WithLabelValues("graceful").Inc()
			st = runState{url: out.URL, skipSubscribe: true}
			continue
		}

		logger.Warn("connection ended, retrying",
			"outcome", out.Kind,
			"error", out.Err,
			"retry_in", l.cfg.RetryDelay,
		)
		metrics.ReconnectsTotal.WithLabelValues("unexpected").Inc()

		if err := l.backoff(ctx); err != nil {
			return err
		}
		st = runState{url: l.cfg.URL}
	}
}

// attempt runs one connection from dial to the end of the receive loop.
func (l *Listener) attempt(ctx context.Context, st runState, accounts []string, logger *slog.Logger) Outcome {
	start := l.clock.Now()

	client, err := l.dial(ctx, st.url)
	if err != nil {
		return Outcome{Kind: OutcomeError, Err: fmt.Errorf("dial: %w", err)}
	}
	defer client.Close()

	session, err := awaitWelcome(ctx, client, l.cfg.HandshakeTimeout, l.clock)
	if err != nil {
		return Outcome{Kind: OutcomeError, Err: fmt.Errorf("handshake: %w", err)}
	}
	metrics.HandshakeDuration.Observe(l.clock.Since(start).Seconds())

	logger = logger.With("session_id", session.ID)
	logger.Info("session established", "keepalive_timeout", session.KeepaliveTimeout)

	l.connected.Store(true)
	metrics.ListenersConnected.Inc()
	defer func() {
		l.connected.Store(false)
		metrics.ListenersConnected.Dec()
	}()

	if st.skipSubscribe {
		logger.Info("resuming after reconnect, subscriptions carried over")
	} else {
		res, err := l.registrar.register(ctx, session.ID, accounts)
		if err != nil {
			return Outcome{Kind: OutcomeError, Err: err}
		}
		logger.Info("subscriptions registered",
			"attempted", res.Attempted,
			"succeeded", res.Succeeded,
			"failed", res.Failed,
		)
	}

	return l.listen(ctx, client, session)
}

// listen consumes frames until the connection ends or the server asks for a
// reconnect.
func (l *Listener) listen(ctx context.Context, client connection.Client, session Session) Outcome {
	var (
		timer  clockwork.Timer
		stale  <-chan time.Time
		window time.Duration
	)
	if session.KeepaliveTimeout > 0 {
		window = session.KeepaliveTimeout + l.cfg.KeepaliveGrace
		timer = l.clock.NewTimer(window)
		defer timer.Stop()
		stale = timer.Chan()
	}

	// receive handles one frame and reports whether the attempt is over.
	receive := func(msg connection.TimestampedMessage, ok bool) (Outcome, bool) {
		if !ok {
			err := client.Err()
			if connection.IsNormalClose(err) {
				return Outcome{Kind: OutcomeClosed, Err: err}, true
			}
			return Outcome{Kind: OutcomeError, Err: err}, true
		}

		if timer != nil {
			if !timer.Stop() {
				select {
				case <-timer.Chan():
				default:
				}
			}
			timer.Reset(window)
		}

		if url, ok := l.dispatcher.dispatch(ctx, msg); ok {
			return Outcome{Kind: OutcomeReconnect, URL: url}, true
		}
		return Outcome{}, false
	}

	for {
		select {
		case <-ctx.Done():
			return Outcome{Kind: OutcomeError, Err: ctx.Err()}

		case <-stale:
			// A frame that arrived while the handler was busy is activity.
			select {
			case msg, ok := <-client.Messages():
				if out, done := receive(msg, ok); done {
					return out
				}
			default:
				return Outcome{Kind: OutcomeError, Err: fmt.Errorf("%w: silent for %s", ErrStaleConnection, window)}
			}

		case msg, ok := <-client.Messages():
			if out, done := receive(msg, ok); done {
				return out
			}
		}
	}
}

// backoff waits the retry delay. Stop cuts the wait short; Run then returns
// at the top of its loop.
func (l *Listener) backoff(ctx context.Context) error {
	timer := l.clock.NewTimer(l.cfg.RetryDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopCh:
		return nil
	case <-timer.Chan():
		return nil
	}
}
