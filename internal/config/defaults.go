package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultHelixURL          = "https://api.twitch.tv/helix"
	DefaultEventSubURL       = "wss://eventsub.wss.twitch.tv/ws"
	DefaultAPITimeout        = 10 * time.Second
	DefaultMaxRetries        = 3
	DefaultRequestsPerSecond = 10
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultRetryDelay        = 10 * time.Second
	DefaultMaxSubscriptions  = 30
	DefaultKeepaliveGrace    = 5 * time.Second
	DefaultMessageBuffer     = 256
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 4
	DefaultMinConns          = 1
	DefaultMetricsPort       = 9090
	DefaultMetricsPath       = "/metrics"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

func (c *WatcherConfig) applyDefaults() {
	// Twitch defaults
	if c.Twitch.HelixURL == "" {
		c.Twitch.HelixURL = DefaultHelixURL
	}
	if c.Twitch.EventSubURL == "" {
		c.Twitch.EventSubURL = DefaultEventSubURL
	}
	if c.Twitch.Timeout == 0 {
		c.Twitch.Timeout = DefaultAPITimeout
	}
	if c.Twitch.MaxRetries == 0 {
		c.Twitch.MaxRetries = DefaultMaxRetries
	}
	if c.Twitch.RequestsPerSecond == 0 {
		c.Twitch.RequestsPerSecond = DefaultRequestsPerSecond
	}

	// Listener defaults
	if c.Listener.HandshakeTimeout == 0 {
		c.Listener.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Listener.RetryDelay == 0 {
		c.Listener.RetryDelay = DefaultRetryDelay
	}
	if c.Listener.MaxSubscriptions == 0 {
		c.Listener.MaxSubscriptions = DefaultMaxSubscriptions
	}
	if c.Listener.KeepaliveGrace == 0 {
		c.Listener.KeepaliveGrace = DefaultKeepaliveGrace
	}
	if c.Listener.MessageBuffer == 0 {
		c.Listener.MessageBuffer = DefaultMessageBuffer
	}

	// Database defaults
	if c.Database.TokensEnabled() {
		applyDBDefaults(&c.Database.Tokens)
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
