package config

import "time"

// WatcherConfig is the root configuration for a watcher instance.
type WatcherConfig struct {
	Instance InstanceConfig  `yaml:"instance"`
	Twitch   TwitchConfig    `yaml:"twitch"`
	Listener ListenerConfig  `yaml:"listener"`
	Accounts []AccountConfig `yaml:"accounts"`
	Database DatabaseConfig  `yaml:"database"`
	Metrics  MetricsConfig   `yaml:"metrics"`
	Logging  LoggingConfig   `yaml:"logging"`
}

// InstanceConfig identifies this watcher.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// TwitchConfig holds Helix and EventSub settings.
type TwitchConfig struct {
	ClientID          string        `yaml:"client_id"`
	AppToken          string        `yaml:"app_token"` // application access token, used when an account has none
	HelixURL          string        `yaml:"helix_url"`
	EventSubURL       string        `yaml:"eventsub_url"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

// ListenerConfig holds EventSub listener settings.
type ListenerConfig struct {
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	RetryDelay       time.Duration `yaml:"retry_delay"`
	MaxSubscriptions int           `yaml:"max_subscriptions"`
	KeepaliveGrace   time.Duration `yaml:"keepalive_grace"`
	MessageBuffer    int           `yaml:"message_buffer"`
}

// AccountConfig is one tracked account. Either ID or Login must be set;
// a login-only account is resolved to its ID at startup.
type AccountConfig struct {
	ID    string `yaml:"id"`
	Login string `yaml:"login"`
	Token string `yaml:"token"` // optional user token for this account
}

// DatabaseConfig holds the optional token store connection.
type DatabaseConfig struct {
	Tokens DBConfig `yaml:"tokens"`
}

// TokensEnabled reports whether a token store is configured.
func (d DatabaseConfig) TokensEnabled() bool {
	return d.Tokens.Host != ""
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}
