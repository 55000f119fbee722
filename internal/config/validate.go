package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *WatcherConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Twitch.ClientID == "" {
		return errors.New("twitch.client_id is required")
	}
	if c.Twitch.AppToken == "" {
		return errors.New("twitch.app_token is required")
	}
	if c.Twitch.MaxRetries < 0 {
		return errors.New("twitch.max_retries must be >= 0")
	}
	if c.Twitch.RequestsPerSecond < 0 {
		return errors.New("twitch.requests_per_second must be >= 0")
	}

	if c.Listener.MaxSubscriptions < 1 || c.Listener.MaxSubscriptions > 30 {
		return fmt.Errorf("listener.max_subscriptions must be between 1 and 30, got %d", c.Listener.MaxSubscriptions)
	}
	if c.Listener.HandshakeTimeout <= 0 {
		return errors.New("listener.handshake_timeout must be > 0")
	}
	if c.Listener.RetryDelay < 0 {
		return errors.New("listener.retry_delay must be >= 0")
	}
	if c.Listener.MessageBuffer < 0 {
		return errors.New("listener.message_buffer must be >= 0")
	}

	for i, acct := range c.Accounts {
		if acct.ID == "" && acct.Login == "" {
			return fmt.Errorf("accounts[%d] needs id or login", i)
		}
	}

	if c.Database.TokensEnabled() {
		if err := c.Database.Tokens.validate("database.tokens"); err != nil {
			return err
		}
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
