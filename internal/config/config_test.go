package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: watcher-1
twitch:
  client_id: abc123
  app_token: apptoken
  eventsub_url: ws://127.0.0.1:8080/ws
listener:
  retry_delay: 3s
accounts:
  - id: "42"
  - login: examplelogin
    token: oauth:usertoken
database:
  tokens:
    host: localhost
    name: livewatch
    user: watcher
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "watcher-1" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "watcher-1")
	}
	if cfg.Twitch.EventSubURL != "ws://127.0.0.1:8080/ws" {
		t.Errorf("Twitch.EventSubURL = %q, want %q", cfg.Twitch.EventSubURL, "ws://127.0.0.1:8080/ws")
	}
	if cfg.Listener.RetryDelay != 3*time.Second {
		t.Errorf("Listener.RetryDelay = %v, want 3s", cfg.Listener.RetryDelay)
	}
	if len(cfg.Accounts) != 2 {
		t.Fatalf("len(Accounts) = %d, want 2", len(cfg.Accounts))
	}
	if cfg.Accounts[0].ID != "42" {
		t.Errorf("Accounts[0].ID = %q, want %q", cfg.Accounts[0].ID, "42")
	}
	if cfg.Accounts[1].Login != "examplelogin" || cfg.Accounts[1].Token != "oauth:usertoken" {
		t.Errorf("Accounts[1] = %+v", cfg.Accounts[1])
	}
	if !cfg.Database.TokensEnabled() {
		t.Error("expected token database to be enabled")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_APP_TOKEN", "secret123")

	yaml := `
instance:
  id: watcher-1
twitch:
  client_id: abc123
  app_token: ${TEST_APP_TOKEN}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Twitch.AppToken != "secret123" {
		t.Errorf("Twitch.AppToken = %q, want %q", cfg.Twitch.AppToken, "secret123")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "read config file") {
		t.Errorf("error = %q, want read config file prefix", err)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: watcher-1
twitch:
  client_id: abc123
  app_token: apptoken
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.Twitch.HelixURL != DefaultHelixURL {
		t.Errorf("Twitch.HelixURL = %q, want default %q", cfg.Twitch.HelixURL, DefaultHelixURL)
	}
	if cfg.Twitch.EventSubURL != DefaultEventSubURL {
		t.Errorf("Twitch.EventSubURL = %q, want default %q", cfg.Twitch.EventSubURL, DefaultEventSubURL)
	}
	if cfg.Listener.HandshakeTimeout != DefaultHandshakeTimeout {
		t.Errorf("Listener.HandshakeTimeout = %v, want default %v", cfg.Listener.HandshakeTimeout, DefaultHandshakeTimeout)
	}
	if cfg.Listener.RetryDelay != DefaultRetryDelay {
		t.Errorf("Listener.RetryDelay = %v, want default %v", cfg.Listener.RetryDelay, DefaultRetryDelay)
	}
	if cfg.Listener.MaxSubscriptions != DefaultMaxSubscriptions {
		t.Errorf("Listener.MaxSubscriptions = %d, want default %d", cfg.Listener.MaxSubscriptions, DefaultMaxSubscriptions)
	}
	if cfg.Metrics.Port != DefaultMetricsPort {
		t.Errorf("Metrics.Port = %d, want default %d", cfg.Metrics.Port, DefaultMetricsPort)
	}
	if cfg.Logging.Level != DefaultLogLevel || cfg.Logging.Format != DefaultLogFormat {
		t.Errorf("Logging = %+v, want defaults", cfg.Logging)
	}

	// No token database configured, so its defaults stay unset
	if cfg.Database.Tokens.Port != 0 {
		t.Errorf("Database.Tokens.Port = %d, want 0 when disabled", cfg.Database.Tokens.Port)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func validConfig() WatcherConfig {
	return WatcherConfig{
		Instance: InstanceConfig{ID: "test"},
		Twitch:   TwitchConfig{ClientID: "id", AppToken: "token"},
		Listener: ListenerConfig{
			HandshakeTimeout: 10 * time.Second,
			RetryDelay:       10 * time.Second,
			MaxSubscriptions: 30,
		},
		Metrics: MetricsConfig{Port: 9090},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*WatcherConfig)
		wantErr string
	}{
		{
			name:    "valid config",
			mutate:  func(c *WatcherConfig) {},
			wantErr: "",
		},
		{
			name:    "missing instance id",
			mutate:  func(c *WatcherConfig) { c.Instance.ID = "" },
			wantErr: "instance.id is required",
		},
		{
			name:    "missing client id",
			mutate:  func(c *WatcherConfig) { c.Twitch.ClientID = "" },
			wantErr: "twitch.client_id is required",
		},
		{
			name:    "missing app token",
			mutate:  func(c *WatcherConfig) { c.Twitch.AppToken = "" },
			wantErr: "twitch.app_token is required",
		},
		{
			name:    "too many subscriptions",
			mutate:  func(c *WatcherConfig) { c.Listener.MaxSubscriptions = 31 },
			wantErr: "listener.max_subscriptions must be between 1 and 30, got 31",
		},
		{
			name: "account without id or login",
			mutate: func(c *WatcherConfig) {
				c.Accounts = []AccountConfig{{ID: "1"}, {Token: "t"}}
			},
			wantErr: "accounts[1] needs id or login",
		},
		{
			name: "token database missing user",
			mutate: func(c *WatcherConfig) {
				c.Database.Tokens = DBConfig{Host: "localhost", Name: "db", MaxConns: 4}
			},
			wantErr: "database.tokens.user is required",
		},
		{
			name: "min_conns exceeds max_conns",
			mutate: func(c *WatcherConfig) {
				c.Database.Tokens = DBConfig{Host: "localhost", Name: "db", User: "user", MaxConns: 2, MinConns: 5}
			},
			wantErr: "database.tokens.min_conns (5) cannot exceed max_conns (2)",
		},
		{
			name:    "bad metrics port",
			mutate:  func(c *WatcherConfig) { c.Metrics.Port = 70000 },
			wantErr: "metrics.port must be between 1 and 65535, got 70000",
		},
		{
			name:    "bad log level",
			mutate:  func(c *WatcherConfig) { c.Logging.Level = "verbose" },
			wantErr: `logging.level must be one of debug, info, warn, error, got "verbose"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func TestLoadAndValidate(t *testing.T) {
	path := writeTempFile(t, `
instance:
  id: watcher-1
`)

	_, err := LoadAndValidate(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.HasPrefix(err.Error(), "validate config: ") {
		t.Errorf("error = %q, want validate config prefix", err)
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
