// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the relay service.
package server

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
// A zero Burst disables limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the server configuration settings.
type Config struct {
	Addr            string        `env:"RELAY_ADDR"`
	RelayPath       string        `env:"RELAY_PATH"`
	MessagesPath    string        `env:"MESSAGES_PATH"`
	StaticDir       string        `env:"STATIC_DIR"`
	MessagesFile    string        `env:"MESSAGES_FILE"`
	AllowedOrigins  string        `env:"ALLOWED_ORIGINS"`
	MaxMessageSize  int64         `env:"MAX_MESSAGE_SIZE"`
	SendBuffer      int           `env:"SEND_BUFFER"`
	PingInterval    time.Duration `env:"PING_INTERVAL"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT"`
	RateLimitBurst  int           `env:"RATE_LIMIT_BURST"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"`
	LogLevel        string        `env:"LOG_LEVEL"`
	LogFormat       string        `env:"LOG_FORMAT"`
	MetricsEnabled  bool          `env:"METRICS_ENABLED"`
}

const (
	defaultAddr            = "0.0.0.0:8080"
	defaultRelayPath       = "/ws"
	defaultMessagesPath    = "/messages"
	defaultStaticDir       = "./client"
	defaultMessagesFile    = "./messages.json"
	defaultMaxMessageSize  = 100 << 20
	defaultSendBuffer      = 256
	defaultPingInterval    = 54 * time.Second
	defaultShutdownTimeout = 5 * time.Second
)

func defaultConfig() Config {
	return Config{
		Addr:            defaultAddr,
		RelayPath:       defaultRelayPath,
		MessagesPath:    defaultMessagesPath,
		StaticDir:       defaultStaticDir,
		MessagesFile:    defaultMessagesFile,
		AllowedOrigins:  "*",
		MaxMessageSize:  defaultMaxMessageSize,
		SendBuffer:      defaultSendBuffer,
		PingInterval:    defaultPingInterval,
		RateLimitWindow: time.Second,
		ShutdownTimeout: defaultShutdownTimeout,
		LogLevel:        "info",
		LogFormat:       "text",
		MetricsEnabled:  true,
	}
}

func sanitizeConfig(cfg Config) Config {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = defaultAddr
	}

	cfg.RelayPath = normalizeRoutePath(cfg.RelayPath, defaultRelayPath)
	cfg.MessagesPath = normalizeRoutePath(cfg.MessagesPath, defaultMessagesPath)

	if cfg.StaticDir == "" {
		cfg.StaticDir = defaultStaticDir
	}

	if cfg.MessagesFile == "" {
		cfg.MessagesFile = defaultMessagesFile
	}

	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}

	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaultSendBuffer
	}

	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}

	if cfg.ReadTimeout < 0 {
		cfg.ReadTimeout = 0
	}

	if cfg.RateLimitBurst < 0 {
		cfg.RateLimitBurst = 0
	}

	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = time.Second
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	return cfg
}

// normalizeRoutePath makes p absolute and strips trailing slashes.
func normalizeRoutePath(p, fallback string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return fallback
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	p = strings.TrimRight(p, "/")
	if p == "" {
		return fallback
	}
	return p
}

// Validate reports configuration that cannot be served.
func (c Config) Validate() error {
	if c.RelayPath == c.MessagesPath {
		return fmt.Errorf("relay path and messages path must differ, both are %q", c.RelayPath)
	}
	return nil
}

// RateLimit returns the per-connection rate limiting parameters.
func (c Config) RateLimit() RateLimitConfig {
	return RateLimitConfig{
		Burst:          c.RateLimitBurst,
		RefillInterval: c.RateLimitWindow,
	}
}

// Origins returns the parsed allow-list.
func (c Config) Origins() []string {
	return parseOrigins(c.AllowedOrigins)
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config instance from environment variables,
// loading envFiles first when they exist. Unset variables keep their default.
func NewConfigFromEnv(envFiles ...string) (*Config, error) {
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}

	cfg := defaultConfig()
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	sanitized := sanitizeConfig(cfg)
	if err := sanitized.Validate(); err != nil {
		return nil, err
	}
	return &sanitized, nil
}

func parseOrigins(origins string) []string {
	if strings.TrimSpace(origins) == "" {
		return nil
	}
	parts := strings.Split(origins, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
