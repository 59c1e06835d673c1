package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	require.Equal(t, "0.0.0.0:8080", cfg.Addr)
	require.Equal(t, "/ws", cfg.RelayPath)
	require.Equal(t, "/messages", cfg.MessagesPath)
	require.Equal(t, "*", cfg.AllowedOrigins)
	require.Equal(t, 0, cfg.RateLimit().Burst)
	require.True(t, cfg.MetricsEnabled)
	require.EqualValues(t, 100<<20, cfg.MaxMessageSize)
	require.Equal(t, 54*time.Second, cfg.PingInterval)
	require.Zero(t, cfg.ReadTimeout, "no idle timeout unless configured")
	require.NoError(t, cfg.Validate())
}

func TestNewConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("RELAY_ADDR", "127.0.0.1:9999")
	t.Setenv("RELAY_PATH", "chat/")
	t.Setenv("MESSAGES_FILE", "/tmp/log.json")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, http://b.example")
	t.Setenv("RATE_LIMIT_BURST", "3")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("PING_INTERVAL", "30s")
	t.Setenv("READ_TIMEOUT", "90s")

	cfg, err := NewConfigFromEnv()

	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9999", cfg.Addr)
	require.Equal(t, "/chat", cfg.RelayPath)
	require.Equal(t, "/tmp/log.json", cfg.MessagesFile)
	require.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Origins())
	require.Equal(t, RateLimitConfig{Burst: 3, RefillInterval: 2 * time.Second}, cfg.RateLimit())
	require.False(t, cfg.MetricsEnabled)
	require.Equal(t, 30*time.Second, cfg.PingInterval)
	require.Equal(t, 90*time.Second, cfg.ReadTimeout)
}

func TestNewConfigFromEnv_SanitizesNonsense(t *testing.T) {
	t.Setenv("MAX_MESSAGE_SIZE", "-5")
	t.Setenv("SEND_BUFFER", "0")
	t.Setenv("RATE_LIMIT_BURST", "-1")
	t.Setenv("PING_INTERVAL", "0s")
	t.Setenv("READ_TIMEOUT", "-1s")

	cfg, err := NewConfigFromEnv()

	require.NoError(t, err)
	require.EqualValues(t, defaultMaxMessageSize, cfg.MaxMessageSize)
	require.Equal(t, defaultSendBuffer, cfg.SendBuffer)
	require.Zero(t, cfg.RateLimitBurst)
	require.Equal(t, defaultPingInterval, cfg.PingInterval)
	require.Zero(t, cfg.ReadTimeout)
}

func TestNewConfigFromEnv_ConflictingPaths(t *testing.T) {
	t.Setenv("RELAY_PATH", "/same")
	t.Setenv("MESSAGES_PATH", "/same/")

	_, err := NewConfigFromEnv()
	require.Error(t, err)
}

func TestNewConfigFromEnv_LoadsEnvFile(t *testing.T) {
	const key = "STATIC_DIR"
	_, preset := os.LookupEnv(key)
	if preset {
		t.Skipf("%s already set in the environment", key)
	}
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=/srv/www\n"), 0o600))

	cfg, err := NewConfigFromEnv(path)

	require.NoError(t, err)
	require.Equal(t, "/srv/www", cfg.StaticDir)
}

func TestNewConfigFromEnv_MissingEnvFileIsIgnored(t *testing.T) {
	_, err := NewConfigFromEnv(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}

func TestNormalizeRoutePath(t *testing.T) {
	require.Equal(t, "/ws", normalizeRoutePath("", "/ws"))
	require.Equal(t, "/ws", normalizeRoutePath("/", "/ws"))
	require.Equal(t, "/live", normalizeRoutePath("live", "/ws"))
	require.Equal(t, "/live", normalizeRoutePath("/live//", "/ws"))
}
