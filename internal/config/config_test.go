package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load(Overrides{})
	require.Error(t, err)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load(Overrides{})
	require.NoError(t, err)
	require.Equal(t, ":5000", cfg.Addr)
	require.Equal(t, DriverMongo, cfg.Store.Driver)
	require.Equal(t, "/socket.io", cfg.Socket.Path)
	require.Equal(t, 25*time.Second, cfg.Socket.PingInterval)
	require.False(t, cfg.RedisEnabled())
}

func TestLoad_FileThenEnvThenOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr = ":7000"
log_level = "debug"

[store]
driver = "sqlite"
sqlite_path = "/tmp/from-file.db"

[redis]
addr = "localhost:6379"
presence_ttl = "90s"

[socket]
ping_timeout = "5s"
`), 0o600))

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DATABASE_PATH", "/tmp/from-env.db")
	t.Setenv("PORT", "")

	addr := ":9000"
	cfg, err := Load(Overrides{ConfigFile: &path, Addr: &addr})
	require.NoError(t, err)

	require.Equal(t, ":9000", cfg.Addr)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, DriverSQLite, cfg.Store.Driver)
	require.Equal(t, "/tmp/from-env.db", cfg.Store.SQLitePath)
	require.True(t, cfg.RedisEnabled())
	require.Equal(t, 90*time.Second, cfg.Redis.PresenceTTL)
	require.Equal(t, 5*time.Second, cfg.Socket.PingTimeout)
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := defaults()
	cfg.JWTSecret = "x"
	cfg.Store.Driver = "postgres"
	require.Error(t, cfg.Validate())
}

func TestValidate_SocketPath(t *testing.T) {
	cfg := defaults()
	cfg.JWTSecret = "x"
	cfg.Socket.Path = "socket.io"
	require.Error(t, cfg.Validate())
}

func TestLoad_SocketSharesAllowedOrigins(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ALLOWED_ORIGINS", "https://app.chucklechain.com,https://admin.chucklechain.com")

	cfg, err := Load(Overrides{})
	require.NoError(t, err)
	require.Equal(t, []string{"https://app.chucklechain.com", "https://admin.chucklechain.com"}, cfg.AllowedOrigins)
	require.Equal(t, cfg.AllowedOrigins, cfg.Socket.AllowedOrigins)
}
