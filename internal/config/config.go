package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Store drivers.
const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
)

// Config holds server configuration.
type Config struct {
	// Addr is the listen address for the HTTP server.
	Addr           string
	JWTSecret      string
	Debug          bool
	LogLevel       string
	AllowedOrigins []string

	Store  StoreConfig
	Redis  RedisConfig
	Socket SocketConfig

	// FanoutQueueSize bounds the per-recipient notification queue.
	FanoutQueueSize int
}

// StoreConfig selects and configures the durable store.
type StoreConfig struct {
	Driver        string
	MongoURI      string
	MongoDatabase string
	SQLitePath    string
}

// RedisConfig configures the optional presence mirror. An empty Addr disables
// it.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	PresenceTTL time.Duration
}

// SocketConfig configures the Socket.IO endpoint.
type SocketConfig struct {
	Path         string
	PingInterval time.Duration
	PingTimeout  time.Duration
	// AllowedOrigins mirrors Config.AllowedOrigins for the handshake.
	AllowedOrigins []string
}

// Duration is a time.Duration that reads as text ("25s") from TOML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// fileConfig is the on-disk TOML shape. Unset keys keep their defaults.
type fileConfig struct {
	Addr           string   `toml:"addr"`
	Debug          *bool    `toml:"debug"`
	LogLevel       string   `toml:"log_level"`
	AllowedOrigins []string `toml:"allowed_origins"`
	FanoutQueue    int      `toml:"fanout_queue_size"`

	Store struct {
		Driver        string `toml:"driver"`
		MongoURI      string `toml:"mongo_uri"`
		MongoDatabase string `toml:"mongo_database"`
		SQLitePath    string `toml:"sqlite_path"`
	} `toml:"store"`

	Redis struct {
		Addr        string    `toml:"addr"`
		Password    string    `toml:"password"`
		DB          int       `toml:"db"`
		PresenceTTL *Duration `toml:"presence_ttl"`
	} `toml:"redis"`

	Socket struct {
		Path         string    `toml:"path"`
		PingInterval *Duration `toml:"ping_interval"`
		PingTimeout  *Duration `toml:"ping_timeout"`
	} `toml:"socket"`
}

// Overrides optionally overrides values from the file and environment.
//
// A nil pointer means "use the environment/default value".
type Overrides struct {
	ConfigFile  *string
	Addr        *string
	Debug       *bool
	LogLevel    *string
	StoreDriver *string
	MongoURI    *string
	SQLitePath  *string
	RedisAddr   *string
}

func defaults() *Config {
	return &Config{
		Addr:           ":5000",
		LogLevel:       "info",
		AllowedOrigins: []string{"*"},
		Store: StoreConfig{
			Driver:        DriverMongo,
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "chucklechain",
			SQLitePath:    "./chucklechain.db",
		},
		Redis: RedisConfig{
			PresenceTTL: 2 * time.Minute,
		},
		Socket: SocketConfig{
			Path:         "/socket.io",
			PingInterval: 25 * time.Second,
			PingTimeout:  20 * time.Second,
		},
		FanoutQueueSize: 256,
	}
}

// Load builds the configuration from, in increasing precedence: defaults, an
// optional TOML file, environment variables (a .env file is loaded first when
// present) and explicit overrides.
func Load(overrides Overrides) (*Config, error) {
	// Missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := defaults()

	path := os.Getenv("CHUCKLE_CONFIG")
	if overrides.ConfigFile != nil {
		path = *overrides.ConfigFile
	}
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	cfg.applyOverrides(overrides)
	cfg.Socket.AllowedOrigins = cfg.AllowedOrigins

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setString(&c.Addr, fc.Addr)
	setString(&c.LogLevel, fc.LogLevel)
	if fc.Debug != nil {
		c.Debug = *fc.Debug
	}
	if len(fc.AllowedOrigins) > 0 {
		c.AllowedOrigins = fc.AllowedOrigins
	}
	if fc.FanoutQueue > 0 {
		c.FanoutQueueSize = fc.FanoutQueue
	}

	setString(&c.Store.Driver, fc.Store.Driver)
	setString(&c.Store.MongoURI, fc.Store.MongoURI)
	setString(&c.Store.MongoDatabase, fc.Store.MongoDatabase)
	setString(&c.Store.SQLitePath, fc.Store.SQLitePath)

	setString(&c.Redis.Addr, fc.Redis.Addr)
	setString(&c.Redis.Password, fc.Redis.Password)
	if fc.Redis.DB != 0 {
		c.Redis.DB = fc.Redis.DB
	}
	if fc.Redis.PresenceTTL != nil {
		c.Redis.PresenceTTL = fc.Redis.PresenceTTL.Duration
	}

	setString(&c.Socket.Path, fc.Socket.Path)
	if fc.Socket.PingInterval != nil {
		c.Socket.PingInterval = fc.Socket.PingInterval.Duration
	}
	if fc.Socket.PingTimeout != nil {
		c.Socket.PingTimeout = fc.Socket.PingTimeout.Duration
	}
	return nil
}

func (c *Config) applyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Addr = fmt.Sprintf(":%d", p)
		}
	}
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.Debug = getEnvBool("DEBUG", c.Debug)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.AllowedOrigins = splitList(origins)
	}
	c.FanoutQueueSize = getEnvInt("FANOUT_QUEUE_SIZE", c.FanoutQueueSize)

	c.Store.Driver = getEnv("STORE_DRIVER", c.Store.Driver)
	c.Store.MongoURI = getEnv("MONGO_URI", c.Store.MongoURI)
	c.Store.MongoDatabase = getEnv("MONGO_DATABASE", c.Store.MongoDatabase)
	c.Store.SQLitePath = getEnv("DATABASE_PATH", c.Store.SQLitePath)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)
	c.Redis.PresenceTTL = getEnvDuration("REDIS_PRESENCE_TTL", c.Redis.PresenceTTL)

	c.Socket.Path = getEnv("SOCKET_PATH", c.Socket.Path)
	c.Socket.PingInterval = getEnvDuration("SOCKET_PING_INTERVAL", c.Socket.PingInterval)
	c.Socket.PingTimeout = getEnvDuration("SOCKET_PING_TIMEOUT", c.Socket.PingTimeout)
}

func (c *Config) applyOverrides(o Overrides) {
	if o.Addr != nil {
		c.Addr = *o.Addr
	}
	if o.Debug != nil {
		c.Debug = *o.Debug
	}
	if o.LogLevel != nil {
		c.LogLevel = *o.LogLevel
	}
	if o.StoreDriver != nil {
		c.Store.Driver = *o.StoreDriver
	}
	if o.MongoURI != nil {
		c.Store.MongoURI = *o.MongoURI
	}
	if o.SQLitePath != nil {
		c.Store.SQLitePath = *o.SQLitePath
	}
	if o.RedisAddr != nil {
		c.Redis.Addr = *o.RedisAddr
	}
}

// Validate checks that required fields are set and values are coherent.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if c.Addr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	switch c.Store.Driver {
	case DriverMongo:
		if c.Store.MongoURI == "" || c.Store.MongoDatabase == "" {
			return fmt.Errorf("MONGO_URI and MONGO_DATABASE are required for the mongo store")
		}
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("DATABASE_PATH is required for the sqlite store")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if !strings.HasPrefix(c.Socket.Path, "/") {
		return fmt.Errorf("socket path must start with '/': %q", c.Socket.Path)
	}
	if c.Socket.PingInterval <= 0 || c.Socket.PingTimeout <= 0 {
		return fmt.Errorf("socket ping interval and timeout must be > 0")
	}
	if c.FanoutQueueSize <= 0 {
		return fmt.Errorf("FANOUT_QUEUE_SIZE must be > 0")
	}
	return nil
}

// RedisEnabled reports whether the presence mirror should be started.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(value) {
		case "1", "true", "yes":
			return true
		case "0", "false", "no":
			return false
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
