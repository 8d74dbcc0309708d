package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverPostgres = "postgres"
	DriverREST     = "rest"
	DriverMemory   = "memory"
)

// ErrStoreCredentials is returned by Validate when the configured tenant store cannot be reached
// with the given settings.
var ErrStoreCredentials = errors.New("tenant store credentials missing")

// DatabaseConfig Postgres connection settings for the postgres store driver.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN lib/pq keyword/value connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig shared host cache tier; disabled unless REDIS_ENABLED=true.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	Timeout  time.Duration // per operation
}

// Config atlashvac site server configuration
type Config struct {
	HTTP struct {
		Addr string
	}

	// Tenant routing
	BaseDomain         string
	BypassPathPrefixes []string

	// Tenant store
	Store struct {
		Driver     string // postgres | rest | memory
		Endpoint   string // hosted REST endpoint, e.g. https://xyz.supabase.co
		Credential string // anon / service key for the REST endpoint
		Timeout    time.Duration
	}
	Database DatabaseConfig
	Redis    RedisConfig

	Cache struct {
		Size        int
		TTL         time.Duration
		NegativeTTL time.Duration
		KeyPrefix   string
	}

	Log struct {
		Level  string
		Format string
	}
}

var defaultBypassPrefixes = "/api/,/_internal/,/static-assets/,/favicon.ico,/images/"

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.BaseDomain = strings.ToLower(strings.TrimSpace(getEnv("BASE_DOMAIN", "hvacinvoicepro.com")))
	cfg.BypassPathPrefixes = splitList(getEnv("BYPASS_PATH_PREFIXES", defaultBypassPrefixes))

	cfg.Store.Driver = strings.ToLower(getEnv("STORE_DRIVER", DriverPostgres))
	cfg.Store.Endpoint = strings.TrimRight(getEnv("STORE_ENDPOINT", ""), "/")
	cfg.Store.Credential = getEnv("STORE_CREDENTIAL", "")
	cfg.Store.Timeout = parseDuration(getEnv("STORE_TIMEOUT", "5s"), 5*time.Second)

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "")
	cfg.Database.Database = getEnv("DB_NAME", "postgres")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "require")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Enabled = getEnv("REDIS_ENABLED", "false") == "true"
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)
	cfg.Redis.Timeout = parseDuration(getEnv("REDIS_TIMEOUT", "250ms"), 250*time.Millisecond)

	cfg.Cache.Size = parseInt(getEnv("CACHE_SIZE", "1024"), 1024)
	cfg.Cache.TTL = parseDuration(getEnv("CACHE_TTL", "5m"), 5*time.Minute)
	cfg.Cache.NegativeTTL = parseDuration(getEnv("CACHE_NEGATIVE_TTL", "30s"), 30*time.Second)
	cfg.Cache.KeyPrefix = getEnv("CACHE_KEY_PREFIX", "atlashvac:tenant-host:")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg
}

// Validate checks that the selected tenant store has what it needs to connect.
// A failure here is not fatal: the server keeps running with routing in passthrough mode.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
		return nil
	case DriverREST:
		if c.Store.Endpoint == "" || c.Store.Credential == "" {
			return fmt.Errorf("%w: STORE_ENDPOINT and STORE_CREDENTIAL are required for driver %q", ErrStoreCredentials, c.Store.Driver)
		}
		return nil
	case DriverPostgres:
		if c.Database.Host == "" || c.Database.User == "" || c.Database.Password == "" {
			return fmt.Errorf("%w: DB_HOST, DB_USER and DB_PASSWORD are required for driver %q", ErrStoreCredentials, c.Store.Driver)
		}
		return nil
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
