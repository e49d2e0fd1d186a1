// Package config loads the service configuration from MENTORING_* environment
// variables, optionally primed from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Primary store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Session and notes store backends. SessionStorePrimary reuses the primary store.
const (
	SessionStorePrimary = "primary"
	SessionStoreKV      = "kv"
	SessionStoreRedis   = "redis"
)

// Config captures environment driven configuration values for the mentoring service.
type Config struct {
	HTTPPort int

	Store     string
	SQLiteDSN string

	SessionStore  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	SessionTTL   time.Duration
	PasswordCost int
	SeedDemo     bool

	Location     *time.Location
	SlotInterval int

	LogLevel  string
	LogFormat string

	// CORSOrigins lists the browser origins allowed to call the API. "*" allows any.
	CORSOrigins []string

	// RateLimit is the sustained requests per second allowed per client. Zero disables limiting.
	RateLimit float64
	RateBurst int
}

// Load reads an optional .env file from the working directory and then the process environment.
func Load() (Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit .env path. A missing file is not an error.
// Variables already present in the environment win over the file.
func LoadFile(path string) (Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
	}
	return FromEnvironment()
}

// FromEnvironment parses configuration values from the current process environment.
//
// Defaults are applied for optional fields. Every missing or invalid variable is
// reported in a single error.
func FromEnvironment() (Config, error) {
	cfg := Config{
		HTTPPort:     8080,
		Store:        StoreMemory,
		SQLiteDSN:    "data/mentoring.db",
		SessionStore: SessionStorePrimary,
		RedisPrefix:  "mentoring:",
		SessionTTL:   24 * time.Hour,
		PasswordCost: 10,
		SeedDemo:     true,
		Location:     time.UTC,
		SlotInterval: 30,
		LogLevel:     "info",
		LogFormat:    "json",
		CORSOrigins:  []string{"*"},
		RateLimit:    20,
		RateBurst:    40,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if value := env("MENTORING_HTTP_PORT"); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "MENTORING_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if value := strings.ToLower(env("MENTORING_STORE")); value != "" {
		switch value {
		case StoreMemory, StoreSQLite:
			cfg.Store = value
		default:
			invalid = append(invalid, "MENTORING_STORE")
		}
	}
	if dsn := env("MENTORING_SQLITE_DSN"); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if value := strings.ToLower(env("MENTORING_SESSION_STORE")); value != "" {
		switch value {
		case SessionStorePrimary, SessionStoreKV, SessionStoreRedis:
			cfg.SessionStore = value
		default:
			invalid = append(invalid, "MENTORING_SESSION_STORE")
		}
	}
	cfg.RedisAddr = env("MENTORING_REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("MENTORING_REDIS_PASSWORD")
	if cfg.SessionStore == SessionStoreRedis && cfg.RedisAddr == "" {
		missing = append(missing, "MENTORING_REDIS_ADDR")
	}
	if value := env("MENTORING_REDIS_DB"); value != "" {
		db, err := strconv.Atoi(value)
		if err != nil || db < 0 {
			invalid = append(invalid, "MENTORING_REDIS_DB")
		} else {
			cfg.RedisDB = db
		}
	}
	if value, ok := os.LookupEnv("MENTORING_REDIS_PREFIX"); ok {
		cfg.RedisPrefix = strings.TrimSpace(value)
	}

	if value := env("MENTORING_SESSION_TTL"); value != "" {
		ttl, err := time.ParseDuration(value)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "MENTORING_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if value := env("MENTORING_PASSWORD_COST"); value != "" {
		cost, err := strconv.Atoi(value)
		if err != nil || cost < 4 || cost > 31 {
			invalid = append(invalid, "MENTORING_PASSWORD_COST")
		} else {
			cfg.PasswordCost = cost
		}
	}

	if value := env("MENTORING_SEED_DEMO"); value != "" {
		seed, err := strconv.ParseBool(value)
		if err != nil {
			invalid = append(invalid, "MENTORING_SEED_DEMO")
		} else {
			cfg.SeedDemo = seed
		}
	}

	if value := env("MENTORING_TIMEZONE"); value != "" {
		loc, err := time.LoadLocation(value)
		if err != nil {
			invalid = append(invalid, "MENTORING_TIMEZONE")
		} else {
			cfg.Location = loc
		}
	}

	if value := env("MENTORING_SLOT_INTERVAL"); value != "" {
		interval, err := strconv.Atoi(value)
		if err != nil || interval <= 0 || interval > 24*60 {
			invalid = append(invalid, "MENTORING_SLOT_INTERVAL")
		} else {
			cfg.SlotInterval = interval
		}
	}

	if value := strings.ToLower(env("MENTORING_LOG_LEVEL")); value != "" {
		switch value {
		case "debug", "info", "warn", "warning", "error":
			cfg.LogLevel = value
		default:
			invalid = append(invalid, "MENTORING_LOG_LEVEL")
		}
	}
	if value := strings.ToLower(env("MENTORING_LOG_FORMAT")); value != "" {
		switch value {
		case "json", "text":
			cfg.LogFormat = value
		default:
			invalid = append(invalid, "MENTORING_LOG_FORMAT")
		}
	}

	if value := env("MENTORING_CORS_ORIGINS"); value != "" {
		origins := make([]string, 0, 2)
		for _, origin := range strings.Split(value, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
		if len(origins) == 0 {
			invalid = append(invalid, "MENTORING_CORS_ORIGINS")
		} else {
			cfg.CORSOrigins = origins
		}
	}

	if value := env("MENTORING_RATE_LIMIT"); value != "" {
		limit, err := strconv.ParseFloat(value, 64)
		if err != nil || limit < 0 {
			invalid = append(invalid, "MENTORING_RATE_LIMIT")
		} else {
			cfg.RateLimit = limit
		}
	}
	if value := env("MENTORING_RATE_BURST"); value != "" {
		burst, err := strconv.Atoi(value)
		if err != nil || burst <= 0 {
			invalid = append(invalid, "MENTORING_RATE_BURST")
		} else {
			cfg.RateBurst = burst
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
