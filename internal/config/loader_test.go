package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var allKeys = []string{
	"MENTORING_HTTP_PORT",
	"MENTORING_STORE",
	"MENTORING_SQLITE_DSN",
	"MENTORING_SESSION_STORE",
	"MENTORING_REDIS_ADDR",
	"MENTORING_REDIS_PASSWORD",
	"MENTORING_REDIS_DB",
	"MENTORING_REDIS_PREFIX",
	"MENTORING_SESSION_TTL",
	"MENTORING_PASSWORD_COST",
	"MENTORING_SEED_DEMO",
	"MENTORING_TIMEZONE",
	"MENTORING_SLOT_INTERVAL",
	"MENTORING_LOG_LEVEL",
	"MENTORING_LOG_FORMAT",
	"MENTORING_RATE_LIMIT",
	"MENTORING_RATE_BURST",
	"MENTORING_CORS_ORIGINS",
}

// clearEnv unsets every variable the loader reads and restores them when the test ends.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("failed to unset %s: %v", key, err)
		}
	}
}

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		clearEnv(t)

		cfg, err := FromEnvironment()
		if err != nil {
			t.Fatalf("FromEnvironment returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 || cfg.Addr() != ":8080" {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.Store != StoreMemory || cfg.SessionStore != SessionStorePrimary {
			t.Fatalf("unexpected default stores %q / %q", cfg.Store, cfg.SessionStore)
		}
		if cfg.SQLiteDSN != "data/mentoring.db" {
			t.Fatalf("unexpected default DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.SessionTTL != 24*time.Hour || cfg.SlotInterval != 30 || !cfg.SeedDemo {
			t.Fatalf("unexpected defaults %+v", cfg)
		}
		if cfg.Location != time.UTC || cfg.RedisPrefix != "mentoring:" {
			t.Fatalf("unexpected defaults %+v", cfg)
		}
		if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
			t.Fatalf("expected CORS to allow any origin by default, got %v", cfg.CORSOrigins)
		}
	})

	t.Run("errors when redis sessions lack an address", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MENTORING_SESSION_STORE", "redis")

		_, err := FromEnvironment()
		if err == nil {
			t.Fatalf("expected error when required values are missing")
		}
		expected := "missing required environment variables: MENTORING_REDIS_ADDR"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("reports every invalid value", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MENTORING_HTTP_PORT", "eighty")
		t.Setenv("MENTORING_STORE", "postgres")
		t.Setenv("MENTORING_TIMEZONE", "Mars/Olympus")

		_, err := FromEnvironment()
		if err == nil {
			t.Fatal("expected error for invalid values")
		}
		expected := "invalid environment variable values: MENTORING_HTTP_PORT, MENTORING_STORE, MENTORING_TIMEZONE"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("parses duration and numeric fields", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MENTORING_HTTP_PORT", "9090")
		t.Setenv("MENTORING_STORE", "SQLite")
		t.Setenv("MENTORING_SQLITE_DSN", "/tmp/mentoring.db")
		t.Setenv("MENTORING_SESSION_STORE", "redis")
		t.Setenv("MENTORING_REDIS_ADDR", "localhost:6379")
		t.Setenv("MENTORING_REDIS_DB", "2")
		t.Setenv("MENTORING_SESSION_TTL", "2h")
		t.Setenv("MENTORING_PASSWORD_COST", "4")
		t.Setenv("MENTORING_SEED_DEMO", "false")
		t.Setenv("MENTORING_TIMEZONE", "Asia/Kolkata")
		t.Setenv("MENTORING_SLOT_INTERVAL", "45")
		t.Setenv("MENTORING_RATE_LIMIT", "0")
		t.Setenv("MENTORING_CORS_ORIGINS", "https://mentoring.example.edu, http://localhost:5173,")

		cfg, err := FromEnvironment()
		if err != nil {
			t.Fatalf("FromEnvironment returned error: %v", err)
		}

		if cfg.Store != StoreSQLite || cfg.SQLiteDSN != "/tmp/mentoring.db" {
			t.Fatalf("unexpected store settings %+v", cfg)
		}
		if cfg.RedisAddr != "localhost:6379" || cfg.RedisDB != 2 {
			t.Fatalf("unexpected redis settings %+v", cfg)
		}
		if cfg.SessionTTL != 2*time.Hour {
			t.Fatalf("expected session TTL 2h, got %s", cfg.SessionTTL)
		}
		if cfg.PasswordCost != 4 || cfg.SeedDemo || cfg.SlotInterval != 45 || cfg.RateLimit != 0 {
			t.Fatalf("unexpected numeric settings %+v", cfg)
		}
		if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://localhost:5173" {
			t.Fatalf("unexpected CORS origins %v", cfg.CORSOrigins)
		}
		if cfg.Location.String() != "Asia/Kolkata" {
			t.Fatalf("expected Asia/Kolkata, got %s", cfg.Location)
		}
	})
}

func TestLoadFile(t *testing.T) {

	t.Run("reads values from a dotenv file", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), ".env")
		content := "MENTORING_SLOT_INTERVAL=60\nMENTORING_LOG_FORMAT=text\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("write env file: %v", err)
		}

		cfg, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile returned error: %v", err)
		}
		if cfg.SlotInterval != 60 || cfg.LogFormat != "text" {
			t.Fatalf("expected values from file, got %+v", cfg)
		}
	})

	t.Run("environment wins over the file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MENTORING_SLOT_INTERVAL", "15")
		path := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(path, []byte("MENTORING_SLOT_INTERVAL=60\n"), 0o600); err != nil {
			t.Fatalf("write env file: %v", err)
		}

		cfg, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile returned error: %v", err)
		}
		if cfg.SlotInterval != 15 {
			t.Fatalf("expected environment value 15, got %d", cfg.SlotInterval)
		}
	})

	t.Run("missing file is ignored", func(t *testing.T) {
		clearEnv(t)
		if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.env")); err != nil {
			t.Fatalf("expected missing file to be ignored, got %v", err)
		}
	})
}
