package config

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("TMDB_API_TOKEN", "TESTING")
	t.Setenv("TMDB_API_URL", "https://api.themoviedb.org/3/")
	t.Setenv("SESSION_SECRET", "secret")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("COOKIE_DOMAIN", "")
	t.Setenv("COOKIE_SAMESITE", "strict")
	t.Setenv("COOKIE_MAX_AGE", "3600")
}

func TestLoadRequiredAndDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.TMDBAPIURL != "https://api.themoviedb.org/3" {
		t.Fatalf("tmdb url = %q, want trailing slash trimmed", cfg.TMDBAPIURL)
	}
	if !cfg.CookieSecure {
		t.Fatalf("cookie secure = false, want true")
	}
	if cfg.CookieSameSite != http.SameSiteStrictMode {
		t.Fatalf("samesite = %v, want strict", cfg.CookieSameSite)
	}
	if cfg.SessionTTL() != time.Hour {
		t.Fatalf("session ttl = %s, want 1h", cfg.SessionTTL())
	}
	if cfg.DBDriver != "sqlite" || cfg.DBPath != "database.sqlite" {
		t.Fatalf("db defaults = %q %q", cfg.DBDriver, cfg.DBPath)
	}
	if cfg.TMDBTimeout != 10*time.Second {
		t.Fatalf("tmdb timeout = %s, want 10s", cfg.TMDBTimeout)
	}
}

func TestLoadReportsEveryMissingVariable(t *testing.T) {
	for _, k := range []string{"TMDB_API_TOKEN", "TMDB_API_URL", "SESSION_SECRET", "COOKIE_SECURE", "COOKIE_DOMAIN", "COOKIE_SAMESITE", "COOKIE_MAX_AGE", "APP_CONFIG"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error for missing configuration")
	}
	for _, k := range []string{"TMDB_API_TOKEN", "TMDB_API_URL", "SESSION_SECRET", "COOKIE_DOMAIN", "COOKIE_MAX_AGE"} {
		if !strings.Contains(err.Error(), k) {
			t.Fatalf("error %q does not mention %s", err, k)
		}
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	setRequired(t)
	t.Setenv("COOKIE_SAMESITE", "sideways")
	t.Setenv("COOKIE_MAX_AGE", "forever")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error for invalid values")
	}
	if !strings.Contains(err.Error(), "COOKIE_SAMESITE") || !strings.Contains(err.Error(), "COOKIE_MAX_AGE") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadYAMLFileWithEnvOverride(t *testing.T) {
	setRequired(t)
	t.Setenv("SESSION_SECRET", "")
	os.Unsetenv("SESSION_SECRET")
	t.Setenv("APP_PORT", "9090")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
session_secret: from-file
app_port: "7000"
db_path: /tmp/movies.sqlite
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("APP_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.SessionSecret != "from-file" {
		t.Fatalf("session secret = %q, want from-file", cfg.SessionSecret)
	}
	if cfg.Port != "9090" {
		t.Fatalf("port = %q, want env override 9090", cfg.Port)
	}
	if cfg.DBPath != "/tmp/movies.sqlite" {
		t.Fatalf("db path = %q", cfg.DBPath)
	}
}

func TestRateLimitConfigNormalizes(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	if cfg.Capacity != 1 {
		t.Fatalf("capacity = %d, want 1", cfg.Capacity)
	}
	if cfg.TTL != 10*time.Second {
		t.Fatalf("ttl = %s, want 10s", cfg.TTL)
	}
	if cfg.RatePerSecond() != 0.5 {
		t.Fatalf("rate = %v, want 0.5", cfg.RatePerSecond())
	}
}
