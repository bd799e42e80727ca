package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv" // reads .env files into the process environment
	"gopkg.in/yaml.v3"         // optional YAML file with defaults
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable; the YAML keys given by APP_CONFIG use the same
// names.  The object is built once in main and passed to constructors.
type Config struct {
	Env      string // application environment (e.g. "dev", "prod")
	Port     string // HTTP port to listen on
	LogLevel string // debug, info, warn, error

	DBDriver    string // sqlite | mysql | postgres
	DBPath      string // sqlite database file
	DBUser      string // mysql user
	DBPass      string // mysql password (optional)
	DBHost      string // mysql host
	DBPort      string // mysql port
	DBName      string // mysql database name
	DatabaseURL string // postgres DSN

	TMDBAPIKey  string        // TMDB v3 api key
	TMDBAPIURL  string        // TMDB base URL, e.g. https://api.themoviedb.org/3
	TMDBTimeout time.Duration // per-request timeout for TMDB calls

	SessionSecret     string        // secret used to sign session tokens
	CookieSecure      bool          // Secure attribute of the session cookie
	CookieDomain      string        // Domain attribute of the session cookie
	CookieSameSite    http.SameSite // SameSite attribute of the session cookie
	CookieMaxAge      int           // session lifetime in seconds
	LoginRedirect     string        // when set, auth failures redirect here instead of 401
	BcryptCost        int           // bcrypt cost for password hashing
	EventsConsumer    bool          // run the movie event consumer in-process
	RabbitURL         string        // AMQP broker URL; empty disables the event feed
	MovieEventsLogDir string        // directory for the consumer's log file
}

// SessionTTL returns the configured cookie lifetime as a duration.
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.CookieMaxAge) * time.Second
}

// Load reads configuration from .env (if present), the optional YAML file
// named by APP_CONFIG and the process environment, in increasing order of
// precedence.  All missing or invalid required variables are reported
// together in the returned error.
func Load() (Config, error) {
	_ = godotenv.Load() // a missing .env file is not an error

	l := loader{}
	if path := os.Getenv("APP_CONFIG"); path != "" {
		if err := l.readFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg := Config{
		Env:      l.get("APP_ENV", "dev"),
		Port:     l.get("APP_PORT", "8000"),
		LogLevel: l.get("LOG_LEVEL", "info"),

		DBDriver:    strings.ToLower(l.get("DB_DRIVER", "sqlite")),
		DBPath:      l.get("DB_PATH", "database.sqlite"),
		DBUser:      l.get("DB_USER", ""),
		DBPass:      l.get("DB_PASS", ""),
		DBHost:      l.get("DB_HOST", "localhost"),
		DBPort:      l.get("DB_PORT", "3306"),
		DBName:      l.get("DB_NAME", "movies"),
		DatabaseURL: l.get("DATABASE_URL", ""),

		TMDBAPIKey:  l.must("TMDB_API_TOKEN"),
		TMDBAPIURL:  strings.TrimRight(l.must("TMDB_API_URL"), "/"),
		TMDBTimeout: l.duration("TMDB_TIMEOUT", 10*time.Second),

		SessionSecret:     l.must("SESSION_SECRET"),
		CookieSecure:      l.mustBool("COOKIE_SECURE"),
		CookieDomain:      l.mustPresent("COOKIE_DOMAIN"),
		CookieSameSite:    l.mustSameSite("COOKIE_SAMESITE"),
		CookieMaxAge:      l.mustInt("COOKIE_MAX_AGE"),
		LoginRedirect:     l.get("AUTH_LOGIN_REDIRECT", ""),
		BcryptCost:        l.integer("BCRYPT_COST", 12),
		EventsConsumer:    l.boolean("MOVIE_EVENTS_CONSUMER", false),
		RabbitURL:         l.get("RABBITMQ_URL", l.get("AMQP_URL", "")),
		MovieEventsLogDir: l.get("MOVIE_EVENTS_LOG_DIR", "logs"),
	}
	switch cfg.DBDriver {
	case "sqlite", "mysql", "postgres":
	default:
		l.fail("invalid DB_DRIVER: %q", cfg.DBDriver)
	}
	if cfg.DBDriver == "postgres" && cfg.DatabaseURL == "" {
		l.fail("missing required env var: DATABASE_URL")
	}
	if cfg.DBDriver == "mysql" && cfg.DBUser == "" {
		l.fail("missing required env var: DB_USER")
	}
	if err := errors.Join(l.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loader resolves keys against the environment first and the YAML file
// second, collecting errors instead of exiting on the first one.
type loader struct {
	file map[string]string
	errs []error
}

func (l *loader) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	l.file = make(map[string]string, len(raw))
	for k, v := range raw {
		l.file[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return nil
}

func (l *loader) lookup(key string) (string, bool) {
	if v, ok := os.LookupEnv(key); ok {
		return v, true
	}
	v, ok := l.file[key]
	return v, ok
}

func (l *loader) fail(format string, args ...any) {
	l.errs = append(l.errs, fmt.Errorf(format, args...))
}

func (l *loader) get(key, def string) string {
	if v, ok := l.lookup(key); ok && v != "" {
		return v
	}
	return def
}

// must retrieves the value of a required variable.  Unset or empty values
// are recorded as errors.
func (l *loader) must(key string) string {
	v, ok := l.lookup(key)
	if !ok || v == "" {
		l.fail("missing required env var: %s", key)
	}
	return v
}

// mustPresent requires the variable to be set but allows an empty value
// (an empty cookie domain means host-only cookies).
func (l *loader) mustPresent(key string) string {
	v, ok := l.lookup(key)
	if !ok {
		l.fail("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func (l *loader) mustInt(key string) int {
	s := l.must(key)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		l.fail("invalid int for %s: %q", key, s)
	}
	return n
}

func (l *loader) mustBool(key string) bool {
	s := l.must(key)
	if s == "" {
		return false
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		l.fail("invalid bool for %s: %q", key, s)
	}
	return b
}

func (l *loader) mustSameSite(key string) http.SameSite {
	s := l.must(key)
	switch strings.ToLower(s) {
	case "lax":
		return http.SameSiteLaxMode
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "":
		return http.SameSiteDefaultMode
	}
	l.fail("invalid samesite for %s: %q", key, s)
	return http.SameSiteDefaultMode
}

func (l *loader) integer(key string, def int) int {
	v, ok := l.lookup(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		l.fail("invalid int for %s: %q", key, v)
		return def
	}
	return n
}

func (l *loader) boolean(key string, def bool) bool {
	v, ok := l.lookup(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		l.fail("invalid bool for %s: %q", key, v)
		return def
	}
	return b
}

func (l *loader) duration(key string, def time.Duration) time.Duration {
	v, ok := l.lookup(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		l.fail("invalid duration for %s: %q", key, v)
		return def
	}
	return d
}
