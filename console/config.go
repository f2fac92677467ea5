package console

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"

	defaultAPIURL   = "http://localhost:8000/api"
	defaultPageSize = 10
	defaultTimeout  = 30 * time.Second
)

// Config holds everything the console needs to reach the API and keep its
// session on disk.
type Config struct {
	APIURL         string
	StateDir       string
	SessionBackend string
	RedisURL       string
	PageSize       int
	HTTPTimeout    time.Duration
	LogFile        string
	Debug          bool
}

// LoadConfig reads .env (when present) and LIBADMIN_* variables.
func LoadConfig() Config {
	_ = godotenv.Load()

	stateDir := os.Getenv("LIBADMIN_STATE_DIR")
	if stateDir == "" {
		stateDir = defaultStateDir()
	}
	cfg := Config{
		APIURL:         strings.TrimRight(envString("LIBADMIN_API_URL", defaultAPIURL), "/"),
		StateDir:       stateDir,
		SessionBackend: strings.ToLower(envString("LIBADMIN_SESSION_BACKEND", BackendSQLite)),
		RedisURL:       os.Getenv("LIBADMIN_REDIS_URL"),
		PageSize:       int(parseInt("LIBADMIN_PAGE_SIZE", defaultPageSize)),
		HTTPTimeout:    parseDuration("LIBADMIN_HTTP_TIMEOUT", defaultTimeout),
		LogFile:        os.Getenv("LIBADMIN_LOG_FILE"),
		Debug:          os.Getenv("LIBADMIN_DEBUG") == "1",
	}
	return cfg
}

// SessionDBPath is where the sqlite session backend keeps its file.
func (c Config) SessionDBPath() string { return filepath.Join(c.StateDir, "session.db") }

// KeyPath is where the token sealing key lives.
func (c Config) KeyPath() string { return filepath.Join(c.StateDir, "session.key") }

// LogPath resolves the log file, defaulting into the state dir.
func (c Config) LogPath() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	return filepath.Join(c.StateDir, "console.log")
}

// Validate fails fast on configuration the console cannot work with.
func (c Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("LIBADMIN_API_URL %q is not an absolute URL", c.APIURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("LIBADMIN_API_URL scheme must be http or https, got %q", u.Scheme)
	}
	if c.PageSize < 1 {
		return errors.New("LIBADMIN_PAGE_SIZE must be >= 1")
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("LIBADMIN_HTTP_TIMEOUT must be > 0")
	}
	switch c.SessionBackend {
	case BackendSQLite:
	case BackendRedis:
		if c.RedisURL == "" {
			return errors.New("LIBADMIN_REDIS_URL is required for the redis session backend")
		}
	default:
		return fmt.Errorf("unknown session backend %q", c.SessionBackend)
	}
	if c.StateDir == "" {
		return errors.New("state dir is empty")
	}
	return nil
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".library-admin"
	}
	return filepath.Join(home, ".library-admin")
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
