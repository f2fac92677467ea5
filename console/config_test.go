package console

import (
	"strings"
	"testing"
	"time"
)

func TestLoadConfigFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LIBADMIN_API_URL", "https://library.example.com/api/")
	t.Setenv("LIBADMIN_STATE_DIR", dir)
	t.Setenv("LIBADMIN_SESSION_BACKEND", "SQLite")
	t.Setenv("LIBADMIN_PAGE_SIZE", "25")
	t.Setenv("LIBADMIN_HTTP_TIMEOUT", "5s")
	t.Setenv("LIBADMIN_DEBUG", "1")

	cfg := LoadConfig()
	if cfg.APIURL != "https://library.example.com/api" {
		t.Fatalf("api url = %q", cfg.APIURL)
	}
	if cfg.SessionBackend != BackendSQLite || cfg.PageSize != 25 || cfg.HTTPTimeout != 5*time.Second || !cfg.Debug {
		t.Fatalf("cfg = %+v", cfg)
	}
	if !strings.HasPrefix(cfg.SessionDBPath(), dir) || !strings.HasPrefix(cfg.LogPath(), dir) {
		t.Fatalf("paths not under the state dir: %s %s", cfg.SessionDBPath(), cfg.LogPath())
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("LIBADMIN_API_URL", "")
	t.Setenv("LIBADMIN_PAGE_SIZE", "not-a-number")
	t.Setenv("LIBADMIN_HTTP_TIMEOUT", "")
	t.Setenv("LIBADMIN_SESSION_BACKEND", "")

	cfg := LoadConfig()
	if cfg.APIURL != defaultAPIURL || cfg.PageSize != defaultPageSize || cfg.HTTPTimeout != defaultTimeout || cfg.SessionBackend != BackendSQLite {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := Config{
		APIURL:         "http://localhost:8000/api",
		StateDir:       "/tmp/libadmin",
		SessionBackend: BackendSQLite,
		PageSize:       10,
		HTTPTimeout:    time.Second,
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"relative url", func(c *Config) { c.APIURL = "/api" }, "absolute URL"},
		{"ftp", func(c *Config) { c.APIURL = "ftp://host/api" }, "scheme"},
		{"page size", func(c *Config) { c.PageSize = 0 }, "PAGE_SIZE"},
		{"timeout", func(c *Config) { c.HTTPTimeout = 0 }, "TIMEOUT"},
		{"redis without url", func(c *Config) { c.SessionBackend = BackendRedis }, "REDIS_URL"},
		{"unknown backend", func(c *Config) { c.SessionBackend = "etcd" }, "unknown session backend"},
	}
	for _, tt := range tests {
		c := valid
		tt.mutate(&c)
		err := c.Validate()
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: got %v, want error containing %q", tt.name, err, tt.want)
		}
	}

	redis := valid
	redis.SessionBackend, redis.RedisURL = BackendRedis, "redis://localhost:6379/0"
	if err := redis.Validate(); err != nil {
		t.Fatalf("redis config: %v", err)
	}
}
