package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/examgen/internal/ratelimit"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		if key, _, _ := strings.Cut(kv, "="); strings.HasPrefix(key, "EXAMGEN_") {
			t.Setenv(key, "")
		}
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, QuotaSQL, cfg.QuotaBackend)
	assert.Equal(t, ratelimit.DefaultSweepInterval, cfg.SweepInterval)
	assert.Equal(t, 100, cfg.Policies[ratelimit.ClassAPI].MaxRequests)
	assert.NotNil(t, cfg.Policies[ratelimit.ClassAPI].KeyStrategy)
	assert.Nil(t, cfg.Policies[ratelimit.ClassPayment].KeyStrategy)
}

func TestFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("EXAMGEN_ADDR", ":9090")
	t.Setenv("EXAMGEN_QUOTA_BACKEND", "redis")
	t.Setenv("EXAMGEN_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("EXAMGEN_RATELIMIT_API_WINDOW_MS", "60000")
	t.Setenv("EXAMGEN_RATELIMIT_API_MAX", "3")
	t.Setenv("EXAMGEN_RATELIMIT_SWEEP_INTERVAL", "30s")
	t.Setenv("EXAMGEN_PROVIDER_TIMEOUT", "45s")
	t.Setenv("EXAMGEN_MAX_QUESTIONS", "20")
	t.Setenv("EXAMGEN_TRACE_EXPORTER", "stdout")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, QuotaRedis, cfg.QuotaBackend)
	assert.Equal(t, time.Minute, cfg.Policies[ratelimit.ClassAPI].Window)
	assert.Equal(t, 3, cfg.Policies[ratelimit.ClassAPI].MaxRequests)
	assert.Equal(t, time.Hour, cfg.Policies[ratelimit.ClassUpload].Window)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, 45*time.Second, cfg.Generation.ProviderTimeout)
	assert.Equal(t, 20, cfg.Generation.MaxQuestions)
	assert.Equal(t, TraceStdout, cfg.TraceExporter)
}

func TestFromEnvRejectsMalformedValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("EXAMGEN_RATELIMIT_AUTH_MAX", "ten")
	t.Setenv("EXAMGEN_PROVIDER_TIMEOUT", "soon")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EXAMGEN_RATELIMIT_AUTH_MAX")
	assert.Contains(t, err.Error(), "EXAMGEN_PROVIDER_TIMEOUT")
}

func TestLoadReadsEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("EXAMGEN_LOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("EXAMGEN_LOG_LEVEL") })
	t.Setenv("EXAMGEN_LOG_FORMAT", "text")
	os.Unsetenv("EXAMGEN_LOG_LEVEL")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadIgnoresMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.JWTSigningKey = "secret"
		cfg.LLM.Anthropic.APIKey = "sk-test"
		return cfg
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no llm keys", func(c *Config) { c.LLM.Anthropic.APIKey = "" }, "no LLM provider configured"},
		{"redis without url", func(c *Config) { c.QuotaBackend = QuotaRedis }, "EXAMGEN_REDIS_URL"},
		{"unknown backend", func(c *Config) { c.QuotaBackend = "etcd" }, "unknown quota backend"},
		{"postgres without dsn", func(c *Config) { c.DBDriver = "postgres" }, "EXAMGEN_DB_DSN"},
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }, "unsupported database driver"},
		{"unknown trace exporter", func(c *Config) { c.TraceExporter = "jaeger" }, "unknown trace exporter"},
		{"no signing key", func(c *Config) { c.JWTSigningKey = "" }, "EXAMGEN_JWT_SIGNING_KEY"},
		{"zero window", func(c *Config) {
			p := c.Policies[ratelimit.ClassAPI]
			p.Window = 0
			c.Policies[ratelimit.ClassAPI] = p
		}, "window must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
