// Package config reads the process configuration once at startup.
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

	"github.com/abhisek/examgen/internal/generation"
	"github.com/abhisek/examgen/internal/llm"
	"github.com/abhisek/examgen/internal/ratelimit"
)

// Quota backends.
const (
	QuotaSQL    = "sql"
	QuotaMemory = "memory"
	QuotaRedis  = "redis"
)

// Trace exporters.
const (
	TraceNone   = "none"
	TraceStdout = "stdout"
)

// Config is everything the service needs, built once and passed down.
type Config struct {
	Addr string

	// DBDriver is "sqlite" or "postgres". An empty DBDSN with sqlite means
	// the default data path.
	DBDriver string
	DBDSN    string

	QuotaBackend string
	RedisURL     string

	// RateLimitDisabled turns the middleware into a pass-through.
	RateLimitDisabled bool
	SweepInterval     time.Duration
	Policies          ratelimit.Policies

	JWTSigningKey string
	JWTIssuer     string

	LogLevel  string
	LogFormat string

	// TraceExporter is where finished spans go: none or stdout.
	TraceExporter string

	LLM        llm.Config
	Generation generation.Config
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	policies := ratelimit.DefaultPolicies()
	for _, class := range []ratelimit.EndpointClass{ratelimit.ClassAPI, ratelimit.ClassUpload} {
		p := policies[class]
		p.KeyStrategy = ratelimit.UserOrFingerprint
		policies[class] = p
	}

	return Config{
		Addr:          ":8080",
		DBDriver:      "sqlite",
		QuotaBackend:  QuotaSQL,
		SweepInterval: ratelimit.DefaultSweepInterval,
		Policies:      policies,
		JWTIssuer:     "examgen",
		LogLevel:      "info",
		LogFormat:     "json",
		TraceExporter: TraceNone,
		LLM:           llm.DefaultConfig(),
		Generation:    generation.DefaultConfig(),
	}
}

// Load reads the given .env files (default ".env") when they exist, then
// the environment. Variables already set in the environment win.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from EXAMGEN_* variables over Default.
func FromEnv() (Config, error) {
	cfg := Default()
	cfg.LLM = llm.ConfigFromEnv()

	setString(&cfg.Addr, "EXAMGEN_ADDR")
	setString(&cfg.DBDriver, "EXAMGEN_DB_DRIVER")
	setString(&cfg.DBDSN, "EXAMGEN_DB_DSN")
	setString(&cfg.QuotaBackend, "EXAMGEN_QUOTA_BACKEND")
	setString(&cfg.RedisURL, "EXAMGEN_REDIS_URL")
	setString(&cfg.JWTSigningKey, "EXAMGEN_JWT_SIGNING_KEY")
	setString(&cfg.JWTIssuer, "EXAMGEN_JWT_ISSUER")
	setString(&cfg.LogLevel, "EXAMGEN_LOG_LEVEL")
	setString(&cfg.LogFormat, "EXAMGEN_LOG_FORMAT")
	setString(&cfg.TraceExporter, "EXAMGEN_TRACE_EXPORTER")

	var errs []error
	errs = append(errs,
		setBool(&cfg.RateLimitDisabled, "EXAMGEN_RATELIMIT_DISABLED"),
		setDuration(&cfg.SweepInterval, "EXAMGEN_RATELIMIT_SWEEP_INTERVAL"),
		setDuration(&cfg.Generation.ProviderTimeout, "EXAMGEN_PROVIDER_TIMEOUT"),
		setInt(&cfg.Generation.MaxSourceChars, "EXAMGEN_MAX_SOURCE_CHARS"),
		setInt(&cfg.Generation.MaxQuestions, "EXAMGEN_MAX_QUESTIONS"),
	)
	cfg.Generation.MaxTokens = cfg.LLM.MaxTokens
	cfg.Generation.Temperature = cfg.LLM.Temperature

	for _, class := range ratelimit.Classes {
		p := cfg.Policies[class]
		prefix := "EXAMGEN_RATELIMIT_" + strings.ToUpper(string(class))

		var windowMs int
		if err := setInt(&windowMs, prefix+"_WINDOW_MS"); err != nil {
			errs = append(errs, err)
		} else if windowMs != 0 {
			p.Window = time.Duration(windowMs) * time.Millisecond
		}
		errs = append(errs, setInt(&p.MaxRequests, prefix+"_MAX"))
		cfg.Policies[class] = p
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every setting that would stop the service from
// starting.
func (c Config) Validate() error {
	var errs []error
	if err := c.LLM.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Policies.Validate(); err != nil {
		errs = append(errs, err)
	}
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.DBDriver))
	}
	if c.DBDriver == "postgres" && c.DBDSN == "" {
		errs = append(errs, errors.New("EXAMGEN_DB_DSN is required for postgres"))
	}
	switch c.QuotaBackend {
	case QuotaSQL, QuotaMemory:
	case QuotaRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("EXAMGEN_REDIS_URL is required for the redis quota backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown quota backend %q", c.QuotaBackend))
	}
	switch c.TraceExporter {
	case TraceNone, TraceStdout:
	default:
		errs = append(errs, fmt.Errorf("unknown trace exporter %q", c.TraceExporter))
	}
	if c.JWTSigningKey == "" {
		errs = append(errs, errors.New("EXAMGEN_JWT_SIGNING_KEY is not set"))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, errors.New("sweep interval must be positive"))
	}
	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
