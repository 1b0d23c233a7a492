package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/examgen/internal/config"
	"github.com/abhisek/examgen/internal/logging"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.DBDSN = filepath.Join(t.TempDir(), "app.db")
	cfg.QuotaBackend = config.QuotaMemory
	cfg.JWTSigningKey = "test-signing-key"
	cfg.LLM.Anthropic.APIKey = "sk-test"
	return cfg
}

func newTestApp(t *testing.T, cfg config.Config) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWTSigningKey = ""

	_, err := New(context.Background(), cfg, logging.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestHandlerServesHealthAndMetrics(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	w := httptest.NewRecorder()
	a.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	a.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestHandlerRequiresToken(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	w := httptest.NewRecorder()
	a.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/exams/abc", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Limit"), "unauthenticated calls still count against a quota")
}

func TestHandlerAppliesConfiguredQuota(t *testing.T) {
	cfg := testConfig(t)
	p := cfg.Policies["api"]
	p.MaxRequests = 1
	cfg.Policies["api"] = p
	a := newTestApp(t, cfg)

	token, err := a.Verifier.Issue("alice", time.Hour)
	require.NoError(t, err)

	codes := make([]int, 2)
	for i := range codes {
		req := httptest.NewRequest(http.MethodGet, "/exams/missing", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		a.Handler.ServeHTTP(w, req)
		codes[i] = w.Code
	}
	assert.Equal(t, []int{http.StatusNotFound, http.StatusTooManyRequests}, codes)
}

func TestRunStopsOnCancel(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
