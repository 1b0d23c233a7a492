package ratelimit

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/abhisek/examgen/internal/httputil"
)

// ExceededResponse is the JSON body of a 429 reply.
type ExceededResponse struct {
	Error      string    `json:"error"`
	Reason     string    `json:"reason"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"resetAt"`
	RetryAfter int       `json:"retryAfter"`
}

// Middleware applies policies to HTTP handlers by endpoint class.
type Middleware struct {
	limiter  *Limiter
	policies Policies
	logger   *slog.Logger
	userID   func(*http.Request) string
	disabled bool
}

// MiddlewareOption configures a Middleware.
type MiddlewareOption func(*Middleware)

// WithUserID sets how the authenticated caller is read from a request. It
// feeds RequestInfo.UserID for key strategies that use it.
func WithUserID(fn func(*http.Request) string) MiddlewareOption {
	return func(m *Middleware) {
		m.userID = fn
	}
}

// WithDisabled turns every check into a pass-through.
func WithDisabled(disabled bool) MiddlewareOption {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

// NewMiddleware returns HTTP middleware over limiter and policies.
func NewMiddleware(limiter *Limiter, policies Policies, logger *slog.Logger, opts ...MiddlewareOption) *Middleware {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := &Middleware{
		limiter:  limiter,
		policies: policies,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// Limit returns middleware enforcing the policy for class. An unknown class
// is a wiring mistake and panics at route setup.
func (m *Middleware) Limit(class EndpointClass) func(http.Handler) http.Handler {
	policy, ok := m.policies.Lookup(class)
	if !ok {
		panic("ratelimit: no policy for class " + string(class))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}

			info := RequestInfo{
				Endpoint:  r.URL.Path,
				ClientIP:  ClientIP(r),
				UserAgent: r.UserAgent(),
			}
			if m.userID != nil {
				info.UserID = m.userID(r)
			}

			result := m.limiter.Check(r.Context(), info, policy)
			if result.FailedOpen {
				next.ServeHTTP(w, r)
				return
			}

			addHeaders(w, result)
			if !result.Admitted {
				writeExceeded(w, policy, result)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func addHeaders(w http.ResponseWriter, result Result) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
	h.Set("X-RateLimit-Window", strconv.FormatInt(result.Window.Milliseconds(), 10))
}

func writeExceeded(w http.ResponseWriter, policy Policy, result Result) {
	retryAfter := result.RetryAfterSeconds()
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

	out := policy.exceeded()
	httputil.WriteJSON(w, out.Status, &ExceededResponse{
		Error:      out.Message,
		Reason:     "rate_limit_exceeded",
		Limit:      result.Limit,
		Remaining:  0,
		ResetAt:    result.ResetAt.UTC(),
		RetryAfter: retryAfter,
	})
}

// ClientIP returns the originating client address. The first
// X-Forwarded-For hop wins, then X-Real-IP, then RemoteAddr without port.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
