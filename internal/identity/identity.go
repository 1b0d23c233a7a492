// Package identity verifies HS256 bearer tokens and carries the caller's
// subject through the request context.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/abhisek/examgen/internal/httputil"
)

const bearerPrefix = "Bearer "

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
)

// Claims are the claims of an examgen access token. The caller id is the
// registered subject.
type Claims struct {
	jwt.RegisteredClaims
}

// Verifier issues and validates access tokens.
type Verifier struct {
	signingKey []byte
	issuer     string
	logger     *slog.Logger
	now        func() time.Time
}

// NewVerifier creates a Verifier. logger may be nil.
func NewVerifier(signingKey, issuer string, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Verifier{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		logger:     logger,
		now:        time.Now,
	}
}

// Issue mints a token for subject valid for ttl.
func (v *Verifier) Issue(subject string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", errors.New("issue token: empty subject")
	}
	now := v.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(v.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify validates a token and returns its subject.
func (v *Verifier) Verify(tokenString string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return v.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

type subjectKey struct{}
type authErrKey struct{}

// WithSubject returns ctx carrying an authenticated subject.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey{}, subject)
}

// SubjectFrom returns the authenticated subject, or "" if none.
func SubjectFrom(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey{}).(string)
	return s
}

// UserID returns the authenticated subject of r. It matches the user-id
// hook of the rate limiting middleware.
func UserID(r *http.Request) string {
	return SubjectFrom(r.Context())
}

// Attach verifies the bearer token when one is present and stores the
// subject in the context. It never rejects; pair it with Require.
func (v *Verifier) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
		if !ok || strings.TrimSpace(token) == "" {
			ctx = context.WithValue(ctx, authErrKey{}, ErrMissingToken)
		} else if subject, err := v.Verify(strings.TrimSpace(token)); err != nil {
			ctx = context.WithValue(ctx, authErrKey{}, err)
		} else {
			ctx = WithSubject(ctx, subject)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Require rejects requests without an authenticated subject with 401.
// Requests that did not pass through Attach are verified here.
func (v *Verifier) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if SubjectFrom(ctx) != "" {
			next.ServeHTTP(w, r)
			return
		}
		err, attached := ctx.Value(authErrKey{}).(error)
		if !attached {
			v.Attach(v.Require(next)).ServeHTTP(w, r)
			return
		}
		v.logger.WarnContext(ctx, "unauthorized request",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		httputil.WriteError(w, http.StatusUnauthorized, err.Error())
	})
}
