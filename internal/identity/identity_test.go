package identity

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/examgen/internal/httputil"
)

func TestIssueAndVerify(t *testing.T) {
	v := NewVerifier("secret", "examgen", nil)

	token, err := v.Issue("u1", time.Hour)
	require.NoError(t, err)

	sub, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", sub)
}

func TestVerifyRejects(t *testing.T) {
	v := NewVerifier("secret", "examgen", nil)

	expired := NewVerifier("secret", "examgen", nil)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, err := expired.Issue("u1", time.Hour)
	require.NoError(t, err)

	otherKey, err := NewVerifier("other", "examgen", nil).Issue("u1", time.Hour)
	require.NoError(t, err)

	otherIssuer, err := NewVerifier("secret", "someone-else", nil).Issue("u1", time.Hour)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject: "u1", Issuer: "examgen", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"expired", expiredToken, ErrTokenExpired},
		{"wrong key", otherKey, ErrInvalidToken},
		{"wrong issuer", otherIssuer, ErrInvalidToken},
		{"alg none", none, ErrInvalidToken},
		{"garbage", "not.a.token", ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestIssueEmptySubject(t *testing.T) {
	_, err := NewVerifier("secret", "examgen", nil).Issue(" ", time.Hour)
	assert.Error(t, err)
}

func TestAttachAndRequire(t *testing.T) {
	v := NewVerifier("secret", "examgen", nil)
	token, err := v.Issue("u1", time.Hour)
	require.NoError(t, err)

	var seen string
	h := v.Attach(v.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserID(r)
		w.WriteHeader(http.StatusNoContent)
	})))

	tests := []struct {
		name   string
		header string
		status int
		msg    string
	}{
		{"valid", "Bearer " + token, http.StatusNoContent, ""},
		{"missing", "", http.StatusUnauthorized, ErrMissingToken.Error()},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, ErrMissingToken.Error()},
		{"invalid", "Bearer nope", http.StatusUnauthorized, ErrInvalidToken.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			require.Equal(t, tt.status, w.Code)
			if tt.status != http.StatusUnauthorized {
				assert.Equal(t, "u1", seen)
				return
			}
			var body httputil.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tt.msg, body.Error)
			assert.Empty(t, seen)
		})
	}
}

func TestRequireWithoutAttach(t *testing.T) {
	v := NewVerifier("secret", "examgen", nil)
	token, err := v.Issue("u2", time.Hour)
	require.NoError(t, err)

	h := v.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "u2", SubjectFrom(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
