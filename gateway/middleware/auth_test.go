package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, issuer string, expires time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"exp": expires.Unix()}
	if issuer != "" {
		claims["iss"] = issuer
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func authStatus(t *testing.T, auth *Authenticator, header string) int {
	t.Helper()
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodPost, "/v1/agreements", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestAuthAcceptsValidToken(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{Enabled: true, HMACSecret: testSecret}, nil)
	token := signToken(t, testSecret, "", time.Now().Add(time.Hour))
	require.Equal(t, http.StatusNoContent, authStatus(t, auth, "Bearer "+token))
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{Enabled: true, HMACSecret: testSecret}, nil)
	require.Equal(t, http.StatusUnauthorized, authStatus(t, auth, ""))
}

func TestAuthRejectsWrongSecret(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{Enabled: true, HMACSecret: testSecret}, nil)
	token := signToken(t, "other-secret", "", time.Now().Add(time.Hour))
	require.Equal(t, http.StatusUnauthorized, authStatus(t, auth, "Bearer "+token))
}

func TestAuthRejectsExpiredToken(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{Enabled: true, HMACSecret: testSecret, ClockSkew: time.Second}, nil)
	token := signToken(t, testSecret, "", time.Now().Add(-time.Hour))
	require.Equal(t, http.StatusUnauthorized, authStatus(t, auth, "Bearer "+token))
}

func TestAuthEnforcesIssuer(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{Enabled: true, HMACSecret: testSecret, Issuer: "settlechain"}, nil)
	wrong := signToken(t, testSecret, "someone-else", time.Now().Add(time.Hour))
	require.Equal(t, http.StatusUnauthorized, authStatus(t, auth, "Bearer "+wrong))
	right := signToken(t, testSecret, "settlechain", time.Now().Add(time.Hour))
	require.Equal(t, http.StatusNoContent, authStatus(t, auth, "Bearer "+right))
}

func TestAuthDisabledPassesThrough(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{Enabled: false}, nil)
	require.Equal(t, http.StatusNoContent, authStatus(t, auth, ""))
}

func TestAuthRejectsNonBearerScheme(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{Enabled: true, HMACSecret: testSecret}, nil)
	require.Equal(t, http.StatusUnauthorized, authStatus(t, auth, "Basic abc"))
}
