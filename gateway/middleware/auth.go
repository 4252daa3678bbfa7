package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// AuthConfig controls bearer-token authentication on mutating routes.
type AuthConfig struct {
	Enabled    bool
	HMACSecret string
	Issuer     string
	ClockSkew  time.Duration
}

// Authenticator validates HMAC-signed bearer tokens.
type Authenticator struct {
	cfg    AuthConfig
	logger *slog.Logger
	secret []byte
}

// NewAuthenticator creates an authenticator from the supplied config.
func NewAuthenticator(cfg AuthConfig, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ClockSkew <= 0 {
		cfg.ClockSkew = 2 * time.Minute
	}
	return &Authenticator{
		cfg:    cfg,
		logger: logger,
		secret: []byte(strings.TrimSpace(cfg.HMACSecret)),
	}
}

// Middleware rejects requests without a valid bearer token when auth is
// enabled.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a == nil || !a.cfg.Enabled {
			next.ServeHTTP(w, r)
			return
		}
		token, err := a.extract(r)
		if err != nil {
			a.logger.Warn("request rejected", slog.String("reason", err.Error()), slog.String("path", r.URL.Path))
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		if err := a.verify(token); err != nil {
			a.logger.Warn("token rejected", slog.String("reason", err.Error()), slog.String("path", r.URL.Path))
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) extract(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("authorization header must be a bearer token")
	}
	return strings.TrimSpace(parts[1]), nil
}

func (a *Authenticator) verify(raw string) error {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(a.cfg.ClockSkew),
	}
	if strings.TrimSpace(a.cfg.Issuer) != "" {
		options = append(options, jwt.WithIssuer(a.cfg.Issuer))
	}
	_, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, options...)
	return err
}
