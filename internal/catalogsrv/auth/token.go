// Package auth authenticates REST callers with signed JWT bearer tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/tansive/metacatalog/internal/catalogsrv/config"
	"github.com/tansive/metacatalog/internal/common/apperrors"
)

const (
	ModeNone = "none"
	ModeJWT  = "jwt"

	// DefaultMaxTokenAge bounds how long ago a token may have been issued.
	DefaultMaxTokenAge = 24 * time.Hour
	defaultLeeway      = 30 * time.Second
)

var (
	hmacMethods  = []string{"HS256", "HS384", "HS512"}
	edMethods    = []string{"EdDSA"}
	rsaMethods   = []string{"RS256", "RS384", "RS512", "PS256", "PS384", "PS512"}
	ecdsaMethods = []string{"ES256", "ES384", "ES512"}
)

// Verifier checks bearer tokens and yields the calling user. A nil or
// disabled Verifier authenticates nobody.
type Verifier struct {
	key     any
	methods []string
	parser  *jwt.Parser
	maxAge  time.Duration
	now     func() time.Time
}

// NewVerifier builds a Verifier from the auth section of the service config.
// Mode none returns a disabled Verifier.
func NewVerifier(cfg config.AuthConfig) (*Verifier, error) {
	return newVerifier(cfg, time.Now)
}

func newVerifier(cfg config.AuthConfig, now func() time.Time) (*Verifier, error) {
	if cfg.Mode == "" || cfg.Mode == ModeNone {
		return &Verifier{}, nil
	}
	if cfg.Mode != ModeJWT {
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}
	v := &Verifier{maxAge: DefaultMaxTokenAge, now: now}
	if cfg.MaxTokenAge != "" {
		d, err := config.ParseDuration(cfg.MaxTokenAge)
		if err != nil {
			return nil, fmt.Errorf("max_token_age: %w", err)
		}
		v.maxAge = d
	}
	switch {
	case cfg.HMACSecret != "" && cfg.PublicKeyFile != "":
		return nil, errors.New("hmac_secret and public_key_file are mutually exclusive")
	case cfg.HMACSecret != "":
		v.key = []byte(cfg.HMACSecret)
		v.methods = hmacMethods
	case cfg.PublicKeyFile != "":
		pem, err := os.ReadFile(cfg.PublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("unable to read public key: %w", err)
		}
		if v.key, v.methods, err = parsePublicKey(pem); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("jwt auth requires hmac_secret or public_key_file")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(v.methods),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(defaultLeeway),
		jwt.WithTimeFunc(now),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	v.parser = jwt.NewParser(opts...)
	return v, nil
}

func parsePublicKey(pem []byte) (any, []string, error) {
	if key, err := jwt.ParseEdPublicKeyFromPEM(pem); err == nil {
		return key, edMethods, nil
	}
	if key, err := jwt.ParseRSAPublicKeyFromPEM(pem); err == nil {
		return key, rsaMethods, nil
	}
	if key, err := jwt.ParseECPublicKeyFromPEM(pem); err == nil {
		return key, ecdsaMethods, nil
	}
	return nil, nil, errors.New("public key is not a PEM encoded Ed25519, RSA or ECDSA key")
}

// Enabled reports whether requests are authenticated.
func (v *Verifier) Enabled() bool {
	return v != nil && v.parser != nil
}

// Authenticate validates an Authorization header value and returns the token
// subject.
func (v *Verifier) Authenticate(ctx context.Context, header string) (string, apperrors.Error) {
	if !v.Enabled() {
		return "", ErrAuthDisabled
	}
	scheme, tokenString, ok := strings.Cut(header, " ")
	tokenString = strings.TrimSpace(tokenString)
	if !ok || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
		return "", ErrUnsupportedScheme
	}
	return v.Verify(ctx, tokenString)
}

// Verify checks the signature and the time, issuer and audience claims of a
// token and returns its subject.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (string, apperrors.Error) {
	if !v.Enabled() {
		return "", ErrAuthDisabled
	}
	var claims jwt.RegisteredClaims
	token, err := v.parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Msg("failed to parse token")
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired.Err(err)
		}
		return "", ErrInvalidToken.Err(err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.IssuedAt == nil {
		return "", ErrInvalidToken.Msg("token has no issued at time")
	}
	if v.maxAge > 0 && claims.IssuedAt.Time.Before(v.now().Add(-v.maxAge)) {
		return "", ErrTokenTooOld
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return "", ErrInvalidToken.Msg("token has no subject")
	}
	return subject, nil
}
