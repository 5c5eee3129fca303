// Package security implements the per catalog security context: parsing of the
// authentication properties, the service Kerberos login and per call
// impersonation of the requesting user.
package security

import (
	"strconv"
	"strings"
	"time"

	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/catalogsrv/schema/schemavalidator"
	"github.com/tansive/metacatalog/internal/common/apperrors"
)

const (
	EnableAuthKey          = "authentication.enable"
	AuthTypeKey            = "authentication.type"
	ImpersonationEnableKey = "authentication.impersonation-enable"
	PrincipalKey           = "authentication.kerberos.principal"
	KeytabURIKey           = "authentication.kerberos.keytab-uri"
	CheckIntervalSecKey    = "authentication.kerberos.check-interval-sec"
	FetchTimeoutSecKey     = "authentication.kerberos.keytab-fetch-timeout-sec"

	AuthTypeKerberos = "kerberos"

	DefaultCheckInterval = 60 * time.Second
	DefaultFetchTimeout  = 60 * time.Second
)

// Mode is how operations of a catalog are attributed on the backend.
type Mode int

const (
	// ModeDirect runs operations as the service identity.
	ModeDirect Mode = iota
	// ModeImpersonated runs operations as the requesting user, authenticated
	// through the service identity.
	ModeImpersonated
)

func (m Mode) String() string {
	if m == ModeImpersonated {
		return "impersonated"
	}
	return "direct"
}

type AuthConfig struct {
	Enabled              bool
	Type                 string        `validate:"omitempty,oneof=kerberos"`
	ImpersonationEnabled bool
	Principal            string        `validate:"omitempty,kerberosPrincipal"`
	KeytabURI            string        `validate:"omitempty,locationURI"`
	CheckInterval        time.Duration `validate:"gte=0"`
	FetchTimeout         time.Duration `validate:"gte=0"`
}

// Mode derives the execution mode from the configuration.
func (c *AuthConfig) Mode() Mode {
	if c.Enabled && c.ImpersonationEnabled {
		return ModeImpersonated
	}
	return ModeDirect
}

// Kerberos reports whether a Kerberos service login is required.
func (c *AuthConfig) Kerberos() bool {
	return c.Enabled && c.Type == AuthTypeKerberos
}

// ParseAuthConfig reads the authentication properties of a catalog and rejects
// inconsistent combinations.
func ParseAuthConfig(props map[string]string) (*AuthConfig, apperrors.Error) {
	cfg := &AuthConfig{
		Type:          strings.ToLower(strings.TrimSpace(props[AuthTypeKey])),
		Principal:     strings.TrimSpace(props[PrincipalKey]),
		KeytabURI:     strings.TrimSpace(props[KeytabURIKey]),
		CheckInterval: DefaultCheckInterval,
		FetchTimeout:  DefaultFetchTimeout,
	}
	var err apperrors.Error
	if cfg.Enabled, err = parseBool(props, EnableAuthKey); err != nil {
		return nil, err
	}
	if cfg.ImpersonationEnabled, err = parseBool(props, ImpersonationEnableKey); err != nil {
		return nil, err
	}
	if cfg.CheckInterval, err = parseSeconds(props, CheckIntervalSecKey, DefaultCheckInterval); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = parseSeconds(props, FetchTimeoutSecKey, DefaultFetchTimeout); err != nil {
		return nil, err
	}

	if verr := schemavalidator.V().Struct(cfg); verr != nil {
		return nil, caterrors.ErrInvalidConfiguration.Msg(schemavalidator.ErrorMessage(verr))
	}
	if cfg.ImpersonationEnabled && !cfg.Enabled {
		return nil, caterrors.ErrInvalidConfiguration.Msgf("%s requires %s", ImpersonationEnableKey, EnableAuthKey)
	}
	if !cfg.Enabled {
		return cfg, nil
	}
	if cfg.Type == "" {
		cfg.Type = AuthTypeKerberos
	}
	if cfg.Principal == "" {
		return nil, caterrors.ErrInvalidConfiguration.Msgf("%s is required for kerberos authentication", PrincipalKey)
	}
	if cfg.KeytabURI == "" {
		return nil, caterrors.ErrInvalidConfiguration.Msgf("%s is required for kerberos authentication", KeytabURIKey)
	}
	return cfg, nil
}

func parseBool(props map[string]string, key string) (bool, apperrors.Error) {
	v, ok := props[key]
	if !ok || strings.TrimSpace(v) == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, caterrors.ErrInvalidConfiguration.Msgf("%s must be true or false, got %q", key, v)
	}
	return b, nil
}

func parseSeconds(props map[string]string, key string, def time.Duration) (time.Duration, apperrors.Error) {
	v, ok := props[key]
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return 0, caterrors.ErrInvalidConfiguration.Msgf("%s must be a positive number of seconds, got %q", key, v)
	}
	return time.Duration(n) * time.Second, nil
}
