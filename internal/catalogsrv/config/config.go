// Package config holds the service configuration of the catalog server.
// Catalog level settings are catalog properties and do not live here.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/tansive/metacatalog/internal/catalogsrv/schema/schemavalidator"
)

const (
	StoreBadger     = "badger"
	StorePostgreSQL = "postgresql"
)

type ConfigParam struct {
	ServerPort      string         `toml:"server_port" yaml:"server_port" validate:"required,numeric"`
	HandleCORS      bool           `toml:"handle_cors" yaml:"handle_cors"`
	AllowedOrigins  []string       `toml:"allowed_origins" yaml:"allowed_origins" validate:"dive,required"`
	LogLevel        string         `toml:"log_level" yaml:"log_level" validate:"omitempty,oneof=trace debug info warn error"`
	ShutdownTimeout string         `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
	EntityStore     EntityStore    `toml:"entity_store" yaml:"entity_store"`
	Kerberos        KerberosConfig `toml:"kerberos" yaml:"kerberos"`
	Metrics         MetricsConfig  `toml:"metrics" yaml:"metrics"`
	Auth            AuthConfig     `toml:"auth" yaml:"auth"`
}

// EntityStore selects where metalakes, catalogs and fileset metadata are kept.
// A badger store with an empty path lives in memory.
type EntityStore struct {
	Type string `toml:"type" yaml:"type" validate:"oneof=badger postgresql"`
	Path string `toml:"path" yaml:"path"`
	DSN  string `toml:"dsn" yaml:"dsn" validate:"required_if=Type postgresql"`
}

type KerberosConfig struct {
	// Krb5Conf is the krb5.conf used for every kerberos enabled catalog.
	Krb5Conf string `toml:"krb5_conf" yaml:"krb5_conf"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Path    string `toml:"path" yaml:"path" validate:"omitempty,startswith=/"`
}

// AuthConfig controls how REST callers are identified. Mode jwt verifies a
// bearer token signed with the HMAC secret or the key in PublicKeyFile and
// takes the caller from its subject. Mode none leaves requests without a caller.
type AuthConfig struct {
	Mode          string `toml:"mode" yaml:"mode" validate:"oneof=none jwt"`
	Issuer        string `toml:"issuer" yaml:"issuer"`
	Audience      string `toml:"audience" yaml:"audience"`
	HMACSecret    string `toml:"hmac_secret" yaml:"hmac_secret" validate:"excluded_unless=Mode jwt"`
	PublicKeyFile string `toml:"public_key_file" yaml:"public_key_file" validate:"excluded_unless=Mode jwt"`
	MaxTokenAge   string `toml:"max_token_age" yaml:"max_token_age"`
}

var cfg *ConfigParam

func Config() *ConfigParam {
	return cfg
}

func defaultConfig() *ConfigParam {
	return &ConfigParam{
		ServerPort:      "8090",
		HandleCORS:      true,
		AllowedOrigins:  []string{"http://localhost:*"},
		LogLevel:        "info",
		ShutdownTimeout: "30s",
		EntityStore:     EntityStore{Type: StoreBadger},
		Metrics:         MetricsConfig{Enabled: true, Path: "/metrics"},
		Auth:            AuthConfig{Mode: "none"},
	}
}

// LoadConfig reads a TOML or YAML config file, chosen by extension, on top of
// the defaults. An empty filename keeps the defaults.
func LoadConfig(filename string) error {
	cp := defaultConfig()
	if filename != "" {
		content, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("error reading config file: %v", err)
		}
		if err := decode(filename, content, cp); err != nil {
			return fmt.Errorf("error parsing config file: %v", err)
		}
	}
	if err := Validate(cp); err != nil {
		return err
	}
	cfg = cp
	return nil
}

func decode(filename string, content []byte, cp *ConfigParam) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(content, cp)
	default:
		_, err := toml.Decode(string(content), cp)
		return err
	}
}

// Validate checks field constraints and the values that need parsing.
func Validate(cp *ConfigParam) error {
	if err := schemavalidator.V().Struct(cp); err != nil {
		return fmt.Errorf("invalid config: %s", schemavalidator.ErrorMessage(err))
	}
	if _, err := cp.ShutdownGrace(); err != nil {
		return fmt.Errorf("invalid config: shutdown_timeout: %w", err)
	}
	if a := cp.Auth; a.Mode == "jwt" {
		if (a.HMACSecret == "") == (a.PublicKeyFile == "") {
			return fmt.Errorf("invalid config: auth: jwt mode needs exactly one of hmac_secret and public_key_file")
		}
		if a.MaxTokenAge != "" {
			if _, err := ParseDuration(a.MaxTokenAge); err != nil {
				return fmt.Errorf("invalid config: auth.max_token_age: %w", err)
			}
		}
	}
	return nil
}

// ShutdownGrace is how long the server waits for in-flight requests on exit.
func (c *ConfigParam) ShutdownGrace() (time.Duration, error) {
	if c.ShutdownTimeout == "" {
		return 0, nil
	}
	return ParseDuration(c.ShutdownTimeout)
}

// ParseDuration accepts a count followed by one of s, m, h or d.
func ParseDuration(input string) (time.Duration, error) {
	if len(input) < 2 {
		return 0, fmt.Errorf("invalid input format")
	}

	unit := input[len(input)-1:]
	valueStr := input[:len(input)-1]
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", err)
	}
	if value < 0 {
		return 0, fmt.Errorf("negative duration: %s", input)
	}

	var duration time.Duration
	switch unit {
	case "s":
		duration = time.Duration(value) * time.Second
	case "m":
		duration = time.Duration(value) * time.Minute
	case "h":
		duration = time.Duration(value) * time.Hour
	case "d":
		duration = time.Duration(value) * 24 * time.Hour
	default:
		return 0, fmt.Errorf("unknown time unit: %s", unit)
	}

	return duration, nil
}

func init() {
	err := LoadConfig("")
	if err != nil {
		panic(err)
	}
}
