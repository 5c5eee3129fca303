package jdbc

import (
	"strconv"
	"strings"
	"time"

	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/catalogsrv/schema/schemavalidator"
	"github.com/tansive/metacatalog/internal/common/apperrors"
)

const (
	URLKey              = "jdbc-url"
	DriverKey           = "jdbc-driver"
	UserKey             = "jdbc-user"
	PasswordKey         = "jdbc-password"
	DatabaseKey         = "jdbc-database"
	PoolMaxSizeKey      = "jdbc.pool.max-size"
	AcquireTimeoutKey   = "jdbc.pool.acquire-timeout-sec"
	StatementTimeoutKey = "jdbc.statement-timeout-sec"

	DefaultPoolMaxSize      = 10
	DefaultAcquireTimeout   = 10 * time.Second
	DefaultStatementTimeout = 30 * time.Second
)

// Config is the connection configuration of a relational catalog.
type Config struct {
	URL              string `validate:"required,startswith=jdbc:"`
	Driver           string `validate:"omitempty,noSpaces"`
	User             string
	Password         string
	Database         string        `validate:"omitempty,noSpaces"`
	PoolMaxSize      int           `validate:"gte=1,lte=256"`
	AcquireTimeout   time.Duration `validate:"gt=0"`
	StatementTimeout time.Duration `validate:"gt=0"`
}

func ParseConfig(props map[string]string) (*Config, apperrors.Error) {
	cfg := &Config{
		URL:              strings.TrimSpace(props[URLKey]),
		Driver:           strings.TrimSpace(props[DriverKey]),
		User:             props[UserKey],
		Password:         props[PasswordKey],
		Database:         strings.TrimSpace(props[DatabaseKey]),
		PoolMaxSize:      DefaultPoolMaxSize,
		AcquireTimeout:   DefaultAcquireTimeout,
		StatementTimeout: DefaultStatementTimeout,
	}
	if v := strings.TrimSpace(props[PoolMaxSizeKey]); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, caterrors.ErrInvalidConfiguration.Msgf("%s must be a number, got %q", PoolMaxSizeKey, v)
		}
		cfg.PoolMaxSize = n
	}
	var err apperrors.Error
	if cfg.AcquireTimeout, err = seconds(props, AcquireTimeoutKey, DefaultAcquireTimeout); err != nil {
		return nil, err
	}
	if cfg.StatementTimeout, err = seconds(props, StatementTimeoutKey, DefaultStatementTimeout); err != nil {
		return nil, err
	}
	if verr := schemavalidator.V().Struct(cfg); verr != nil {
		return nil, caterrors.ErrInvalidConfiguration.Msg(schemavalidator.ErrorMessage(verr))
	}
	return cfg, nil
}

func seconds(props map[string]string, key string, def time.Duration) (time.Duration, apperrors.Error) {
	v := strings.TrimSpace(props[key])
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, caterrors.ErrInvalidConfiguration.Msgf("%s must be a positive number of seconds, got %q", key, v)
	}
	return time.Duration(n) * time.Second, nil
}
