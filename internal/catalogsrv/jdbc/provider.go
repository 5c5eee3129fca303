package jdbc

import (
	"context"

	"github.com/tansive/metacatalog/internal/catalogsrv/catalog"
	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/catalogsrv/meta"
	"github.com/tansive/metacatalog/internal/catalogsrv/security"
	"github.com/tansive/metacatalog/internal/common/apperrors"
	"github.com/tansive/metacatalog/pkg/types"
)

// NewProvider describes a relational catalog provider served by dialect.
func NewProvider(name string, dialect Dialect) catalog.Provider {
	return catalog.Provider{
		Name: name,
		Type: types.CatalogTypeRelational,
		ValidateProperties: func(props map[string]string) apperrors.Error {
			cfg, err := ParseConfig(props)
			if err != nil {
				return err
			}
			if _, dsnErr := dialect.DSN(cfg); dsnErr != nil {
				return caterrors.ErrInvalidConfiguration.MsgErr("invalid "+URLKey, dsnErr)
			}
			return nil
		},
		Open: func(ctx context.Context, _ catalog.Environment, info *meta.Catalog, sec *security.Context) (catalog.Backend, apperrors.Error) {
			cfg, err := ParseConfig(info.Properties)
			if err != nil {
				return nil, err
			}
			exec, err := NewExecutor(ctx, dialect, cfg, sec)
			if err != nil {
				return nil, err
			}
			return NewCatalog(exec), nil
		},
	}
}

var (
	_ catalog.SupportsSchemas = (*Catalog)(nil)
	_ catalog.TableCatalog    = (*Catalog)(nil)
)
