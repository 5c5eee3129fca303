package fileset

import (
	"context"
	"slices"

	"github.com/tansive/metacatalog/internal/catalogsrv/catalog"
	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/catalogsrv/fileset/filesystem"
	"github.com/tansive/metacatalog/internal/catalogsrv/meta"
	"github.com/tansive/metacatalog/internal/catalogsrv/security"
	"github.com/tansive/metacatalog/internal/common/apperrors"
	"github.com/tansive/metacatalog/pkg/types"
)

const ProviderName = "hadoop"

func validateProperties(props map[string]string) apperrors.Error {
	location := props[LocationKey]
	if location == "" {
		return nil
	}
	loc, err := filesystem.ParseLocation(location)
	if err != nil {
		return caterrors.ErrInvalidConfiguration.MsgErr(LocationKey, err)
	}
	if !slices.Contains(filesystem.Schemes(), loc.Scheme) {
		return caterrors.ErrInvalidConfiguration.Msgf("%s: unsupported scheme %q", LocationKey, loc.Scheme)
	}
	return nil
}

func open(ctx context.Context, env catalog.Environment, info *meta.Catalog, sec *security.Context) (catalog.Backend, apperrors.Error) {
	c, err := New(info, env.Store, sec)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func init() {
	catalog.RegisterProvider(catalog.Provider{
		Name:               ProviderName,
		Type:               types.CatalogTypeFileset,
		ValidateProperties: validateProperties,
		Open:               open,
	})
}

var (
	_ catalog.SupportsSchemas = (*Catalog)(nil)
	_ catalog.FilesetCatalog  = (*Catalog)(nil)
)
