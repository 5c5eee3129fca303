package duckdb

import (
	"context"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/metacatalog/internal/catalogsrv/catalog"
	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/catalogsrv/jdbc"
	"github.com/tansive/metacatalog/internal/catalogsrv/meta"
	"github.com/tansive/metacatalog/internal/catalogsrv/rel/datatypes"
	"github.com/tansive/metacatalog/internal/catalogsrv/security"
	"github.com/tansive/metacatalog/pkg/types"
)

func TestProvider(t *testing.T) {
	ctx := log.Logger.WithContext(context.Background())
	info := &meta.Catalog{
		Metalake: "lake",
		Name:     "duck",
		Type:     types.CatalogTypeRelational,
		Provider: ProviderName,
		Properties: map[string]string{
			jdbc.URLKey:      "jdbc:duckdb:",
			jdbc.DatabaseKey: "memory",
		},
	}
	c, err := catalog.Open(ctx, catalog.Environment{}, info)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.AsFilesetCatalog()
	assert.ErrorIs(t, err, caterrors.ErrUnsupportedCapability)

	schemas, err := c.AsSchemas()
	require.NoError(t, err)
	tables, err := c.AsTableCatalog()
	require.NoError(t, err)

	_, err = schemas.CreateSchema(ctx, types.MustNameIdentifier("lake", "duck", "sales"), nil, nil)
	require.NoError(t, err)
	ident := types.MustNameIdentifier("lake", "duck", "sales", "orders")
	_, err = tables.CreateTable(ctx, ident, []meta.Column{
		{Name: "id", Type: datatypes.Long(), Nullable: false},
	}, nil, nil)
	require.NoError(t, err)
	ok, err := tables.TableExists(ctx, ident)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = tables.LoadTable(ctx, types.MustNameIdentifier("lake", "pg", "sales", "orders"))
	assert.ErrorIs(t, err, caterrors.ErrInvalidIdentifier)
}

func TestProviderValidation(t *testing.T) {
	info := &meta.Catalog{
		Metalake:   "lake",
		Name:       "duck",
		Type:       types.CatalogTypeRelational,
		Provider:   ProviderName,
		Properties: map[string]string{jdbc.URLKey: "jdbc:postgresql://db/x"},
	}
	_, err := catalog.Validate(info)
	assert.ErrorIs(t, err, caterrors.ErrInvalidConfiguration)

	info.Properties = map[string]string{
		jdbc.URLKey:                     "jdbc:duckdb:",
		security.EnableAuthKey:          "true",
		security.ImpersonationEnableKey: "true",
		security.PrincipalKey:           "svc@EXAMPLE.COM",
		security.KeytabURIKey:           "/etc/svc.keytab",
	}
	_, err = catalog.Open(context.Background(), catalog.Environment{
		Authenticators: func(*security.AuthConfig) (security.Authenticator, error) { return nopAuthenticator{}, nil },
	}, info)
	assert.ErrorIs(t, err, caterrors.ErrInvalidConfiguration)
}
