package catalog

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/catalogsrv/meta"
	"github.com/tansive/metacatalog/internal/catalogsrv/security"
	"github.com/tansive/metacatalog/internal/common/apperrors"
	"github.com/tansive/metacatalog/pkg/types"
)

// schemaBackend keeps schemas in a map.
type schemaBackend struct {
	mu      sync.Mutex
	schemas map[types.NameIdentifier]*meta.Schema
	closed  bool
}

func (b *schemaBackend) ListSchemas(ctx context.Context, ns types.Namespace) ([]types.NameIdentifier, apperrors.Error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []types.NameIdentifier
	for id := range b.schemas {
		out = append(out, id)
	}
	return out, nil
}

func (b *schemaBackend) CreateSchema(ctx context.Context, ident types.NameIdentifier, comment *string, props map[string]string) (*meta.Schema, apperrors.Error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.schemas[ident]; ok {
		return nil, caterrors.ErrSchemaAlreadyExists.Msg(ident.String())
	}
	s := &meta.Schema{Name: ident.Name(), Comment: comment, Properties: meta.CopyProperties(props)}
	b.schemas[ident] = s
	return s, nil
}

func (b *schemaBackend) LoadSchema(ctx context.Context, ident types.NameIdentifier) (*meta.Schema, apperrors.Error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.schemas[ident]
	if !ok {
		return nil, caterrors.ErrNoSuchSchema.Msg(ident.String())
	}
	return s, nil
}

func (b *schemaBackend) SchemaExists(ctx context.Context, ident types.NameIdentifier) (bool, apperrors.Error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.schemas[ident]
	return ok, nil
}

func (b *schemaBackend) DropSchema(ctx context.Context, ident types.NameIdentifier, cascade bool) apperrors.Error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.schemas[ident]; !ok {
		return caterrors.ErrNoSuchSchema.Msg(ident.String())
	}
	delete(b.schemas, ident)
	return nil
}

func (b *schemaBackend) Close() error {
	b.closed = true
	return nil
}

var testBackend = &schemaBackend{schemas: map[types.NameIdentifier]*meta.Schema{}}

func init() {
	RegisterProvider(Provider{
		Name: "test-schemas",
		Type: types.CatalogTypeRelational,
		ValidateProperties: func(props map[string]string) apperrors.Error {
			if props["bad"] != "" {
				return caterrors.ErrInvalidConfiguration.Msg("bad property")
			}
			return nil
		},
		Open: func(ctx context.Context, env Environment, info *meta.Catalog, sec *security.Context) (Backend, apperrors.Error) {
			return testBackend, nil
		},
	})
}

func testInfo() *meta.Catalog {
	return &meta.Catalog{
		Metalake:   "lake",
		Name:       "pg",
		Type:       types.CatalogTypeRelational,
		Provider:   "test-schemas",
		Properties: map[string]string{},
	}
}

func TestValidate(t *testing.T) {
	_, err := Validate(testInfo())
	require.NoError(t, err)

	info := testInfo()
	info.Provider = "nope"
	_, err = Validate(info)
	assert.ErrorIs(t, err, caterrors.ErrInvalidArgument)

	info = testInfo()
	info.Type = types.CatalogTypeFileset
	_, err = Validate(info)
	assert.ErrorIs(t, err, caterrors.ErrInvalidArgument)

	info = testInfo()
	info.Properties = map[string]string{"bad": "x"}
	_, err = Validate(info)
	assert.ErrorIs(t, err, caterrors.ErrInvalidConfiguration)

	info = testInfo()
	info.Properties = map[string]string{security.ImpersonationEnableKey: "true"}
	_, err = Validate(info)
	assert.ErrorIs(t, err, caterrors.ErrInvalidConfiguration)
}

func TestCapabilityViews(t *testing.T) {
	ctx := context.Background()
	c, err := Open(ctx, Environment{}, testInfo())
	require.NoError(t, err)

	_, err = c.AsTableCatalog()
	assert.ErrorIs(t, err, caterrors.ErrUnsupportedCapability)
	assert.Equal(t, caterrors.KindUnsupportedOperation, err.Kind())
	_, err = c.AsFilesetCatalog()
	assert.ErrorIs(t, err, caterrors.ErrUnsupportedCapability)

	schemas, err := c.AsSchemas()
	require.NoError(t, err)

	ident := types.MustNameIdentifier("lake", "pg", "sales")
	_, err = schemas.CreateSchema(ctx, ident, nil, nil)
	require.NoError(t, err)
	_, err = schemas.CreateSchema(ctx, ident, nil, nil)
	assert.ErrorIs(t, err, caterrors.ErrSchemaAlreadyExists)

	ok, err := schemas.SchemaExists(ctx, ident)
	require.NoError(t, err)
	assert.True(t, ok)

	list, err := schemas.ListSchemas(ctx, types.MustNamespace("lake", "pg"))
	require.NoError(t, err)
	assert.Contains(t, list, ident)

	require.NoError(t, schemas.DropSchema(ctx, ident, false))
	assert.ErrorIs(t, schemas.DropSchema(ctx, ident, false), caterrors.ErrNoSuchSchema)

	require.NoError(t, c.Close())
	assert.True(t, testBackend.closed)
}

func TestIdentifierMustBelongToCatalog(t *testing.T) {
	ctx := context.Background()
	c := New(testInfo(), &schemaBackend{schemas: map[types.NameIdentifier]*meta.Schema{}})
	schemas, err := c.AsSchemas()
	require.NoError(t, err)

	tests := []struct {
		name  string
		ident types.NameIdentifier
	}{
		{"other catalog", types.MustNameIdentifier("lake", "other", "sales")},
		{"other metalake", types.MustNameIdentifier("lake2", "pg", "sales")},
		{"too shallow", types.MustNameIdentifier("lake", "pg")},
		{"too deep", types.MustNameIdentifier("lake", "pg", "sales", "orders")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := schemas.CreateSchema(ctx, tt.ident, nil, nil)
			assert.ErrorIs(t, err, caterrors.ErrInvalidIdentifier)
			assert.Equal(t, caterrors.KindInvalidArgument, err.Kind())
		})
	}

	_, err = schemas.ListSchemas(ctx, types.MustNamespace("lake", "other"))
	assert.ErrorIs(t, err, caterrors.ErrInvalidIdentifier)
}

func TestProviders(t *testing.T) {
	assert.Contains(t, Providers(), "test-schemas")
	assert.Panics(t, func() {
		RegisterProvider(Provider{Name: "test-schemas", Open: func(context.Context, Environment, *meta.Catalog, *security.Context) (Backend, apperrors.Error) {
			return nil, nil
		}})
	})
}
