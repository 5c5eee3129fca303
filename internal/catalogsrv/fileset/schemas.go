package fileset

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/catalogsrv/fileset/filesystem"
	"github.com/tansive/metacatalog/internal/catalogsrv/meta"
	"github.com/tansive/metacatalog/internal/catalogsrv/security"
	"github.com/tansive/metacatalog/internal/common/apperrors"
	"github.com/tansive/metacatalog/pkg/types"
)

func (c *Catalog) ListSchemas(ctx context.Context, ns types.Namespace) ([]types.NameIdentifier, apperrors.Error) {
	return c.store.List(ctx, types.SchemaKind, ns)
}

// CreateSchema records the schema and creates its storage root when one is
// set or derivable from the catalog location.
func (c *Catalog) CreateSchema(ctx context.Context, ident types.NameIdentifier, comment *string, props map[string]string) (*meta.Schema, apperrors.Error) {
	if err := checkIdent(ident, types.SchemaKind); err != nil {
		return nil, err
	}
	props = meta.CopyProperties(props)
	location, err := normalizeLocation(props[LocationKey])
	if err != nil {
		return nil, err
	}
	if location != "" {
		props[LocationKey] = location
	}
	exists, err := c.store.Exists(ctx, types.SchemaKind, ident)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, caterrors.ErrSchemaAlreadyExists.Msgf("schema %s already exists", ident)
	}

	schema := &meta.Schema{
		Name:       ident.Name(),
		Comment:    comment,
		Properties: props,
	}
	root := c.schemaRoot(schema)
	creator := security.EffectiveUser(ctx)
	if root != "" {
		err = c.withFS(ctx, root, "create schema location "+root, func(ctx context.Context, fsys filesystem.FileSystem) error {
			creator = security.EffectiveUser(ctx)
			return fsys.MkdirAll(ctx, root)
		})
		if err != nil {
			return nil, err
		}
	}
	schema.Audit = meta.NewAuditInfo(creator)
	if err := c.store.Put(ctx, types.SchemaKind, ident, schema, false); err != nil {
		if err.Kind() == caterrors.KindAlreadyExists {
			return nil, caterrors.ErrSchemaAlreadyExists.Msgf("schema %s already exists", ident)
		}
		return nil, err
	}
	log.Ctx(ctx).Info().Str("schema", ident.String()).Str("location", root).Msg("created schema")
	return schema, nil
}

func (c *Catalog) LoadSchema(ctx context.Context, ident types.NameIdentifier) (*meta.Schema, apperrors.Error) {
	if err := checkIdent(ident, types.SchemaKind); err != nil {
		return nil, err
	}
	var schema meta.Schema
	if err := c.store.Get(ctx, types.SchemaKind, ident, &schema); err != nil {
		if err.Kind() == caterrors.KindNotFound {
			return nil, caterrors.ErrNoSuchSchema.Msgf("schema %s does not exist", ident)
		}
		return nil, err
	}
	if schema.Properties == nil {
		schema.Properties = map[string]string{}
	}
	return &schema, nil
}

func (c *Catalog) SchemaExists(ctx context.Context, ident types.NameIdentifier) (bool, apperrors.Error) {
	if err := checkIdent(ident, types.SchemaKind); err != nil {
		return false, err
	}
	return c.store.Exists(ctx, types.SchemaKind, ident)
}

// DropSchema removes the schema. With cascade its filesets are dropped first
// and the schema root is removed; without it the schema must hold no
// filesets and its root is removed only when empty.
func (c *Catalog) DropSchema(ctx context.Context, ident types.NameIdentifier, cascade bool) apperrors.Error {
	schema, err := c.LoadSchema(ctx, ident)
	if err != nil {
		return err
	}
	ns, nsErr := ident.AsNamespace()
	if nsErr != nil {
		return caterrors.ErrInvalidIdentifier.MsgErr(ident.String(), nsErr)
	}
	filesets, err := c.store.List(ctx, types.FilesetKind, ns)
	if err != nil {
		return err
	}
	if len(filesets) > 0 && !cascade {
		return caterrors.ErrNonEmptySchema.Msgf("schema %s has %d filesets", ident, len(filesets))
	}
	for _, child := range filesets {
		if err := c.DropFileset(ctx, child); err != nil && err.Kind() != caterrors.KindNotFound {
			return err
		}
	}

	if root := c.schemaRoot(schema); root != "" {
		err = c.withFS(ctx, root, "drop schema location "+root, func(ctx context.Context, fsys filesystem.FileSystem) error {
			if !cascade {
				children, err := fsys.List(ctx, root)
				if err != nil || len(children) > 0 {
					return ignoreNotExist(err)
				}
			}
			return fsys.RemoveAll(ctx, root)
		})
		if err != nil {
			return err
		}
	}

	if _, err := c.store.Delete(ctx, types.SchemaKind, ident); err != nil {
		return err
	}
	log.Ctx(ctx).Info().Str("schema", ident.String()).Bool("cascade", cascade).Msg("dropped schema")
	return nil
}

// schemaRoot is the schema location property, or the schema directory under
// the catalog location, or empty when neither is set.
func (c *Catalog) schemaRoot(schema *meta.Schema) string {
	if loc := schema.Properties[LocationKey]; loc != "" {
		return loc
	}
	if c.location == "" {
		return ""
	}
	return filesystem.Join(c.location, schema.Name)
}
