package fileset

import (
	"context"
	"io/fs"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/catalogsrv/fileset/filesystem"
	"github.com/tansive/metacatalog/internal/catalogsrv/meta"
	"github.com/tansive/metacatalog/internal/catalogsrv/security"
	"github.com/tansive/metacatalog/internal/common/apperrors"
	"github.com/tansive/metacatalog/pkg/types"
)

func (c *Catalog) ListFilesets(ctx context.Context, ns types.Namespace) ([]types.NameIdentifier, apperrors.Error) {
	schemaIdent, err := types.NewNameIdentifier(ns.Levels()...)
	if err != nil {
		return nil, caterrors.ErrInvalidIdentifier.MsgErr("namespace "+ns.String(), err)
	}
	if _, err := c.LoadSchema(ctx, schemaIdent); err != nil {
		return nil, err
	}
	return c.store.List(ctx, types.FilesetKind, ns)
}

// CreateFileset registers the fileset and makes sure its storage location
// exists. Nothing is created when the arguments are invalid or the fileset is
// already registered.
func (c *Catalog) CreateFileset(ctx context.Context, ident types.NameIdentifier, comment *string, typ types.FilesetType, location string, props map[string]string) (*meta.Fileset, apperrors.Error) {
	if err := checkIdent(ident, types.FilesetKind); err != nil {
		return nil, err
	}
	typ, typErr := types.ParseFilesetType(string(typ))
	if typErr != nil {
		return nil, caterrors.ErrInvalidArgument.MsgErr("fileset "+ident.String(), typErr)
	}
	if typ == types.FilesetExternal && location == "" {
		return nil, caterrors.ErrInvalidArgument.Msgf("external fileset %s requires a storage location", ident)
	}
	location, err := normalizeLocation(location)
	if err != nil {
		return nil, err
	}

	schemaIdent, _ := ident.Parent()
	schema, err := c.LoadSchema(ctx, schemaIdent)
	if err != nil {
		return nil, err
	}
	if location == "" {
		root := c.schemaRoot(schema)
		if root == "" {
			return nil, caterrors.ErrInvalidArgument.Msgf("fileset %s has no storage location and neither schema nor catalog sets %q", ident, LocationKey)
		}
		location = filesystem.Join(root, ident.Name())
	}

	creator := security.EffectiveUser(ctx)
	fileset := &meta.Fileset{
		Name:            ident.Name(),
		Comment:         comment,
		Type:            typ,
		StorageLocation: location,
		Properties:      meta.CopyProperties(props),
		Audit:           meta.NewAuditInfo(creator),
	}
	// The entity is reserved before storage is touched so that only the
	// request owning the reservation creates or removes the location.
	if err := c.store.Put(ctx, types.FilesetKind, ident, fileset, false); err != nil {
		if err.Kind() == caterrors.KindAlreadyExists {
			return nil, caterrors.ErrFilesetAlreadyExists.Msgf("fileset %s already exists", ident)
		}
		return nil, err
	}

	created := false
	storageUser := creator
	err = c.withFS(ctx, location, "create fileset location "+location, func(ctx context.Context, fsys filesystem.FileSystem) error {
		storageUser = security.EffectiveUser(ctx)
		ok, err := fsys.Exists(ctx, location)
		if err != nil || ok {
			return err
		}
		if err := fsys.MkdirAll(ctx, location); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err == nil && storageUser != creator {
		fileset.Audit = meta.NewAuditInfo(storageUser)
		err = c.store.Put(ctx, types.FilesetKind, ident, fileset, true)
	}
	if err != nil {
		c.release(ctx, ident, location, created && typ == types.FilesetManaged)
		return nil, err
	}
	log.Ctx(ctx).Info().Str("fileset", ident.String()).Str("type", string(typ)).Str("location", location).Msg("created fileset")
	return fileset, nil
}

func (c *Catalog) LoadFileset(ctx context.Context, ident types.NameIdentifier) (*meta.Fileset, apperrors.Error) {
	if err := checkIdent(ident, types.FilesetKind); err != nil {
		return nil, err
	}
	var fileset meta.Fileset
	if err := c.store.Get(ctx, types.FilesetKind, ident, &fileset); err != nil {
		if err.Kind() == caterrors.KindNotFound {
			return nil, caterrors.ErrNoSuchFileset.Msgf("fileset %s does not exist", ident)
		}
		return nil, err
	}
	if fileset.Properties == nil {
		fileset.Properties = map[string]string{}
	}
	return &fileset, nil
}

func (c *Catalog) FilesetExists(ctx context.Context, ident types.NameIdentifier) (bool, apperrors.Error) {
	if err := checkIdent(ident, types.FilesetKind); err != nil {
		return false, err
	}
	return c.store.Exists(ctx, types.FilesetKind, ident)
}

// DropFileset unregisters the fileset. The storage location of a managed
// fileset is removed with it; external locations are left untouched.
func (c *Catalog) DropFileset(ctx context.Context, ident types.NameIdentifier) apperrors.Error {
	fileset, err := c.LoadFileset(ctx, ident)
	if err != nil {
		return err
	}
	if fileset.Type == types.FilesetManaged {
		err = c.withFS(ctx, fileset.StorageLocation, "remove fileset location "+fileset.StorageLocation, func(ctx context.Context, fsys filesystem.FileSystem) error {
			return fsys.RemoveAll(ctx, fileset.StorageLocation)
		})
		if err != nil {
			return err
		}
	}
	existed, err := c.store.Delete(ctx, types.FilesetKind, ident)
	if err != nil {
		return err
	}
	if !existed {
		return caterrors.ErrNoSuchFileset.Msgf("fileset %s does not exist", ident)
	}
	log.Ctx(ctx).Info().Str("fileset", ident.String()).Str("type", string(fileset.Type)).Msg("dropped fileset")
	return nil
}

// release undoes a fileset reservation whose storage could not be prepared.
func (c *Catalog) release(ctx context.Context, ident types.NameIdentifier, location string, removeLocation bool) {
	if _, err := c.store.Delete(ctx, types.FilesetKind, ident); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("fileset", ident.String()).Msg("unable to release fileset reservation")
	}
	if removeLocation {
		c.removeLocation(ctx, location)
	}
}

func (c *Catalog) removeLocation(ctx context.Context, location string) {
	err := c.withFS(ctx, location, "remove "+location, func(ctx context.Context, fsys filesystem.FileSystem) error {
		return fsys.RemoveAll(ctx, location)
	})
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("location", location).Msg("unable to remove storage location")
	}
}

func ignoreNotExist(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
