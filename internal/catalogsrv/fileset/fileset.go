// Package fileset implements the fileset catalog: schemas and filesets are
// kept in the entity store while their storage directories live on the
// filesystem named by the location URI. Storage calls run as the effective
// identity of the caller.
package fileset

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/catalogsrv/entitystore"
	"github.com/tansive/metacatalog/internal/catalogsrv/fileset/filesystem"
	"github.com/tansive/metacatalog/internal/catalogsrv/meta"
	"github.com/tansive/metacatalog/internal/catalogsrv/security"
	"github.com/tansive/metacatalog/internal/common/apperrors"
	"github.com/tansive/metacatalog/pkg/types"
)

// LocationKey is the catalog and schema property holding the storage root.
const LocationKey = "location"

type Catalog struct {
	ident    types.NameIdentifier
	store    entitystore.Store
	sec      *security.Context
	props    map[string]string
	location string
}

// New returns the fileset backend of the catalog described by info.
func New(info *meta.Catalog, store entitystore.Store, sec *security.Context) (*Catalog, apperrors.Error) {
	if store == nil {
		return nil, caterrors.ErrInvalidConfiguration.Msg("fileset catalogs require an entity store")
	}
	location, err := normalizeLocation(info.Properties[LocationKey])
	if err != nil {
		return nil, err
	}
	return &Catalog{
		ident:    info.Identifier(),
		store:    store,
		sec:      sec,
		props:    meta.CopyProperties(info.Properties),
		location: location,
	}, nil
}

func (c *Catalog) Close() error {
	return nil
}

// withFS runs fn with a filesystem handle for location opened as the
// effective identity.
func (c *Catalog) withFS(ctx context.Context, location, op string, fn func(ctx context.Context, fsys filesystem.FileSystem) error) apperrors.Error {
	err := c.sec.DoAs(ctx, func(ctx context.Context, id security.Identity) error {
		fsys, err := filesystem.Open(ctx, location, id, c.props)
		if err != nil {
			return err
		}
		defer fsys.Close()
		return fn(ctx, fsys)
	})
	if err == nil {
		return nil
	}
	appErr := filesystem.Translate(err, op)
	if appErr.Kind() == caterrors.KindBackendFailure {
		log.Ctx(ctx).Error().Err(err).Str("location", location).Str("op", op).Msg("storage operation failed")
	}
	return appErr
}

func normalizeLocation(location string) (string, apperrors.Error) {
	if location == "" {
		return "", nil
	}
	loc, err := filesystem.ParseLocation(location)
	if err != nil {
		return "", err
	}
	return loc.String(), nil
}

func checkIdent(ident types.NameIdentifier, kind types.EntityKind) apperrors.Error {
	if err := ident.CheckKind(kind); err != nil {
		return caterrors.ErrInvalidIdentifier.MsgErr(err.Error(), err)
	}
	return nil
}
