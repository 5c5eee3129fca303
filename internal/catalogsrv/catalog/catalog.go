// Package catalog binds a stored catalog definition to the backend that
// serves it. A Catalog exposes the capabilities its backend implements as
// views; every call through a view checks that the identifier belongs to the
// catalog and is recorded in the operation metrics.
package catalog

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/catalogsrv/meta"
	"github.com/tansive/metacatalog/internal/catalogsrv/metrics"
	"github.com/tansive/metacatalog/internal/catalogsrv/security"
	"github.com/tansive/metacatalog/internal/common/apperrors"
	"github.com/tansive/metacatalog/pkg/types"
)

type Catalog struct {
	info    *meta.Catalog
	ident   types.NameIdentifier
	backend Backend
	sec     *security.Context

	schemas  SupportsSchemas
	tables   TableCatalog
	filesets FilesetCatalog
}

// Validate checks a catalog definition against its provider without opening
// it.
func Validate(info *meta.Catalog) (Provider, apperrors.Error) {
	p, ok := LookupProvider(info.Provider)
	if !ok {
		return Provider{}, caterrors.ErrInvalidArgument.Msgf("unknown catalog provider %q", info.Provider)
	}
	if p.Type != info.Type {
		return Provider{}, caterrors.ErrInvalidArgument.Msgf("provider %s serves %s catalogs, not %s", p.Name, p.Type, info.Type)
	}
	if _, err := security.ParseAuthConfig(info.Properties); err != nil {
		return Provider{}, err
	}
	if p.ValidateProperties != nil {
		if err := p.ValidateProperties(info.Properties); err != nil {
			return Provider{}, err
		}
	}
	return p, nil
}

// Open opens the backend of info.
func Open(ctx context.Context, env Environment, info *meta.Catalog) (*Catalog, apperrors.Error) {
	p, err := Validate(info)
	if err != nil {
		return nil, err
	}
	ident, idErr := types.NewNameIdentifier(info.Metalake, info.Name)
	if idErr != nil {
		return nil, caterrors.ErrInvalidIdentifier.MsgErr("catalog "+info.Name, idErr)
	}
	sec, err := security.NewContextFromProperties(info.Properties, env.Authenticators)
	if err != nil {
		return nil, err
	}
	ctx = log.Ctx(ctx).With().Str("catalog", ident.String()).Str("provider", p.Name).Logger().WithContext(ctx)
	backend, err := p.Open(ctx, env, info, sec)
	if err != nil {
		sec.Close()
		return nil, err
	}
	c := New(info, backend)
	c.sec = sec
	metrics.CatalogsOpen.WithLabelValues(p.Name).Inc()
	log.Ctx(ctx).Info().Str("mode", sec.Mode().String()).Msg("opened catalog")
	return c, nil
}

// New wraps an opened backend.
func New(info *meta.Catalog, backend Backend) *Catalog {
	c := &Catalog{
		info:    info,
		ident:   info.Identifier(),
		backend: backend,
	}
	if s, ok := backend.(SupportsSchemas); ok {
		c.schemas = s
	}
	if t, ok := backend.(TableCatalog); ok {
		c.tables = t
	}
	if f, ok := backend.(FilesetCatalog); ok {
		c.filesets = f
	}
	return c
}

func (c *Catalog) Info() *meta.Catalog {
	return c.info
}

func (c *Catalog) Identifier() types.NameIdentifier {
	return c.ident
}

func (c *Catalog) AsSchemas() (SupportsSchemas, apperrors.Error) {
	if c.schemas == nil {
		return nil, c.unsupported("schemas")
	}
	return &schemaView{c: c, inner: c.schemas}, nil
}

func (c *Catalog) AsTableCatalog() (TableCatalog, apperrors.Error) {
	if c.tables == nil {
		return nil, c.unsupported("tables")
	}
	return &tableView{c: c, inner: c.tables}, nil
}

func (c *Catalog) AsFilesetCatalog() (FilesetCatalog, apperrors.Error) {
	if c.filesets == nil {
		return nil, c.unsupported("filesets")
	}
	return &filesetView{c: c, inner: c.filesets}, nil
}

// Close releases the backend and the service login.
func (c *Catalog) Close() error {
	err := c.backend.Close()
	if c.sec != nil {
		c.sec.Close()
		metrics.CatalogsOpen.WithLabelValues(c.info.Provider).Dec()
	}
	return err
}

func (c *Catalog) unsupported(capability string) apperrors.Error {
	return caterrors.ErrUnsupportedCapability.Msgf("catalog %s (%s) does not support %s", c.ident, c.info.Provider, capability)
}

// checkNamespace verifies that ns names this catalog, optionally followed by
// the extra levels given.
func (c *Catalog) checkNamespace(ns types.Namespace, depth int) apperrors.Error {
	if ns.Length() != depth || ns.Level(0) != c.ident.Level(0) || ns.Level(1) != c.ident.Name() {
		return caterrors.ErrInvalidIdentifier.Msgf("namespace %q does not belong to catalog %s", ns.String(), c.ident)
	}
	return nil
}

func (c *Catalog) checkIdent(ident types.NameIdentifier, kind types.EntityKind) apperrors.Error {
	if err := ident.CheckKind(kind); err != nil {
		return caterrors.ErrInvalidIdentifier.MsgErr(err.Error(), err)
	}
	return c.checkNamespace(ident.Namespace(), kind.Depth()-1)
}

// observe records the outcome of one operation.
func (c *Catalog) observe(ctx context.Context, op string, start time.Time, err apperrors.Error) {
	kind := ""
	if err != nil {
		kind = err.Kind()
		if kind == "" {
			kind = caterrors.KindBackendFailure
		}
		log.Ctx(ctx).Debug().Err(err).Str("catalog", c.ident.String()).Str("op", op).Msg("catalog operation failed")
	}
	metrics.RecordOperation(c.info.Provider, op, kind, time.Since(start))
}
