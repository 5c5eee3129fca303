package metalake

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tansive/metacatalog/internal/catalogsrv/catalog"
	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/catalogsrv/meta"
	"github.com/tansive/metacatalog/internal/catalogsrv/security"
	"github.com/tansive/metacatalog/internal/common/apperrors"
	"github.com/tansive/metacatalog/pkg/types"
)

// CreateCatalog validates the definition with its provider, records it and
// opens it once so that unusable configurations are rejected up front.
func (m *Manager) CreateCatalog(ctx context.Context, ident types.NameIdentifier, typ types.CatalogType, provider string, comment *string, props map[string]string) (*meta.Catalog, apperrors.Error) {
	if err := checkCatalogIdent(ident); err != nil {
		return nil, err
	}
	info := &meta.Catalog{
		ID:         uuid.New(),
		Metalake:   ident.Level(0),
		Name:       ident.Name(),
		Type:       typ,
		Provider:   provider,
		Comment:    comment,
		Properties: meta.CopyProperties(props),
		Audit:      meta.NewAuditInfo(security.EffectiveUser(ctx)),
	}
	if _, err := catalog.Validate(info); err != nil {
		return nil, err
	}
	if _, err := m.LoadMetalake(ctx, info.Metalake); err != nil {
		return nil, err
	}
	if err := m.store.Put(ctx, types.CatalogKind, ident, info, false); err != nil {
		if err.Kind() == caterrors.KindAlreadyExists {
			return nil, caterrors.ErrCatalogAlreadyExists.Msgf("catalog %s already exists", ident)
		}
		return nil, err
	}
	_, release, err := m.Acquire(ctx, ident)
	if err != nil {
		if _, derr := m.store.Delete(ctx, types.CatalogKind, ident); derr != nil {
			log.Ctx(ctx).Error().Err(derr).Str("catalog", ident.String()).Msg("unable to remove catalog that failed to open")
		}
		return nil, err
	}
	release()
	log.Ctx(ctx).Info().Str("catalog", ident.String()).Str("provider", provider).Msg("created catalog")
	return info, nil
}

func (m *Manager) LoadCatalog(ctx context.Context, ident types.NameIdentifier) (*meta.Catalog, apperrors.Error) {
	if err := checkCatalogIdent(ident); err != nil {
		return nil, err
	}
	var info meta.Catalog
	if err := m.store.Get(ctx, types.CatalogKind, ident, &info); err != nil {
		if err.Kind() == caterrors.KindNotFound {
			return nil, caterrors.ErrNoSuchCatalog.Msgf("catalog %s does not exist", ident)
		}
		return nil, err
	}
	if info.Properties == nil {
		info.Properties = map[string]string{}
	}
	return &info, nil
}

func (m *Manager) ListCatalogs(ctx context.Context, metalake string) ([]types.NameIdentifier, apperrors.Error) {
	if _, err := m.LoadMetalake(ctx, metalake); err != nil {
		return nil, err
	}
	ns, err := types.NewNamespace(metalake)
	if err != nil {
		return nil, caterrors.ErrInvalidIdentifier.MsgErr("metalake "+metalake, err)
	}
	return m.store.List(ctx, types.CatalogKind, ns)
}

// UpdateCatalog replaces the comment and properties of a catalog. The open
// instance is closed so that the next use picks up the new properties.
func (m *Manager) UpdateCatalog(ctx context.Context, ident types.NameIdentifier, comment *string, props map[string]string) (*meta.Catalog, apperrors.Error) {
	info, err := m.LoadCatalog(ctx, ident)
	if err != nil {
		return nil, err
	}
	updated := *info
	updated.Comment = comment
	updated.Properties = meta.CopyProperties(props)
	if _, err := catalog.Validate(&updated); err != nil {
		return nil, err
	}
	if updated.Audit != nil {
		audit := *updated.Audit
		touch(ctx, &audit)
		updated.Audit = &audit
	}
	if err := m.store.Put(ctx, types.CatalogKind, ident, &updated, true); err != nil {
		return nil, err
	}
	m.evict(ctx, ident)
	return &updated, nil
}

// DropCatalog removes the catalog and every entity stored below it. Objects
// held by the backend itself are not touched.
func (m *Manager) DropCatalog(ctx context.Context, ident types.NameIdentifier) apperrors.Error {
	if _, err := m.LoadCatalog(ctx, ident); err != nil {
		return err
	}
	if err := m.store.DeleteChildren(ctx, ident); err != nil {
		return err
	}
	existed, err := m.store.Delete(ctx, types.CatalogKind, ident)
	m.evict(ctx, ident)
	if err != nil {
		return err
	}
	if !existed {
		return caterrors.ErrNoSuchCatalog.Msgf("catalog %s does not exist", ident)
	}
	log.Ctx(ctx).Info().Str("catalog", ident.String()).Msg("dropped catalog")
	return nil
}

// maxOpenAttempts bounds how often Acquire reopens a catalog that was evicted
// between its open and its first use.
const maxOpenAttempts = 3

// Acquire returns the open instance of the catalog, opening it when needed,
// and a release func that the caller must call once it no longer uses the
// instance. Concurrent first uses share a single open. An instance that is
// altered or dropped while acquired is closed by its last release.
func (m *Manager) Acquire(ctx context.Context, ident types.NameIdentifier) (*catalog.Catalog, func(), apperrors.Error) {
	if err := checkCatalogIdent(ident); err != nil {
		return nil, nil, err
	}
	for attempt := 0; ; attempt++ {
		m.mu.Lock()
		if e, ok := m.open[ident]; ok {
			e.refs++
			m.mu.Unlock()
			return e.c, m.releaseFunc(ctx, ident, e), nil
		}
		gen := m.gens[ident]
		m.mu.Unlock()
		if attempt == maxOpenAttempts {
			return nil, nil, caterrors.ErrBackendUnavailable.Msgf("catalog %s keeps changing while it is being opened", ident)
		}
		if err := m.openOnce(ctx, ident, gen); err != nil {
			return nil, nil, err
		}
	}
}

// openOnce opens the catalog and registers it unless it changed since gen.
func (m *Manager) openOnce(ctx context.Context, ident types.NameIdentifier, gen uint64) apperrors.Error {
	_, err, _ := m.group.Do(ident.String(), func() (any, error) {
		info, err := m.LoadCatalog(ctx, ident)
		if err != nil {
			return nil, err
		}
		c, err := catalog.Open(ctx, m.env, info)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.gens[ident] != gen {
			c.Close()
			return nil, caterrors.ErrNoSuchCatalog.Msgf("catalog %s changed while it was being opened", ident)
		}
		if _, ok := m.open[ident]; ok {
			c.Close()
			return nil, nil
		}
		m.open[ident] = &openCatalog{c: c}
		return nil, nil
	})
	if err != nil {
		return caterrors.Backend(err, "open catalog "+ident.String())
	}
	return nil
}

func (m *Manager) releaseFunc(ctx context.Context, ident types.NameIdentifier, e *openCatalog) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			e.refs--
			closeNow := e.evicted && e.refs == 0
			m.mu.Unlock()
			if closeNow {
				closeCatalog(ctx, ident, e.c)
			}
		})
	}
}

// evict retires the open instance of ident, if any, and invalidates opens in
// flight. The instance is closed now when unused, else by its last release.
func (m *Manager) evict(ctx context.Context, ident types.NameIdentifier) {
	m.mu.Lock()
	e, ok := m.open[ident]
	delete(m.open, ident)
	m.gens[ident]++
	closeNow := false
	if ok {
		e.evicted = true
		closeNow = e.refs == 0
	}
	m.mu.Unlock()
	m.group.Forget(ident.String())
	if closeNow {
		closeCatalog(ctx, ident, e.c)
	}
}

func closeCatalog(ctx context.Context, ident types.NameIdentifier, c *catalog.Catalog) {
	if err := c.Close(); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("catalog", ident.String()).Msg("error closing catalog")
	}
}

func checkCatalogIdent(ident types.NameIdentifier) apperrors.Error {
	if err := ident.CheckKind(types.CatalogKind); err != nil {
		return caterrors.ErrInvalidIdentifier.MsgErr(err.Error(), err)
	}
	return nil
}
