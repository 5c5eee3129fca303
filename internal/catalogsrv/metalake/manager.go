// Package metalake manages the metalakes and catalogs owned by the service and
// keeps the opened catalog instances.
package metalake

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/tansive/metacatalog/internal/catalogsrv/catalog"
	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/catalogsrv/entitystore"
	"github.com/tansive/metacatalog/internal/catalogsrv/meta"
	"github.com/tansive/metacatalog/internal/catalogsrv/security"
	"github.com/tansive/metacatalog/internal/common/apperrors"
	"github.com/tansive/metacatalog/pkg/types"
)

// Manager is safe for concurrent use. Catalog instances are opened on first
// use and shared until the catalog is dropped or altered.
type Manager struct {
	env   catalog.Environment
	store entitystore.Store

	mu    sync.Mutex
	open  map[types.NameIdentifier]*openCatalog
	gens  map[types.NameIdentifier]uint64
	group singleflight.Group
}

// openCatalog is a shared catalog instance. refs counts the acquirers that
// have not released it; an evicted instance is closed when refs drops to zero.
type openCatalog struct {
	c       *catalog.Catalog
	refs    int
	evicted bool
}

func NewManager(env catalog.Environment) *Manager {
	return &Manager{
		env:   env,
		store: env.Store,
		open:  map[types.NameIdentifier]*openCatalog{},
		gens:  map[types.NameIdentifier]uint64{},
	}
}

func (m *Manager) CreateMetalake(ctx context.Context, name string, comment *string, props map[string]string) (*meta.Metalake, apperrors.Error) {
	ident, err := metalakeIdent(name)
	if err != nil {
		return nil, err
	}
	lake := &meta.Metalake{
		ID:         uuid.New(),
		Name:       name,
		Comment:    comment,
		Properties: meta.CopyProperties(props),
		Audit:      meta.NewAuditInfo(security.EffectiveUser(ctx)),
	}
	if err := m.store.Put(ctx, types.MetalakeKind, ident, lake, false); err != nil {
		if err.Kind() == caterrors.KindAlreadyExists {
			return nil, caterrors.ErrMetalakeAlreadyExists.Msgf("metalake %s already exists", name)
		}
		return nil, err
	}
	log.Ctx(ctx).Info().Str("metalake", name).Msg("created metalake")
	return lake, nil
}

func (m *Manager) LoadMetalake(ctx context.Context, name string) (*meta.Metalake, apperrors.Error) {
	ident, err := metalakeIdent(name)
	if err != nil {
		return nil, err
	}
	var lake meta.Metalake
	if err := m.store.Get(ctx, types.MetalakeKind, ident, &lake); err != nil {
		if err.Kind() == caterrors.KindNotFound {
			return nil, caterrors.ErrNoSuchMetalake.Msgf("metalake %s does not exist", name)
		}
		return nil, err
	}
	if lake.Properties == nil {
		lake.Properties = map[string]string{}
	}
	return &lake, nil
}

func (m *Manager) ListMetalakes(ctx context.Context) ([]*meta.Metalake, apperrors.Error) {
	idents, err := m.store.List(ctx, types.MetalakeKind, types.Namespace{})
	if err != nil {
		return nil, err
	}
	out := make([]*meta.Metalake, 0, len(idents))
	for _, ident := range idents {
		lake, err := m.LoadMetalake(ctx, ident.Name())
		if err != nil {
			if err.Kind() == caterrors.KindNotFound {
				continue
			}
			return nil, err
		}
		out = append(out, lake)
	}
	return out, nil
}

// UpdateMetalake replaces the comment and properties of a metalake.
func (m *Manager) UpdateMetalake(ctx context.Context, name string, comment *string, props map[string]string) (*meta.Metalake, apperrors.Error) {
	lake, err := m.LoadMetalake(ctx, name)
	if err != nil {
		return nil, err
	}
	lake.Comment = comment
	lake.Properties = meta.CopyProperties(props)
	touch(ctx, lake.Audit)
	ident, _ := metalakeIdent(name)
	if err := m.store.Put(ctx, types.MetalakeKind, ident, lake, true); err != nil {
		return nil, err
	}
	return lake, nil
}

// DropMetalake removes an empty metalake.
func (m *Manager) DropMetalake(ctx context.Context, name string) apperrors.Error {
	ident, err := metalakeIdent(name)
	if err != nil {
		return err
	}
	ns, _ := ident.AsNamespace()
	catalogs, err := m.store.List(ctx, types.CatalogKind, ns)
	if err != nil {
		return err
	}
	if len(catalogs) > 0 {
		return caterrors.ErrNonEmptyMetalake.Msgf("metalake %s still has %d catalogs", name, len(catalogs))
	}
	existed, err := m.store.Delete(ctx, types.MetalakeKind, ident)
	if err != nil {
		return err
	}
	if !existed {
		return caterrors.ErrNoSuchMetalake.Msgf("metalake %s does not exist", name)
	}
	log.Ctx(ctx).Info().Str("metalake", name).Msg("dropped metalake")
	return nil
}

func metalakeIdent(name string) (types.NameIdentifier, apperrors.Error) {
	ident, err := types.NewNameIdentifier(name)
	if err != nil {
		return types.NameIdentifier{}, caterrors.ErrInvalidIdentifier.MsgErr("metalake "+name, err)
	}
	return ident, nil
}

func touch(ctx context.Context, audit *meta.AuditInfo) {
	if audit == nil {
		return
	}
	now := time.Now().UTC()
	audit.LastModifier = security.EffectiveUser(ctx)
	audit.LastModifiedTime = &now
}

// Close closes every open catalog that is not acquired. Acquired catalogs
// are closed by their last release.
func (m *Manager) Close() error {
	m.mu.Lock()
	var idle []*catalog.Catalog
	for ident, e := range m.open {
		m.gens[ident]++
		e.evicted = true
		if e.refs == 0 {
			idle = append(idle, e.c)
		}
	}
	m.open = map[types.NameIdentifier]*openCatalog{}
	m.mu.Unlock()
	var firstErr error
	for _, c := range idle {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
