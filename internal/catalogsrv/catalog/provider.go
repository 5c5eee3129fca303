package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/tansive/metacatalog/internal/catalogsrv/entitystore"
	"github.com/tansive/metacatalog/internal/catalogsrv/meta"
	"github.com/tansive/metacatalog/internal/catalogsrv/security"
	"github.com/tansive/metacatalog/internal/common/apperrors"
	"github.com/tansive/metacatalog/pkg/types"
)

// Environment carries the service wide resources providers may use.
type Environment struct {
	Store          entitystore.Store
	Authenticators security.AuthenticatorFactory
}

// OpenFunc opens the backend of the catalog described by info. sec is the
// security context built from the catalog properties.
type OpenFunc func(ctx context.Context, env Environment, info *meta.Catalog, sec *security.Context) (Backend, apperrors.Error)

type Provider struct {
	Name string
	Type types.CatalogType
	// ValidateProperties checks the catalog properties when the catalog is
	// created, before anything is persisted. Optional.
	ValidateProperties func(props map[string]string) apperrors.Error
	Open               OpenFunc
}

var (
	providersMu sync.RWMutex
	providers   = map[string]Provider{}
)

// RegisterProvider makes a provider available by name. Backend packages call
// it from init. It panics on a duplicate or incomplete registration.
func RegisterProvider(p Provider) {
	if p.Name == "" || p.Open == nil {
		panic("catalog: provider requires a name and an open function")
	}
	providersMu.Lock()
	defer providersMu.Unlock()
	if _, dup := providers[p.Name]; dup {
		panic("catalog: provider registered twice: " + p.Name)
	}
	providers[p.Name] = p
}

func LookupProvider(name string) (Provider, bool) {
	providersMu.RLock()
	defer providersMu.RUnlock()
	p, ok := providers[name]
	return p, ok
}

// Providers lists the registered provider names.
func Providers() []string {
	providersMu.RLock()
	defer providersMu.RUnlock()
	out := make([]string, 0, len(providers))
	for name := range providers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
