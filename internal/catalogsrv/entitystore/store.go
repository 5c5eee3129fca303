// Package entitystore persists the catalog entities the service owns itself:
// metalakes, catalogs, and the schemas and filesets of fileset catalogs.
// Entities are addressed by kind and identifier and stored as JSON.
package entitystore

import (
	"context"
	"strings"

	json "github.com/json-iterator/go"

	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/common/apperrors"
	"github.com/tansive/metacatalog/pkg/types"
)

var (
	ErrEntityNotFound      apperrors.Error = caterrors.ErrNotFound.New("entity not found")
	ErrEntityAlreadyExists apperrors.Error = caterrors.ErrAlreadyExists.New("entity already exists")
	ErrStore               apperrors.Error = caterrors.ErrBackendFailure.New("entity store failure")
)

var allKinds = []types.EntityKind{
	types.MetalakeKind,
	types.CatalogKind,
	types.SchemaKind,
	types.TableKind,
	types.FilesetKind,
}

type Store interface {
	// Put stores value under ident. An existing entity is replaced only when
	// overwrite is set, otherwise ErrEntityAlreadyExists is returned.
	Put(ctx context.Context, kind types.EntityKind, ident types.NameIdentifier, value any, overwrite bool) apperrors.Error
	// Get decodes the entity into out.
	Get(ctx context.Context, kind types.EntityKind, ident types.NameIdentifier, out any) apperrors.Error
	Exists(ctx context.Context, kind types.EntityKind, ident types.NameIdentifier) (bool, apperrors.Error)
	// List returns the identifiers of the entities of kind directly under ns,
	// sorted by name.
	List(ctx context.Context, kind types.EntityKind, ns types.Namespace) ([]types.NameIdentifier, apperrors.Error)
	// Delete removes the entity and reports whether it existed.
	Delete(ctx context.Context, kind types.EntityKind, ident types.NameIdentifier) (bool, apperrors.Error)
	// DeleteChildren removes every entity whose identifier is below ident.
	DeleteChildren(ctx context.Context, ident types.NameIdentifier) apperrors.Error
	Close() error
}

const (
	kindSep  = "/"
	levelSep = "\x1f"
)

// entityKey renders kind/level1<US>level2... Entities of one kind all have the
// same depth, so a prefix scan on a namespace returns its direct children only.
func entityKey(kind types.EntityKind, ident types.NameIdentifier) string {
	return string(kind) + kindSep + strings.Join(ident.Levels(), levelSep)
}

func childPrefix(kind types.EntityKind, ns types.Namespace) string {
	if ns.IsEmpty() {
		return string(kind) + kindSep
	}
	return string(kind) + kindSep + strings.Join(ns.Levels(), levelSep) + levelSep
}

func identFromKey(key string) (types.NameIdentifier, error) {
	_, rest, _ := strings.Cut(key, kindSep)
	return types.NewNameIdentifier(strings.Split(rest, levelSep)...)
}

func checkIdent(kind types.EntityKind, ident types.NameIdentifier) apperrors.Error {
	if err := ident.CheckKind(kind); err != nil {
		return caterrors.ErrInvalidIdentifier.MsgErr(err.Error(), err)
	}
	return nil
}

func checkNamespace(kind types.EntityKind, ns types.Namespace) apperrors.Error {
	if ns.Length() != kind.Depth()-1 {
		return caterrors.ErrInvalidIdentifier.Msgf("%s namespace %q must have %d levels", kind, ns.String(), kind.Depth()-1)
	}
	return nil
}

func encode(value any) ([]byte, apperrors.Error) {
	b, err := json.Marshal(value)
	if err != nil {
		return nil, ErrStore.MsgErr("unable to encode entity", err)
	}
	return b, nil
}

func decode(b []byte, out any) apperrors.Error {
	if err := json.Unmarshal(b, out); err != nil {
		return ErrStore.MsgErr("unable to decode entity", err)
	}
	return nil
}

func notFound(kind types.EntityKind, ident types.NameIdentifier) apperrors.Error {
	return ErrEntityNotFound.Msgf("%s %s does not exist", kind, ident)
}

func alreadyExists(kind types.EntityKind, ident types.NameIdentifier) apperrors.Error {
	return ErrEntityAlreadyExists.Msgf("%s %s already exists", kind, ident)
}
