package catalog

import (
	"context"

	"github.com/tansive/metacatalog/internal/catalogsrv/meta"
	"github.com/tansive/metacatalog/internal/common/apperrors"
	"github.com/tansive/metacatalog/pkg/types"
)

// SupportsSchemas is the schema capability of a catalog. Schema identifiers
// are metalake.catalog.schema.
type SupportsSchemas interface {
	ListSchemas(ctx context.Context, ns types.Namespace) ([]types.NameIdentifier, apperrors.Error)
	CreateSchema(ctx context.Context, ident types.NameIdentifier, comment *string, props map[string]string) (*meta.Schema, apperrors.Error)
	LoadSchema(ctx context.Context, ident types.NameIdentifier) (*meta.Schema, apperrors.Error)
	SchemaExists(ctx context.Context, ident types.NameIdentifier) (bool, apperrors.Error)
	// DropSchema fails with ErrNonEmptySchema when the schema has children
	// and cascade is false.
	DropSchema(ctx context.Context, ident types.NameIdentifier, cascade bool) apperrors.Error
}

// TableCatalog is the table capability of a relational catalog.
type TableCatalog interface {
	ListTables(ctx context.Context, ns types.Namespace) ([]types.NameIdentifier, apperrors.Error)
	CreateTable(ctx context.Context, ident types.NameIdentifier, columns []meta.Column, comment *string, props map[string]string) (*meta.Table, apperrors.Error)
	LoadTable(ctx context.Context, ident types.NameIdentifier) (*meta.Table, apperrors.Error)
	TableExists(ctx context.Context, ident types.NameIdentifier) (bool, apperrors.Error)
	DropTable(ctx context.Context, ident types.NameIdentifier) apperrors.Error
}

// FilesetCatalog is the fileset capability of a fileset catalog.
type FilesetCatalog interface {
	ListFilesets(ctx context.Context, ns types.Namespace) ([]types.NameIdentifier, apperrors.Error)
	// CreateFileset registers a fileset and creates its storage location. An
	// empty fileset type selects FilesetManaged; an empty location is derived
	// for managed filesets.
	CreateFileset(ctx context.Context, ident types.NameIdentifier, comment *string, typ types.FilesetType, location string, props map[string]string) (*meta.Fileset, apperrors.Error)
	LoadFileset(ctx context.Context, ident types.NameIdentifier) (*meta.Fileset, apperrors.Error)
	FilesetExists(ctx context.Context, ident types.NameIdentifier) (bool, apperrors.Error)
	DropFileset(ctx context.Context, ident types.NameIdentifier) apperrors.Error
}

// Backend is what a provider opens for a catalog. It offers its capabilities
// by implementing the capability interfaces.
type Backend interface {
	Close() error
}
