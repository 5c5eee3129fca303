package jdbc

import (
	"context"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"

	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/catalogsrv/meta"
	"github.com/tansive/metacatalog/internal/catalogsrv/security"
	"github.com/tansive/metacatalog/internal/common/apperrors"
	"github.com/tansive/metacatalog/pkg/types"
)

// Catalog implements the schema and table operations of a relational catalog.
// Identifiers are expected to be checked against the catalog by the caller;
// only the schema and table levels are used here.
type Catalog struct {
	exec    *Executor
	dialect Dialect
}

func NewCatalog(exec *Executor) *Catalog {
	return &Catalog{
		exec:    exec,
		dialect: exec.Dialect(),
	}
}

func (c *Catalog) Close() error {
	return c.exec.Close()
}

// ListSchemas lists the schemas of the catalog named by ns, without the system
// schemas of the backend.
func (c *Catalog) ListSchemas(ctx context.Context, ns types.Namespace) ([]types.NameIdentifier, apperrors.Error) {
	var names []string
	err := c.exec.Run(ctx, "list schemas", func(ctx context.Context, q Querier) error {
		var err error
		names, err = c.dialect.ListSchemas(ctx, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	names = FilterSystemSchemas(names, c.dialect.SystemSchemas())
	idents := make([]types.NameIdentifier, 0, len(names))
	for _, name := range names {
		id, e := ns.Child(name)
		if e != nil {
			return nil, caterrors.ErrBackendFailure.MsgErr("backend returned an invalid schema name", e)
		}
		idents = append(idents, id)
	}
	return idents, nil
}

// FilterSystemSchemas drops the names found in denylist, ignoring case.
func FilterSystemSchemas(names, denylist []string) []string {
	fold := cases.Fold()
	deny := make(map[string]struct{}, len(denylist))
	for _, s := range denylist {
		deny[fold.String(s)] = struct{}{}
	}
	out := names[:0:0]
	for _, name := range names {
		if _, ok := deny[fold.String(name)]; ok {
			continue
		}
		out = append(out, name)
	}
	return out
}

func (c *Catalog) CreateSchema(ctx context.Context, ident types.NameIdentifier, comment *string, props map[string]string) (*meta.Schema, apperrors.Error) {
	name := ident.Name()
	if len(props) > 0 {
		return nil, caterrors.ErrUnsupportedOperation.Msgf("%s does not support schema properties", c.dialect.Name())
	}
	stmts, err := c.dialect.CreateSchemaStatements(name, comment)
	if err != nil {
		return nil, err
	}

	var creator string
	err = c.exec.RunTx(ctx, "create schema "+name, func(ctx context.Context, q Querier) error {
		_, exists, err := c.dialect.LoadSchema(ctx, q, name)
		if err != nil {
			return err
		}
		if exists {
			return caterrors.ErrSchemaAlreadyExists.Msgf("schema %s already exists", ident)
		}
		for _, stmt := range stmts {
			if _, err := q.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		creator = security.EffectiveUser(ctx)
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().Str("schema", ident.String()).Str("backend", c.dialect.Name()).Msg("created schema")
	return &meta.Schema{
		Name:       name,
		Comment:    comment,
		Properties: map[string]string{},
		Audit:      meta.NewAuditInfo(creator),
	}, nil
}

func (c *Catalog) LoadSchema(ctx context.Context, ident types.NameIdentifier) (*meta.Schema, apperrors.Error) {
	name := ident.Name()
	var schema *meta.Schema
	err := c.exec.Run(ctx, "load schema "+name, func(ctx context.Context, q Querier) error {
		comment, exists, err := c.dialect.LoadSchema(ctx, q, name)
		if err != nil {
			return err
		}
		if !exists {
			return caterrors.ErrNoSuchSchema.Msgf("schema %s does not exist", ident)
		}
		schema = &meta.Schema{
			Name:       name,
			Comment:    comment,
			Properties: map[string]string{},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return schema, nil
}

func (c *Catalog) SchemaExists(ctx context.Context, ident types.NameIdentifier) (bool, apperrors.Error) {
	return exists(c.LoadSchema(ctx, ident))
}

// DropSchema drops the schema. Without cascade a schema holding tables is
// rejected.
func (c *Catalog) DropSchema(ctx context.Context, ident types.NameIdentifier, cascade bool) apperrors.Error {
	name := ident.Name()
	err := c.exec.RunTx(ctx, "drop schema "+name, func(ctx context.Context, q Querier) error {
		_, exists, err := c.dialect.LoadSchema(ctx, q, name)
		if err != nil {
			return err
		}
		if !exists {
			return caterrors.ErrNoSuchSchema.Msgf("schema %s does not exist", ident)
		}
		if !cascade {
			tables, err := c.dialect.ListTables(ctx, q, name)
			if err != nil {
				return err
			}
			if len(tables) > 0 {
				return caterrors.ErrNonEmptySchema.Msgf("schema %s has %d tables", ident, len(tables))
			}
		}
		_, err = q.ExecContext(ctx, c.dialect.DropSchemaStatement(name, cascade))
		return err
	})
	if err != nil {
		return err
	}
	log.Ctx(ctx).Info().Str("schema", ident.String()).Bool("cascade", cascade).Msg("dropped schema")
	return nil
}

func exists[T any](_ T, err apperrors.Error) (bool, apperrors.Error) {
	if err == nil {
		return true, nil
	}
	if err.Kind() == caterrors.KindNotFound {
		return false, nil
	}
	return false, err
}
