package jdbc

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/catalogsrv/meta"
	"github.com/tansive/metacatalog/internal/catalogsrv/security"
	"github.com/tansive/metacatalog/internal/common/apperrors"
	"github.com/tansive/metacatalog/pkg/types"
)

// ListTables lists the tables of the schema named by ns.
func (c *Catalog) ListTables(ctx context.Context, ns types.Namespace) ([]types.NameIdentifier, apperrors.Error) {
	schema := ns.Level(ns.Length() - 1)
	var names []string
	err := c.exec.Run(ctx, "list tables in "+schema, func(ctx context.Context, q Querier) error {
		if err := c.requireSchema(ctx, q, schema); err != nil {
			return err
		}
		var err error
		names, err = c.dialect.ListTables(ctx, q, schema)
		return err
	})
	if err != nil {
		return nil, err
	}
	idents := make([]types.NameIdentifier, 0, len(names))
	for _, name := range names {
		id, e := ns.Child(name)
		if e != nil {
			return nil, caterrors.ErrBackendFailure.MsgErr("backend returned an invalid table name", e)
		}
		idents = append(idents, id)
	}
	return idents, nil
}

func (c *Catalog) CreateTable(ctx context.Context, ident types.NameIdentifier, columns []meta.Column, comment *string, props map[string]string) (*meta.Table, apperrors.Error) {
	if err := meta.ValidateColumns(columns); err != nil {
		return nil, err
	}
	if len(props) > 0 {
		return nil, caterrors.ErrUnsupportedOperation.Msgf("%s does not support table properties", c.dialect.Name())
	}
	conv := c.dialect.Converter()
	defs := make([]ColumnDef, 0, len(columns))
	for _, col := range columns {
		native, err := conv.FromLogical(col.Type)
		if err != nil {
			return nil, err.Prefix("column " + col.Name)
		}
		if col.DefaultValue != nil {
			if err := CheckDefaultExpression(*col.DefaultValue); err != nil {
				return nil, err.Prefix("column " + col.Name)
			}
		}
		defs = append(defs, ColumnDef{
			Name:       col.Name,
			NativeType: native,
			Nullable:   col.Nullable,
			Comment:    col.Comment,
			Default:    col.DefaultValue,
		})
	}

	schema, name := ident.Level(2), ident.Name()
	stmts, err := c.dialect.CreateTableStatements(schema, name, defs, comment)
	if err != nil {
		return nil, err
	}

	var creator string
	err = c.exec.RunTx(ctx, "create table "+name, func(ctx context.Context, q Querier) error {
		if err := c.requireSchema(ctx, q, schema); err != nil {
			return err
		}
		_, exists, err := c.dialect.LoadTable(ctx, q, schema, name)
		if err != nil {
			return err
		}
		if exists {
			return caterrors.ErrTableAlreadyExists.Msgf("table %s already exists", ident)
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
	log.Ctx(ctx).Info().Str("table", ident.String()).Int("columns", len(columns)).Msg("created table")
	return &meta.Table{
		Name:       name,
		Comment:    comment,
		Columns:    columns,
		Properties: map[string]string{},
		Audit:      meta.NewAuditInfo(creator),
	}, nil
}

func (c *Catalog) LoadTable(ctx context.Context, ident types.NameIdentifier) (*meta.Table, apperrors.Error) {
	schema, name := ident.Level(2), ident.Name()
	var (
		comment *string
		infos   []ColumnInfo
	)
	err := c.exec.Run(ctx, "load table "+name, func(ctx context.Context, q Querier) error {
		if err := c.requireSchema(ctx, q, schema); err != nil {
			return err
		}
		var (
			exists bool
			err    error
		)
		comment, exists, err = c.dialect.LoadTable(ctx, q, schema, name)
		if err != nil {
			return err
		}
		if !exists {
			return caterrors.ErrNoSuchTable.Msgf("table %s does not exist", ident)
		}
		infos, err = c.dialect.LoadColumns(ctx, q, schema, name)
		return err
	})
	if err != nil {
		return nil, err
	}

	conv := c.dialect.Converter()
	columns := make([]meta.Column, 0, len(infos))
	for _, info := range infos {
		t, err := conv.ToLogical(info.Native)
		if err != nil {
			return nil, err.Prefix("column " + info.Name)
		}
		columns = append(columns, meta.Column{
			Name:         info.Name,
			Type:         t,
			Nullable:     info.Nullable,
			Comment:      info.Comment,
			DefaultValue: info.Default,
		})
	}
	return &meta.Table{
		Name:       name,
		Comment:    comment,
		Columns:    columns,
		Properties: map[string]string{},
	}, nil
}

func (c *Catalog) TableExists(ctx context.Context, ident types.NameIdentifier) (bool, apperrors.Error) {
	return exists(c.LoadTable(ctx, ident))
}

func (c *Catalog) DropTable(ctx context.Context, ident types.NameIdentifier) apperrors.Error {
	schema, name := ident.Level(2), ident.Name()
	err := c.exec.RunTx(ctx, "drop table "+name, func(ctx context.Context, q Querier) error {
		if err := c.requireSchema(ctx, q, schema); err != nil {
			return err
		}
		_, exists, err := c.dialect.LoadTable(ctx, q, schema, name)
		if err != nil {
			return err
		}
		if !exists {
			return caterrors.ErrNoSuchTable.Msgf("table %s does not exist", ident)
		}
		_, err = q.ExecContext(ctx, c.dialect.DropTableStatement(schema, name))
		return err
	})
	if err != nil {
		return err
	}
	log.Ctx(ctx).Info().Str("table", ident.String()).Msg("dropped table")
	return nil
}

func (c *Catalog) requireSchema(ctx context.Context, q Querier, schema string) error {
	_, exists, err := c.dialect.LoadSchema(ctx, q, schema)
	if err != nil {
		return err
	}
	if !exists {
		return caterrors.ErrNoSuchSchema.Msgf("schema %s does not exist", schema)
	}
	return nil
}

// CheckDefaultExpression accepts a column default only when it is a single
// expression. Outside literals it must have balanced parentheses, no top level
// commas, no statement separators, no comments and no dollar quoting. Backslashes
// are refused everywhere since escape string literals would hide a quote.
func CheckDefaultExpression(expr string) apperrors.Error {
	if strings.TrimSpace(expr) == "" {
		return caterrors.ErrInvalidArgument.Msg("column default is empty")
	}
	invalid := func(reason string) apperrors.Error {
		return caterrors.ErrInvalidArgument.Msgf("column default %q %s", expr, reason)
	}
	var (
		quote byte
		depth int
	)
	for i := 0; i < len(expr); i++ {
		ch := expr[i]
		if ch == '\\' {
			return invalid("contains a backslash")
		}
		if quote != 0 {
			if ch == quote {
				if i+1 < len(expr) && expr[i+1] == quote {
					i++
					continue
				}
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"':
			quote = ch
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return invalid("closes an unopened parenthesis")
			}
		case ';':
			return invalid("contains a statement separator")
		case ',':
			if depth == 0 {
				return invalid("is not a single expression")
			}
		case '$':
			return invalid("contains a dollar quote")
		case '-':
			if i+1 < len(expr) && expr[i+1] == '-' {
				return invalid("contains a comment")
			}
		case '/':
			if i+1 < len(expr) && expr[i+1] == '*' {
				return invalid("contains a comment")
			}
		}
	}
	if quote != 0 {
		return invalid("has an unterminated literal")
	}
	if depth != 0 {
		return invalid("has unbalanced parentheses")
	}
	return nil
}
