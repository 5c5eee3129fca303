package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/lib/pq"

	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/catalogsrv/jdbc"
	"github.com/tansive/metacatalog/internal/catalogsrv/rel/datatypes"
	"github.com/tansive/metacatalog/internal/common/apperrors"
)

const (
	DriverPgx = "pgx"
	DriverPq  = "postgres"

	// RoleScope carries the impersonated user as the session role.
	RoleScope = "role"

	urlPrefix = "jdbc:"
)

var systemSchemas = []string{"pg_toast", "pg_catalog", "information_schema"}

// Dialect renders PostgreSQL DDL and reads the PostgreSQL system catalogs.
type Dialect struct {
	conv TypeConverter
}

var _ jdbc.Dialect = (*Dialect)(nil)

func NewDialect() *Dialect {
	return &Dialect{}
}

func (d *Dialect) Name() string {
	return backendName
}

func (d *Dialect) Converter() datatypes.Converter {
	return d.conv
}

func (d *Dialect) DriverName(cfg *jdbc.Config) string {
	if cfg.Driver == "" {
		return DriverPgx
	}
	return cfg.Driver
}

// DSN turns jdbc:postgresql://host:port/db?params into a driver URL carrying
// the configured user, password and database.
func (d *Dialect) DSN(cfg *jdbc.Config) (string, error) {
	if drv := d.DriverName(cfg); drv != DriverPgx && drv != DriverPq {
		return "", fmt.Errorf("unsupported driver %q, expected %s or %s", drv, DriverPgx, DriverPq)
	}
	raw := strings.TrimPrefix(cfg.URL, urlPrefix)
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme != "postgresql" && u.Scheme != "postgres" {
		return "", fmt.Errorf("expected a postgresql url, got scheme %q", u.Scheme)
	}
	if cfg.User != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		} else {
			u.User = url.User(cfg.User)
		}
	}
	if cfg.Database != "" {
		u.Path = "/" + cfg.Database
	}
	return u.String(), nil
}

func (d *Dialect) SessionInit() []string {
	return []string{"SET lock_timeout = '5s'"}
}

// BindDatabase checks that conn is connected to db. PostgreSQL cannot switch
// databases on an open connection, so the database comes from the DSN.
func (d *Dialect) BindDatabase(ctx context.Context, conn *sql.Conn, db string) error {
	var current string
	if err := conn.QueryRowContext(ctx, "SELECT current_database()").Scan(&current); err != nil {
		return err
	}
	if current != db {
		return fmt.Errorf("connected to database %q, expected %q", current, db)
	}
	return nil
}

func (d *Dialect) ImpersonationScope() string {
	return RoleScope
}

func (d *Dialect) ScopeStatement(scope, value string) (string, error) {
	if scope != RoleScope {
		return "", fmt.Errorf("unknown scope %q", scope)
	}
	if value == "" {
		return "", fmt.Errorf("empty role")
	}
	return "SET ROLE " + pq.QuoteIdentifier(value), nil
}

func (d *Dialect) ResetStatement(scope string) string {
	if scope != RoleScope {
		return ""
	}
	return "RESET ROLE"
}

func (d *Dialect) SystemSchemas() []string {
	return systemSchemas
}

// checkComment rejects the empty comment: COMMENT ON ... IS '' drops the
// comment, so it would load back as no comment at all.
func checkComment(what string, comment *string) apperrors.Error {
	if comment != nil && *comment == "" {
		return caterrors.ErrUnsupportedOperation.Msgf("PostgreSQL cannot store an empty %s comment", what)
	}
	return nil
}

func (d *Dialect) CreateSchemaStatements(schema string, comment *string) ([]string, apperrors.Error) {
	if err := checkComment("schema", comment); err != nil {
		return nil, err
	}
	stmts := []string{"CREATE SCHEMA " + pq.QuoteIdentifier(schema)}
	if comment != nil {
		stmts = append(stmts, fmt.Sprintf("COMMENT ON SCHEMA %s IS %s", pq.QuoteIdentifier(schema), pq.QuoteLiteral(*comment)))
	}
	return stmts, nil
}

func (d *Dialect) DropSchemaStatement(schema string, cascade bool) string {
	if cascade {
		return "DROP SCHEMA " + pq.QuoteIdentifier(schema) + " CASCADE"
	}
	return "DROP SCHEMA " + pq.QuoteIdentifier(schema) + " RESTRICT"
}

const listSchemasSQL = `SELECT nspname FROM pg_catalog.pg_namespace
WHERE nspname NOT LIKE 'pg\_temp\_%' AND nspname NOT LIKE 'pg\_toast\_temp\_%'
ORDER BY nspname`

func (d *Dialect) ListSchemas(ctx context.Context, q jdbc.Querier) ([]string, error) {
	rows, err := q.QueryContext(ctx, listSchemasSQL)
	if err != nil {
		return nil, err
	}
	return jdbc.ScanStrings(rows)
}

const loadSchemaSQL = `SELECT obj_description(n.oid, 'pg_namespace') FROM pg_catalog.pg_namespace n WHERE n.nspname = $1`

func (d *Dialect) LoadSchema(ctx context.Context, q jdbc.Querier, schema string) (*string, bool, error) {
	return loadComment(ctx, q, loadSchemaSQL, schema)
}

func (d *Dialect) CreateTableStatements(schema, table string, columns []jdbc.ColumnDef, comment *string) ([]string, apperrors.Error) {
	if err := checkComment("table", comment); err != nil {
		return nil, err
	}
	for _, col := range columns {
		if err := checkComment("column", col.Comment); err != nil {
			return nil, err.Prefix("column " + col.Name)
		}
	}
	qualified := pq.QuoteIdentifier(schema) + "." + pq.QuoteIdentifier(table)
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(qualified)
	b.WriteString(" (\n")
	for i, col := range columns {
		if i > 0 {
			b.WriteString(",\n")
		}
		b.WriteString("  ")
		b.WriteString(pq.QuoteIdentifier(col.Name))
		b.WriteString(" ")
		b.WriteString(col.NativeType)
		if !col.Nullable {
			b.WriteString(" NOT NULL")
		}
		if col.Default != nil {
			b.WriteString(" DEFAULT ")
			b.WriteString(*col.Default)
		}
	}
	b.WriteString("\n)")

	stmts := []string{b.String()}
	if comment != nil {
		stmts = append(stmts, fmt.Sprintf("COMMENT ON TABLE %s IS %s", qualified, pq.QuoteLiteral(*comment)))
	}
	for _, col := range columns {
		if col.Comment != nil {
			stmts = append(stmts, fmt.Sprintf("COMMENT ON COLUMN %s.%s IS %s",
				qualified, pq.QuoteIdentifier(col.Name), pq.QuoteLiteral(*col.Comment)))
		}
	}
	return stmts, nil
}

func (d *Dialect) DropTableStatement(schema, table string) string {
	return "DROP TABLE " + pq.QuoteIdentifier(schema) + "." + pq.QuoteIdentifier(table)
}

const listTablesSQL = `SELECT c.relname FROM pg_catalog.pg_class c
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = $1 AND c.relkind IN ('r', 'p')
ORDER BY c.relname`

func (d *Dialect) ListTables(ctx context.Context, q jdbc.Querier, schema string) ([]string, error) {
	rows, err := q.QueryContext(ctx, listTablesSQL, schema)
	if err != nil {
		return nil, err
	}
	return jdbc.ScanStrings(rows)
}

const loadTableSQL = `SELECT obj_description(c.oid, 'pg_class') FROM pg_catalog.pg_class c
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = $1 AND c.relname = $2 AND c.relkind IN ('r', 'p')`

func (d *Dialect) LoadTable(ctx context.Context, q jdbc.Querier, schema, table string) (*string, bool, error) {
	return loadComment(ctx, q, loadTableSQL, schema, table)
}

const loadColumnsSQL = `SELECT a.attname, t.typname, a.atttypmod, a.attnotnull,
  col_description(a.attrelid, a.attnum),
  pg_get_expr(ad.adbin, ad.adrelid)
FROM pg_catalog.pg_attribute a
JOIN pg_catalog.pg_class c ON c.oid = a.attrelid
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
JOIN pg_catalog.pg_type t ON t.oid = a.atttypid
LEFT JOIN pg_catalog.pg_attrdef ad ON ad.adrelid = a.attrelid AND ad.adnum = a.attnum
WHERE n.nspname = $1 AND c.relname = $2 AND a.attnum > 0 AND NOT a.attisdropped
ORDER BY a.attnum`

func (d *Dialect) LoadColumns(ctx context.Context, q jdbc.Querier, schema, table string) ([]jdbc.ColumnInfo, error) {
	rows, err := q.QueryContext(ctx, loadColumnsSQL, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []jdbc.ColumnInfo
	for rows.Next() {
		var (
			name, typname string
			typmod        int
			notNull       bool
			comment, def  sql.NullString
		)
		if err := rows.Scan(&name, &typname, &typmod, &notNull, &comment, &def); err != nil {
			return nil, err
		}
		cols = append(cols, jdbc.ColumnInfo{
			Name:     name,
			Native:   NativeFromCatalog(typname, typmod),
			Nullable: !notNull,
			Comment:  jdbc.NullString(comment),
			Default:  jdbc.NullString(def),
		})
	}
	return cols, rows.Err()
}

// NativeFromCatalog decodes the type modifier of pg_attribute into the size
// and scale of the descriptor. Array columns carry the modifier of their
// element type.
func NativeFromCatalog(typname string, typmod int) datatypes.NativeType {
	base := strings.TrimPrefix(typname, arrayPrefix)
	// typmod includes a 4 byte header, -1 means no modifier
	if typmod < 4 {
		return datatypes.Native(typname)
	}
	switch base {
	case typeVarchar, typeBpchar:
		return datatypes.NativeWithSize(typname, typmod-4)
	case typeNumeric:
		mod := typmod - 4
		return datatypes.NativeWithScale(typname, (mod>>16)&0xffff, mod&0xffff)
	}
	return datatypes.Native(typname)
}

func loadComment(ctx context.Context, q jdbc.Querier, query string, args ...any) (*string, bool, error) {
	var comment sql.NullString
	err := q.QueryRowContext(ctx, query, args...).Scan(&comment)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return jdbc.NullString(comment), true, nil
}
