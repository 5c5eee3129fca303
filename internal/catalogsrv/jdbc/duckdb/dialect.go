package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	duckdbdriver "github.com/duckdb/duckdb-go/v2"
	"github.com/lib/pq"

	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/catalogsrv/jdbc"
	"github.com/tansive/metacatalog/internal/catalogsrv/rel/datatypes"
	"github.com/tansive/metacatalog/internal/common/apperrors"
)

const (
	DriverName = "duckdb"

	// jdbc:duckdb: opens an in-memory database, jdbc:duckdb:/path/file.db a file.
	urlPrefix = "jdbc:duckdb:"
)

var systemSchemas = []string{"information_schema", "pg_catalog"}

// Dialect renders DuckDB DDL and reads the duckdb_* metadata functions. DuckDB
// runs in process and has no users, so it cannot impersonate.
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
	return DriverName
}

func (d *Dialect) DSN(cfg *jdbc.Config) (string, error) {
	if cfg.Driver != "" && cfg.Driver != DriverName {
		return "", fmt.Errorf("unsupported driver %q, expected %s", cfg.Driver, DriverName)
	}
	if !strings.HasPrefix(cfg.URL, urlPrefix) {
		return "", fmt.Errorf("expected a url starting with %s", urlPrefix)
	}
	path := strings.TrimPrefix(cfg.URL, urlPrefix)
	if path == ":memory:" {
		path = ""
	}
	return path, nil
}

func (d *Dialect) SessionInit() []string {
	return nil
}

// BindDatabase makes db the default database of conn, DuckDB keeps the
// setting per connection.
func (d *Dialect) BindDatabase(ctx context.Context, conn *sql.Conn, db string) error {
	_, err := conn.ExecContext(ctx, "USE "+quoteIdent(db))
	return err
}

func (d *Dialect) ImpersonationScope() string {
	return ""
}

func (d *Dialect) ScopeStatement(scope, value string) (string, error) {
	return "", fmt.Errorf("duckdb does not support scope %q", scope)
}

func (d *Dialect) ResetStatement(scope string) string {
	return ""
}

func (d *Dialect) SystemSchemas() []string {
	return systemSchemas
}

func (d *Dialect) CreateSchemaStatements(schema string, comment *string) ([]string, apperrors.Error) {
	if comment != nil {
		return nil, caterrors.ErrUnsupportedOperation.Msg("duckdb does not support schema comments")
	}
	return []string{"CREATE SCHEMA " + quoteIdent(schema)}, nil
}

func (d *Dialect) DropSchemaStatement(schema string, cascade bool) string {
	if cascade {
		return "DROP SCHEMA " + quoteIdent(schema) + " CASCADE"
	}
	return "DROP SCHEMA " + quoteIdent(schema) + " RESTRICT"
}

const listSchemasSQL = `SELECT schema_name FROM information_schema.schemata
WHERE catalog_name = current_database()
ORDER BY schema_name`

func (d *Dialect) ListSchemas(ctx context.Context, q jdbc.Querier) ([]string, error) {
	rows, err := q.QueryContext(ctx, listSchemasSQL)
	if err != nil {
		return nil, err
	}
	return jdbc.ScanStrings(rows)
}

const loadSchemaSQL = `SELECT comment FROM duckdb_schemas()
WHERE database_name = current_database() AND schema_name = $1`

func (d *Dialect) LoadSchema(ctx context.Context, q jdbc.Querier, schema string) (*string, bool, error) {
	return loadComment(ctx, q, loadSchemaSQL, schema)
}

func (d *Dialect) CreateTableStatements(schema, table string, columns []jdbc.ColumnDef, comment *string) ([]string, apperrors.Error) {
	qualified := quoteIdent(schema) + "." + quoteIdent(table)
	defs := make([]string, 0, len(columns))
	for _, col := range columns {
		def := "  " + quoteIdent(col.Name) + " " + col.NativeType
		if !col.Nullable {
			def += " NOT NULL"
		}
		if col.Default != nil {
			def += " DEFAULT " + *col.Default
		}
		defs = append(defs, def)
	}
	stmts := []string{"CREATE TABLE " + qualified + " (\n" + strings.Join(defs, ",\n") + "\n)"}
	if comment != nil {
		stmts = append(stmts, "COMMENT ON TABLE "+qualified+" IS "+quoteLiteral(*comment))
	}
	for _, col := range columns {
		if col.Comment != nil {
			stmts = append(stmts, "COMMENT ON COLUMN "+qualified+"."+quoteIdent(col.Name)+" IS "+quoteLiteral(*col.Comment))
		}
	}
	return stmts, nil
}

func (d *Dialect) DropTableStatement(schema, table string) string {
	return "DROP TABLE " + quoteIdent(schema) + "." + quoteIdent(table)
}

const listTablesSQL = `SELECT table_name FROM duckdb_tables()
WHERE database_name = current_database() AND schema_name = $1 AND NOT temporary
ORDER BY table_name`

func (d *Dialect) ListTables(ctx context.Context, q jdbc.Querier, schema string) ([]string, error) {
	rows, err := q.QueryContext(ctx, listTablesSQL, schema)
	if err != nil {
		return nil, err
	}
	return jdbc.ScanStrings(rows)
}

const loadTableSQL = `SELECT comment FROM duckdb_tables()
WHERE database_name = current_database() AND schema_name = $1 AND table_name = $2`

func (d *Dialect) LoadTable(ctx context.Context, q jdbc.Querier, schema, table string) (*string, bool, error) {
	return loadComment(ctx, q, loadTableSQL, schema, table)
}

const loadColumnsSQL = `SELECT column_name, data_type, is_nullable, comment, column_default
FROM duckdb_columns()
WHERE database_name = current_database() AND schema_name = $1 AND table_name = $2
ORDER BY column_index`

func (d *Dialect) LoadColumns(ctx context.Context, q jdbc.Querier, schema, table string) ([]jdbc.ColumnInfo, error) {
	rows, err := q.QueryContext(ctx, loadColumnsSQL, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []jdbc.ColumnInfo
	for rows.Next() {
		var (
			name, dataType string
			nullable       bool
			comment, def   sql.NullString
		)
		if err := rows.Scan(&name, &dataType, &nullable, &comment, &def); err != nil {
			return nil, err
		}
		cols = append(cols, jdbc.ColumnInfo{
			Name:     name,
			Native:   ParseNative(dataType),
			Nullable: nullable,
			Comment:  jdbc.NullString(comment),
			Default:  jdbc.NullString(def),
		})
	}
	return cols, rows.Err()
}

// Translate maps DuckDB errors by error type and message. DuckDB reports
// catalog conflicts with the object kind in the message, for example
// "Catalog Error: Schema with name s already exists!".
func (d *Dialect) Translate(err error) apperrors.Error {
	var dbErr *duckdbdriver.Error
	if !errors.As(err, &dbErr) {
		return nil
	}
	msg := dbErr.Msg
	lower := strings.ToLower(msg)
	switch dbErr.Type {
	case duckdbdriver.ErrorTypeCatalog:
		switch {
		case strings.Contains(lower, "already exists"):
			if strings.Contains(lower, "table with name") {
				return caterrors.ErrTableAlreadyExists.Msg(msg)
			}
			return caterrors.ErrSchemaAlreadyExists.Msg(msg)
		case strings.Contains(lower, "does not exist"):
			if strings.Contains(lower, "table with name") {
				return caterrors.ErrNoSuchTable.Msg(msg)
			}
			if strings.Contains(lower, "schema with name") {
				return caterrors.ErrNoSuchSchema.Msg(msg)
			}
		}
	case duckdbdriver.ErrorTypeDependency:
		return caterrors.ErrNonEmptySchema.Msg(msg)
	case duckdbdriver.ErrorTypePermission:
		return caterrors.ErrPermissionDenied.Msg(msg)
	case duckdbdriver.ErrorTypeConnection, duckdbdriver.ErrorTypeInterrupt, duckdbdriver.ErrorTypeIO:
		return caterrors.ErrBackendUnavailable.Msg(msg)
	case duckdbdriver.ErrorTypeNotImplemented:
		return caterrors.ErrUnsupportedOperation.Msg(msg)
	}
	return nil
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

// DuckDB quotes identifiers like PostgreSQL.
func quoteIdent(s string) string {
	return pq.QuoteIdentifier(s)
}

// quoteLiteral quotes a string constant. DuckDB does not treat backslashes as
// escapes, so only single quotes are doubled.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
