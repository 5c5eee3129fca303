// Package jdbc executes schema and table operations of relational catalogs on
// a pool of scoped connections. The SQL text and the catalog queries of each
// backend come from a Dialect.
package jdbc

import (
	"context"
	"database/sql"

	"github.com/tansive/metacatalog/internal/catalogsrv/db/dberror"
	"github.com/tansive/metacatalog/internal/catalogsrv/db/dbmanager"
	"github.com/tansive/metacatalog/internal/catalogsrv/rel/datatypes"
	"github.com/tansive/metacatalog/internal/common/apperrors"
)

// Querier is satisfied by *sql.Conn and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ColumnDef is a column rendered for DDL.
type ColumnDef struct {
	Name       string
	NativeType string
	Nullable   bool
	Comment    *string
	Default    *string
}

// ColumnInfo is a column as reported by the backend catalog.
type ColumnInfo struct {
	Name     string
	Native   datatypes.NativeType
	Nullable bool
	Comment  *string
	Default  *string
}

type Dialect interface {
	dbmanager.SessionDialect
	dberror.Translator

	Name() string
	DriverName(cfg *Config) string
	DSN(cfg *Config) (string, error)
	Converter() datatypes.Converter
	// ImpersonationScope names the connection scope that carries the effective
	// user, or "" when the backend cannot impersonate.
	ImpersonationScope() string
	// SystemSchemas is matched case-insensitively against listed schemas.
	SystemSchemas() []string

	CreateSchemaStatements(schema string, comment *string) ([]string, apperrors.Error)
	DropSchemaStatement(schema string, cascade bool) string
	ListSchemas(ctx context.Context, q Querier) ([]string, error)
	// LoadSchema returns the schema comment and whether the schema exists.
	LoadSchema(ctx context.Context, q Querier, schema string) (*string, bool, error)

	CreateTableStatements(schema, table string, columns []ColumnDef, comment *string) ([]string, apperrors.Error)
	DropTableStatement(schema, table string) string
	ListTables(ctx context.Context, q Querier, schema string) ([]string, error)
	// LoadTable returns the table comment and whether the table exists.
	LoadTable(ctx context.Context, q Querier, schema, table string) (*string, bool, error)
	LoadColumns(ctx context.Context, q Querier, schema, table string) ([]ColumnInfo, error)
}

// ScanStrings reads a single string column from rows and closes them.
func ScanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// NullString converts a scanned nullable string to a pointer.
func NullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
