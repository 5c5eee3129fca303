// Package dbmanager manages pools of scoped database connections. A scoped
// connection carries session state (bound database, impersonated role) that is
// always reset before the connection goes back to the pool.
package dbmanager

import (
	"context"
	"database/sql"
	"time"
)

type ScopedDb interface {
	// Conn returns a new connection to the database.
	// Returns a ScopedConn and an error, if any.
	Conn(ctx context.Context) (ScopedConn, error)
	// Stats returns the number of connection requests and returns.
	Stats() (requests, returns uint64)
	// Close closes the underlying pool.
	Close() error
}

type ScopedConn interface {
	// AddScopes adds the given scopes to the connection.
	AddScopes(ctx context.Context, scopes map[string]string) error
	// DropScopes drops the given scopes from the connection.
	DropScopes(ctx context.Context, scopes []string) error
	// AddScope adds the given scope with the given value to the connection.
	AddScope(ctx context.Context, scope, value string) error
	// DropScope drops the given scope from the connection.
	DropScope(ctx context.Context, scope string) error
	// DropAllScopes drops all scopes from the connection.
	DropAllScopes(ctx context.Context) error
	// Scopes returns a copy of the scopes currently set.
	Scopes() map[string]string
	// Conn returns the underlying connection of the ScopedConn.
	Conn() *sql.Conn
	// Close drops all scopes and returns the connection back to the pool.
	Close(ctx context.Context)
}

// SessionDialect renders the backend specific session statements.
type SessionDialect interface {
	// SessionInit returns statements run on every acquired connection.
	SessionInit() []string
	// BindDatabase makes db the current database of conn.
	BindDatabase(ctx context.Context, conn *sql.Conn, db string) error
	// ScopeStatement returns the statement that sets scope to value.
	ScopeStatement(scope, value string) (string, error)
	// ResetStatement returns the statement that clears scope.
	ResetStatement(scope string) string
}

type Options struct {
	DriverName string
	DSN        string
	// Database is bound on every connection when not empty.
	Database string
	// Scopes lists the scopes a connection may carry.
	Scopes         []string
	Session        SessionDialect
	MaxOpenConns   int
	MaxIdleConns   int
	AcquireTimeout time.Duration
}
