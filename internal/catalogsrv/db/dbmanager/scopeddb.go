package dbmanager

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"maps"
	"slices"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

var ErrUnknownScope = errors.New("scope is not configured")

var errBadConn = driver.ErrBadConn

// scopedConn represents a connection taken from the pool.
type scopedConn struct {
	conn             *sql.Conn
	cancel           context.CancelFunc
	scopes           map[string]string
	configuredScopes []string
	session          SessionDialect
	pool             *scopedPool
}

// scopedPool represents a pool of database connections.
type scopedPool struct {
	opts         Options
	connRequests atomic.Uint64
	connReturns  atomic.Uint64
	db           *sql.DB
}

// NewScopedDb opens a pool with the given options and pings the database.
func NewScopedDb(ctx context.Context, opts Options) (ScopedDb, error) {
	sqlDB, err := sql.Open(opts.DriverName, opts.DSN)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("driver", opts.DriverName).Msg("failed to open db")
		return nil, err
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}

	pingCtx := ctx
	if opts.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, opts.AcquireTimeout)
		defer cancel()
	}
	if err := sqlDB.PingContext(pingCtx); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("driver", opts.DriverName).Msg("failed to ping db")
		sqlDB.Close()
		return nil, err
	}

	return &scopedPool{
		opts: opts,
		db:   sqlDB,
	}, nil
}

// Conn returns a new connection from the pool. The acquisition, session
// initialisation and database binding are bounded by the acquire timeout; the
// returned connection itself lives until Close or until ctx is done.
func (p *scopedPool) Conn(ctx context.Context) (ScopedConn, error) {
	ctx, cancel := context.WithCancel(ctx)

	acquireCtx := ctx
	if p.opts.AcquireTimeout > 0 {
		var acquireCancel context.CancelFunc
		acquireCtx, acquireCancel = context.WithTimeout(ctx, p.opts.AcquireTimeout)
		defer acquireCancel()
	}

	conn, err := p.db.Conn(acquireCtx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to obtain connection")
		cancel()
		return nil, err
	}

	h := &scopedConn{
		configuredScopes: p.opts.Scopes,
		scopes:           make(map[string]string),
		session:          p.opts.Session,
		cancel:           cancel,
		pool:             p,
		conn:             conn,
	}
	p.connRequests.Add(1)

	if err := h.prepare(acquireCtx, p.opts.Database); err != nil {
		h.Close(ctx)
		return nil, err
	}
	return h, nil
}

func (h *scopedConn) prepare(ctx context.Context, database string) error {
	if h.session == nil {
		return nil
	}
	for _, stmt := range h.session.SessionInit() {
		if _, err := h.conn.ExecContext(ctx, stmt); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("stmt", stmt).Msg("failed to initialise session")
			return err
		}
	}
	if database != "" {
		if err := h.session.BindDatabase(ctx, h.conn, database); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("database", database).Msg("failed to bind database")
			return err
		}
	}
	// Clean up the scopes, just in case.
	return h.DropAllScopes(ctx)
}

// Stats returns the number of connection requests and returns made to the pool.
func (p *scopedPool) Stats() (requests, returns uint64) {
	return p.connRequests.Load(), p.connReturns.Load()
}

func (p *scopedPool) Close() error {
	return p.db.Close()
}

// Close cleans up the scopes and returns the connection back to the pool. A
// connection whose scopes could not be reset is discarded instead of reused.
func (h *scopedConn) Close(ctx context.Context) {
	if h.conn == nil {
		return
	}
	// the caller's context may already be done, reset on a fresh one
	resetCtx := context.WithoutCancel(ctx)
	if err := h.DropAllScopes(resetCtx); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to reset scopes, discarding connection")
		h.conn.Raw(func(any) error { return errBadConn })
	}
	if h.cancel != nil {
		h.cancel()
	}
	h.conn.Close()
	h.conn = nil
	h.pool.connReturns.Add(1)
}

// IsConfiguredScope checks if the given scope is configured.
func (h *scopedConn) IsConfiguredScope(scope string) bool {
	return slices.Contains(h.configuredScopes, scope)
}

// AddScopes adds the given scopes to the connection.
func (h *scopedConn) AddScopes(ctx context.Context, scopes map[string]string) error {
	for scope, value := range scopes {
		if err := h.AddScope(ctx, scope, value); err != nil {
			return err
		}
	}
	return nil
}

// AddScope adds a single scope to the connection.
func (h *scopedConn) AddScope(ctx context.Context, scope, value string) error {
	if h.conn == nil {
		return sql.ErrConnDone
	}
	if !h.IsConfiguredScope(scope) || h.session == nil {
		return ErrUnknownScope
	}
	sqlCmd, err := h.session.ScopeStatement(scope, value)
	if err != nil {
		return err
	}
	if _, err := h.conn.ExecContext(ctx, sqlCmd); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("scope", scope).Msg("failed to set scope")
		return err
	}
	h.scopes[scope] = value
	return nil
}

func (h *scopedConn) Scopes() map[string]string {
	return maps.Clone(h.scopes)
}

// DropScopes drops the given scopes from the connection.
func (h *scopedConn) DropScopes(ctx context.Context, scopes []string) error {
	for _, scope := range scopes {
		if err := h.DropScope(ctx, scope); err != nil {
			return err
		}
	}
	return nil
}

// DropScope drops a single scope from the connection.
func (h *scopedConn) DropScope(ctx context.Context, scope string) error {
	if h.conn == nil {
		return nil
	}
	if h.session == nil {
		return nil
	}
	sqlCmd := h.session.ResetStatement(scope)
	if sqlCmd == "" {
		delete(h.scopes, scope)
		return nil
	}
	if _, err := h.conn.ExecContext(ctx, sqlCmd); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("scope", scope).Msg("failed to reset scope")
		return err
	}
	delete(h.scopes, scope)
	return nil
}

// DropAllScopes drops all the configured scopes from the connection.
func (h *scopedConn) DropAllScopes(ctx context.Context) error {
	return h.DropScopes(ctx, h.configuredScopes)
}

// Conn returns the underlying connection.
func (h *scopedConn) Conn() *sql.Conn {
	return h.conn
}
