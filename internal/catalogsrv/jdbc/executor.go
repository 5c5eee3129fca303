package jdbc

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog/log"
	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/catalogsrv/db/dberror"
	"github.com/tansive/metacatalog/internal/catalogsrv/db/dbmanager"
	"github.com/tansive/metacatalog/internal/catalogsrv/security"
	"github.com/tansive/metacatalog/internal/common/apperrors"
)

// Executor runs backend calls of one catalog: each call resolves the effective
// identity, takes its own scoped connection, switches to the impersonated user
// when required and translates every failure before returning.
type Executor struct {
	dialect Dialect
	cfg     *Config
	sec     *security.Context
	db      dbmanager.ScopedDb
}

// NewExecutor opens the connection pool for cfg.
func NewExecutor(ctx context.Context, dialect Dialect, cfg *Config, sec *security.Context) (*Executor, apperrors.Error) {
	scope := dialect.ImpersonationScope()
	if sec.Mode() == security.ModeImpersonated && scope == "" {
		return nil, caterrors.ErrInvalidConfiguration.Msgf("%s does not support impersonation", dialect.Name())
	}
	dsn, err := dialect.DSN(cfg)
	if err != nil {
		return nil, caterrors.ErrInvalidConfiguration.MsgErr("invalid "+URLKey, err)
	}
	opts := dbmanager.Options{
		DriverName:     dialect.DriverName(cfg),
		DSN:            dsn,
		Database:       cfg.Database,
		Session:        dialect,
		MaxOpenConns:   cfg.PoolMaxSize,
		MaxIdleConns:   cfg.PoolMaxSize,
		AcquireTimeout: cfg.AcquireTimeout,
	}
	if scope != "" {
		opts.Scopes = []string{scope}
	}
	db, err := dbmanager.NewScopedDb(ctx, opts)
	if err != nil {
		return nil, dberror.Translate(dialect, err, "connect to "+dialect.Name())
	}
	return &Executor{
		dialect: dialect,
		cfg:     cfg,
		sec:     sec,
		db:      db,
	}, nil
}

func (e *Executor) Dialect() Dialect {
	return e.dialect
}

// Run executes fn on a scoped connection. op names the operation in errors.
func (e *Executor) Run(ctx context.Context, op string, fn func(ctx context.Context, q Querier) error) apperrors.Error {
	err := e.sec.DoAs(ctx, func(ctx context.Context, id security.Identity) error {
		return e.runAs(ctx, op, id, func(ctx context.Context, conn *sql.Conn) error {
			return fn(ctx, conn)
		})
	})
	return dberror.Translate(e.dialect, err, op)
}

// RunTx executes fn in a transaction on a scoped connection. The transaction
// is rolled back when fn fails.
func (e *Executor) RunTx(ctx context.Context, op string, fn func(ctx context.Context, q Querier) error) apperrors.Error {
	err := e.sec.DoAs(ctx, func(ctx context.Context, id security.Identity) error {
		return e.runAs(ctx, op, id, func(ctx context.Context, conn *sql.Conn) error {
			tx, err := conn.BeginTx(ctx, nil)
			if err != nil {
				return err
			}
			if err := fn(ctx, tx); err != nil {
				if rbErr := tx.Rollback(); rbErr != nil {
					log.Ctx(ctx).Error().Err(rbErr).Str("op", op).Msg("failed to rollback")
				}
				return err
			}
			return tx.Commit()
		})
	})
	return dberror.Translate(e.dialect, err, op)
}

// Exec runs statements in order, in one transaction.
func (e *Executor) Exec(ctx context.Context, op string, stmts ...string) apperrors.Error {
	return e.RunTx(ctx, op, func(ctx context.Context, q Querier) error {
		for _, stmt := range stmts {
			log.Ctx(ctx).Debug().Str("op", op).Str("sql", stmt).Msg("executing")
			if _, err := q.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *Executor) runAs(ctx context.Context, op string, id security.Identity, fn func(ctx context.Context, conn *sql.Conn) error) error {
	conn, err := e.db.Conn(ctx)
	if err != nil {
		return dberror.Translate(e.dialect, err, "acquire connection")
	}
	defer conn.Close(ctx)

	if id.Impersonated() {
		if err := conn.AddScope(ctx, e.dialect.ImpersonationScope(), id.User); err != nil {
			return dberror.Translate(e.dialect, err, "impersonate "+id.User)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.StatementTimeout)
	defer cancel()
	if err := fn(ctx, conn.Conn()); err != nil {
		appErr := dberror.Translate(e.dialect, err, op)
		if appErr.Kind() == caterrors.KindBackendFailure {
			log.Ctx(ctx).Error().Err(err).Str("op", op).Str("backend", e.dialect.Name()).Msg("backend call failed")
		}
		return appErr
	}
	return nil
}

// Stats reports connection requests and returns of the pool.
func (e *Executor) Stats() (requests, returns uint64) {
	return e.db.Stats()
}

func (e *Executor) Close() error {
	return e.db.Close()
}
