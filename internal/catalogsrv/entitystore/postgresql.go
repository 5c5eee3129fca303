package entitystore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgtype"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/rs/zerolog/log"

	"github.com/tansive/metacatalog/internal/catalogsrv/db/dbmanager"
	"github.com/tansive/metacatalog/internal/common/apperrors"
	"github.com/tansive/metacatalog/pkg/types"
)

const createTableSQL = `
	CREATE TABLE IF NOT EXISTS catalog_entities (
		kind       TEXT NOT NULL,
		ident      TEXT NOT NULL,
		parent     TEXT NOT NULL,
		name       TEXT NOT NULL,
		body       JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (kind, ident)
	);
	CREATE INDEX IF NOT EXISTS catalog_entities_parent ON catalog_entities (kind, parent, name);
`

// PostgresStore keeps entities in a single PostgreSQL table.
type PostgresStore struct {
	db dbmanager.ScopedDb
}

var _ Store = (*PostgresStore)(nil)

type pgSession struct{}

func (pgSession) SessionInit() []string {
	return []string{
		"SET lock_timeout = '5s'",
		"SET statement_timeout = '5s'",
	}
}

func (pgSession) BindDatabase(ctx context.Context, conn *sql.Conn, db string) error {
	return nil
}

func (pgSession) ScopeStatement(scope, value string) (string, error) {
	return "", dbmanager.ErrUnknownScope
}

func (pgSession) ResetStatement(scope string) string {
	return ""
}

// OpenPostgres connects to dsn and creates the entity table when missing.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := dbmanager.NewScopedDb(ctx, dbmanager.Options{
		DriverName:     "pgx",
		DSN:            dsn,
		Session:        pgSession{},
		MaxOpenConns:   10,
		MaxIdleConns:   10,
		AcquireTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{db: db}
	err = s.withConn(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, createTableSQL)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) withConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	return fn(conn.Conn())
}

func levelsKey(levels []string) string {
	return strings.Join(levels, levelSep)
}

func (s *PostgresStore) Put(ctx context.Context, kind types.EntityKind, ident types.NameIdentifier, value any, overwrite bool) apperrors.Error {
	if err := checkIdent(kind, ident); err != nil {
		return err
	}
	b, appErr := encode(value)
	if appErr != nil {
		return appErr
	}
	body := pgtype.JSONB{Bytes: b, Status: pgtype.Present}
	query := `
		INSERT INTO catalog_entities (kind, ident, parent, name, body)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (kind, ident) DO NOTHING
		RETURNING ident;
	`
	if overwrite {
		query = `
			INSERT INTO catalog_entities (kind, ident, parent, name, body)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (kind, ident) DO UPDATE SET body = EXCLUDED.body, updated_at = now()
			RETURNING ident;
		`
	}
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		var inserted string
		err := conn.QueryRowContext(ctx, query, string(kind), levelsKey(ident.Levels()),
			levelsKey(ident.Namespace().Levels()), ident.Name(), body).Scan(&inserted)
		if errors.Is(err, sql.ErrNoRows) {
			log.Ctx(ctx).Info().Str("kind", string(kind)).Str("ident", ident.String()).Msg("entity already exists")
			return alreadyExists(kind, ident)
		}
		return err
	})
	return storeError(ctx, err, "put "+string(kind))
}

func (s *PostgresStore) Get(ctx context.Context, kind types.EntityKind, ident types.NameIdentifier, out any) apperrors.Error {
	if err := checkIdent(kind, ident); err != nil {
		return err
	}
	var body pgtype.JSONB
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		err := conn.QueryRowContext(ctx,
			`SELECT body FROM catalog_entities WHERE kind = $1 AND ident = $2`,
			string(kind), levelsKey(ident.Levels())).Scan(&body)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound(kind, ident)
		}
		return err
	})
	if err != nil {
		return storeError(ctx, err, "get "+string(kind))
	}
	return decode(body.Bytes, out)
}

func (s *PostgresStore) Exists(ctx context.Context, kind types.EntityKind, ident types.NameIdentifier) (bool, apperrors.Error) {
	if err := checkIdent(kind, ident); err != nil {
		return false, err
	}
	var found bool
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM catalog_entities WHERE kind = $1 AND ident = $2)`,
			string(kind), levelsKey(ident.Levels())).Scan(&found)
	})
	if err != nil {
		return false, storeError(ctx, err, "lookup "+string(kind))
	}
	return found, nil
}

func (s *PostgresStore) List(ctx context.Context, kind types.EntityKind, ns types.Namespace) ([]types.NameIdentifier, apperrors.Error) {
	if err := checkNamespace(kind, ns); err != nil {
		return nil, err
	}
	var idents []types.NameIdentifier
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx,
			`SELECT name FROM catalog_entities WHERE kind = $1 AND parent = $2 ORDER BY name`,
			string(kind), levelsKey(ns.Levels()))
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			ident, err := ns.Child(name)
			if err != nil {
				return err
			}
			idents = append(idents, ident)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, storeError(ctx, err, "list "+string(kind))
	}
	return idents, nil
}

func (s *PostgresStore) Delete(ctx context.Context, kind types.EntityKind, ident types.NameIdentifier) (bool, apperrors.Error) {
	if err := checkIdent(kind, ident); err != nil {
		return false, err
	}
	var affected int64
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx,
			`DELETE FROM catalog_entities WHERE kind = $1 AND ident = $2`,
			string(kind), levelsKey(ident.Levels()))
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, storeError(ctx, err, "delete "+string(kind))
	}
	return affected > 0, nil
}

func (s *PostgresStore) DeleteChildren(ctx context.Context, ident types.NameIdentifier) apperrors.Error {
	if err := ident.Validate(); err != nil {
		return ErrStore.MsgErr("invalid parent identifier", err)
	}
	prefix := levelsKey(ident.Levels()) + levelSep
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, `DELETE FROM catalog_entities WHERE starts_with(ident, $1)`, prefix)
		return err
	})
	return storeError(ctx, err, "delete children")
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
