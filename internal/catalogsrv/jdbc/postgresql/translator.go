package postgresql

import (
	"errors"
	"strings"

	"github.com/jackc/pgconn"
	"github.com/lib/pq"

	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/common/apperrors"
)

// SQLSTATE codes, see https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	codeDuplicateSchema       = "42P06"
	codeDuplicateTable        = "42P07"
	codeUndefinedTable        = "42P01"
	codeInvalidSchemaName     = "3F000"
	codeInvalidCatalogName    = "3D000"
	codeDependentObjects      = "2BP01"
	codeInsufficientPrivilege = "42501"
	codeQueryCanceled         = "57014"
	codeUndefinedObject       = "42704"

	classConnection    = "08"
	classInvalidAuth   = "28"
	classInsufficient  = "53"
	classOperatorIntvn = "57"
)

// Translate maps PostgreSQL errors from either driver by SQLSTATE.
func (d *Dialect) Translate(err error) apperrors.Error {
	code, msg, ok := sqlState(err)
	if !ok {
		if pgconn.Timeout(err) {
			return caterrors.ErrBackendUnavailable.Msg("postgresql timeout")
		}
		return nil
	}
	return translateCode(code, msg)
}

func sqlState(err error) (code, msg string, ok bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.Message, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Message, true
	}
	return "", "", false
}

func translateCode(code, msg string) apperrors.Error {
	switch code {
	case codeDuplicateSchema:
		return caterrors.ErrSchemaAlreadyExists.Msg(msg)
	case codeDuplicateTable:
		return caterrors.ErrTableAlreadyExists.Msg(msg)
	case codeUndefinedTable:
		return caterrors.ErrNoSuchTable.Msg(msg)
	case codeInvalidSchemaName, codeInvalidCatalogName:
		return caterrors.ErrNoSuchSchema.Msg(msg)
	case codeDependentObjects:
		return caterrors.ErrNonEmptySchema.Msg(msg)
	case codeInsufficientPrivilege:
		return caterrors.ErrPermissionDenied.Msg(msg)
	case codeQueryCanceled:
		return caterrors.ErrBackendUnavailable.Msg(msg)
	case codeUndefinedObject:
		// SET ROLE to a role that does not exist
		if strings.Contains(msg, "role") {
			return caterrors.ErrPermissionDenied.Msg(msg)
		}
		return nil
	}
	if len(code) < 2 {
		return nil
	}
	switch code[:2] {
	case classInvalidAuth:
		// GSSAPI failures report the expired ticket in the message text
		if strings.Contains(strings.ToLower(msg), "expired") {
			return caterrors.ErrCredentialsExpired.Msg(msg)
		}
		return caterrors.ErrSecurityFailure.Msg(msg)
	case classConnection, classInsufficient, classOperatorIntvn:
		return caterrors.ErrBackendUnavailable.Msg(msg)
	}
	return nil
}
