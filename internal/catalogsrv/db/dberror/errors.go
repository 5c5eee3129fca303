// Package dberror maps native SQL driver errors onto the catalog error taxonomy.
package dberror

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/catalogsrv/security"
	"github.com/tansive/metacatalog/internal/common/apperrors"
)

// Translator recognises the errors of one backend. It returns nil for errors it
// does not know.
type Translator interface {
	Translate(err error) apperrors.Error
}

type TranslatorFunc func(err error) apperrors.Error

func (f TranslatorFunc) Translate(err error) apperrors.Error {
	return f(err)
}

// Translate converts err using t, falling back to the driver independent rules
// and finally to a generic backend failure. msg describes the operation.
func Translate(t Translator, err error, msg string) apperrors.Error {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.As(err); ok && appErr.Kind() != "" {
		return appErr
	}
	if t != nil {
		if appErr := t.Translate(err); appErr != nil {
			return appErr.Prefix(msg).Err(err)
		}
	}
	if security.IsCredentialExpiry(err) {
		return caterrors.ErrCredentialsExpired.MsgErr(msg, err)
	}
	if isUnavailable(err) {
		return caterrors.ErrBackendUnavailable.MsgErr(msg, err)
	}
	return caterrors.Backend(err, msg)
}

func isUnavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
