// Package caterrors defines the error taxonomy surfaced by catalog operations.
// Every error carries a stable kind tag so that callers can branch on the
// category without knowing which backend produced it.
package caterrors

import (
	"context"
	"errors"
	"net/http"

	"github.com/tansive/metacatalog/internal/common/apperrors"
)

const (
	KindNotFound             = "NotFound"
	KindAlreadyExists        = "AlreadyExists"
	KindInvalidArgument      = "InvalidArgument"
	KindUnsupportedOperation = "UnsupportedOperation"
	KindBackendFailure       = "BackendFailure"
	KindSecurityFailure      = "SecurityFailure"
)

var (
	ErrCatalogService apperrors.Error = apperrors.New("catalog service error").SetStatusCode(http.StatusInternalServerError).SetExpandError(true)

	ErrNotFound       apperrors.Error = ErrCatalogService.New("not found").SetStatusCode(http.StatusNotFound).SetKind(KindNotFound)
	ErrNoSuchMetalake apperrors.Error = ErrNotFound.New("no such metalake")
	ErrNoSuchCatalog  apperrors.Error = ErrNotFound.New("no such catalog")
	ErrNoSuchSchema   apperrors.Error = ErrNotFound.New("no such schema")
	ErrNoSuchTable    apperrors.Error = ErrNotFound.New("no such table")
	ErrNoSuchFileset  apperrors.Error = ErrNotFound.New("no such fileset")

	ErrAlreadyExists         apperrors.Error = ErrCatalogService.New("already exists").SetStatusCode(http.StatusConflict).SetKind(KindAlreadyExists)
	ErrMetalakeAlreadyExists apperrors.Error = ErrAlreadyExists.New("metalake already exists")
	ErrCatalogAlreadyExists  apperrors.Error = ErrAlreadyExists.New("catalog already exists")
	ErrSchemaAlreadyExists   apperrors.Error = ErrAlreadyExists.New("schema already exists")
	ErrTableAlreadyExists    apperrors.Error = ErrAlreadyExists.New("table already exists")
	ErrFilesetAlreadyExists  apperrors.Error = ErrAlreadyExists.New("fileset already exists")

	ErrInvalidArgument      apperrors.Error = ErrCatalogService.New("invalid argument").SetStatusCode(http.StatusBadRequest).SetKind(KindInvalidArgument)
	ErrInvalidIdentifier    apperrors.Error = ErrInvalidArgument.New("invalid identifier")
	ErrInvalidConfiguration apperrors.Error = ErrInvalidArgument.New("invalid catalog configuration")
	ErrUnsupportedType      apperrors.Error = ErrInvalidArgument.New("unsupported type")
	ErrInvalidType          apperrors.Error = ErrInvalidArgument.New("invalid type")
	ErrNonEmptySchema       apperrors.Error = ErrInvalidArgument.New("schema is not empty").SetStatusCode(http.StatusConflict)
	ErrNonEmptyMetalake     apperrors.Error = ErrInvalidArgument.New("metalake is not empty").SetStatusCode(http.StatusConflict)

	ErrUnsupportedOperation  apperrors.Error = ErrCatalogService.New("unsupported operation").SetStatusCode(http.StatusNotImplemented).SetKind(KindUnsupportedOperation)
	ErrUnsupportedCapability apperrors.Error = ErrUnsupportedOperation.New("unsupported capability")

	ErrBackendFailure     apperrors.Error = ErrCatalogService.New("backend failure").SetStatusCode(http.StatusInternalServerError).SetKind(KindBackendFailure)
	ErrBackendUnavailable apperrors.Error = ErrBackendFailure.New("backend unavailable").SetStatusCode(http.StatusServiceUnavailable)

	ErrSecurityFailure       apperrors.Error = ErrCatalogService.New("security failure").SetStatusCode(http.StatusUnauthorized).SetKind(KindSecurityFailure)
	ErrCredentialsExpired    apperrors.Error = ErrSecurityFailure.New("credentials expired")
	ErrPermissionDenied      apperrors.Error = ErrSecurityFailure.New("permission denied").SetStatusCode(http.StatusForbidden)
	ErrMissingCallerIdentity apperrors.Error = ErrSecurityFailure.New("no caller identity in request")
)

// Kind returns the taxonomy kind of err, or an empty string when err did not
// originate from this package.
func Kind(err error) string {
	if appErr, ok := apperrors.As(err); ok {
		return appErr.Kind()
	}
	return ""
}

// IsTransient reports whether err is a timeout or availability failure that
// may succeed when retried.
func IsTransient(err error) bool {
	return errors.Is(err, ErrBackendUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Backend wraps a native backend error that no translator recognised.
// Errors that already belong to the taxonomy are returned unchanged.
func Backend(err error, msg string) apperrors.Error {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.As(err); ok && appErr.Kind() != "" {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrBackendUnavailable.MsgErr(msg, err)
	}
	return ErrBackendFailure.MsgErr(msg, err)
}
