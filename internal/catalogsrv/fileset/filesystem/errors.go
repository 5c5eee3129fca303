package filesystem

import (
	"context"
	"io/fs"
	"net"
	"os"

	"github.com/pkg/errors"

	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/catalogsrv/security"
	"github.com/tansive/metacatalog/internal/common/apperrors"
)

var ErrNoSuchLocation apperrors.Error = caterrors.ErrNotFound.New("no such storage location")

// Translate maps a filesystem error onto the catalog error taxonomy. op names
// the failed operation.
func Translate(err error, op string) apperrors.Error {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.As(err); ok && appErr.Kind() != "" {
		return appErr
	}
	switch {
	case security.IsCredentialExpiry(err):
		return caterrors.ErrCredentialsExpired.MsgErr(op, err)
	case errors.Is(err, ErrUnsupportedScheme):
		return caterrors.ErrInvalidArgument.MsgErr(op, err)
	case errors.Is(err, fs.ErrPermission):
		return caterrors.ErrPermissionDenied.MsgErr(op, err)
	case errors.Is(err, fs.ErrNotExist):
		return ErrNoSuchLocation.MsgErr(op, err)
	case isTimeout(err):
		return caterrors.ErrBackendUnavailable.MsgErr(op, err)
	}
	return caterrors.Backend(err, op)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func pathError(op, location string, err error) error {
	return &fs.PathError{Op: op, Path: location, Err: err}
}
