package apis

import (
	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/common/apperrors"
)

var (
	ErrInvalidRequestBody apperrors.Error = caterrors.ErrInvalidArgument.New("invalid request body")
	ErrInvalidPathParam   apperrors.Error = caterrors.ErrInvalidIdentifier.New("invalid name in request path")
)
