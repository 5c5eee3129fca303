package auth

import (
	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/common/apperrors"
)

// Base auth error
var (
	ErrAuth apperrors.Error = caterrors.ErrSecurityFailure.New("authentication failed")
)

// Request errors
var (
	ErrUnsupportedScheme apperrors.Error = ErrAuth.New("unsupported or malformed authorization header")
	ErrAuthDisabled      apperrors.Error = ErrAuth.New("authentication is not enabled on this server")
)

// Token errors
var (
	ErrInvalidToken apperrors.Error = ErrAuth.New("invalid token")
	ErrTokenExpired apperrors.Error = ErrInvalidToken.New("token expired")
	ErrTokenTooOld  apperrors.Error = ErrInvalidToken.New("token issued too far in the past")
)
