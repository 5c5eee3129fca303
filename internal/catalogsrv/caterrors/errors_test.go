package caterrors

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKinds(t *testing.T) {
	tests := []struct {
		err    error
		kind   string
		status int
	}{
		{ErrNoSuchSchema.Msg("schema s1 does not exist"), KindNotFound, http.StatusNotFound},
		{ErrFilesetAlreadyExists, KindAlreadyExists, http.StatusConflict},
		{ErrNonEmptySchema, KindInvalidArgument, http.StatusConflict},
		{ErrUnsupportedType.Msg("x"), KindInvalidArgument, http.StatusBadRequest},
		{ErrUnsupportedCapability, KindUnsupportedOperation, http.StatusNotImplemented},
		{ErrBackendUnavailable, KindBackendFailure, http.StatusServiceUnavailable},
		{ErrCredentialsExpired, KindSecurityFailure, http.StatusUnauthorized},
		{ErrPermissionDenied, KindSecurityFailure, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.kind, Kind(tt.err))
			appErr, ok := tt.err.(interface{ StatusCode() int })
			if assert.True(t, ok) {
				assert.Equal(t, tt.status, appErr.StatusCode())
			}
		})
	}
	assert.Equal(t, "", Kind(errors.New("native")))
}

func TestBackend(t *testing.T) {
	assert.Nil(t, Backend(nil, "x"))

	native := errors.New("connection reset")
	err := Backend(native, "list schemas")
	assert.ErrorIs(t, err, ErrBackendFailure)
	assert.ErrorIs(t, err, native)
	assert.False(t, IsTransient(err))

	err = Backend(context.DeadlineExceeded, "acquire connection")
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.True(t, IsTransient(err))

	already := ErrNoSuchTable.Msg("t1")
	assert.Equal(t, already, Backend(already, "load table"))
}
