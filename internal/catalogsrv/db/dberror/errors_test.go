package dberror

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/jcmturner/gokrb5/v8/iana/errorcode"
	"github.com/jcmturner/gokrb5/v8/messages"
	"github.com/stretchr/testify/assert"
	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/common/apperrors"
)

var errDuplicate = errors.New("duplicate schema")

func testTranslator(err error) apperrors.Error {
	if errors.Is(err, errDuplicate) {
		return caterrors.ErrSchemaAlreadyExists
	}
	return nil
}

func TestTranslate(t *testing.T) {
	tr := TranslatorFunc(testTranslator)

	tests := []struct {
		name string
		err  error
		want apperrors.Error
		kind string
	}{
		{"recognised", fmt.Errorf("exec: %w", errDuplicate), caterrors.ErrSchemaAlreadyExists, caterrors.KindAlreadyExists},
		{"bad connection", driver.ErrBadConn, caterrors.ErrBackendUnavailable, caterrors.KindBackendFailure},
		{"deadline", context.DeadlineExceeded, caterrors.ErrBackendUnavailable, caterrors.KindBackendFailure},
		{"unknown", errors.New("boom"), caterrors.ErrBackendFailure, caterrors.KindBackendFailure},
		{"already translated", caterrors.ErrNoSuchTable.Msg("t1"), caterrors.ErrNoSuchTable, caterrors.KindNotFound},
		{"ticket expired", fmt.Errorf("gss: %w", messages.KRBError{ErrorCode: errorcode.KRB_AP_ERR_TKT_EXPIRED}), caterrors.ErrCredentialsExpired, caterrors.KindSecurityFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Translate(tr, tt.err, "create schema")
			assert.ErrorIs(t, got, tt.want)
			assert.Equal(t, tt.kind, got.Kind())
		})
	}

	assert.Nil(t, Translate(tr, nil, "noop"))

	got := Translate(nil, errDuplicate, "create schema")
	assert.ErrorIs(t, got, caterrors.ErrBackendFailure)
	assert.ErrorIs(t, got, errDuplicate)
}
