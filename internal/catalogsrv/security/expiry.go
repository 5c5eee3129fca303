package security

import (
	"errors"
	"strings"

	"github.com/jcmturner/gokrb5/v8/iana/errorcode"
	"github.com/jcmturner/gokrb5/v8/messages"

	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
)

var expiredCodes = map[int32]string{
	errorcode.KRB_AP_ERR_TKT_EXPIRED: "KRB_AP_ERR_TKT_EXPIRED",
	errorcode.KDC_ERR_TGT_REVOKED:    "KDC_ERR_TGT_REVOKED",
}

// IsCredentialExpiry reports whether err means the service ticket is no
// longer valid and a fresh login may succeed. gokrb5 flattens nested errors
// into text, so the error code names are matched as well.
func IsCredentialExpiry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, caterrors.ErrCredentialsExpired) {
		return true
	}
	var krbErr messages.KRBError
	if errors.As(err, &krbErr) {
		if _, ok := expiredCodes[krbErr.ErrorCode]; ok {
			return true
		}
	}
	msg := err.Error()
	for _, name := range expiredCodes {
		if strings.Contains(msg, name) {
			return true
		}
	}
	return false
}
