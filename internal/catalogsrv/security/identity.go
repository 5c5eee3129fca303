package security

import (
	"context"

	krbclient "github.com/jcmturner/gokrb5/v8/client"
	"github.com/tansive/metacatalog/internal/catalogsrv/catcommon"
)

// Identity is the effective identity of one backend call. It is passed by
// value to the operation and never stored in shared state.
type Identity struct {
	// User is the name the backend attributes the operation to. Empty means the
	// backend default for the service process.
	User string
	// RealUser is the authenticated service principal when User is impersonated.
	RealUser string
	// Kerberos is the logged in service client, nil when authentication is off.
	Kerberos *krbclient.Client
}

func (id Identity) Impersonated() bool {
	return id.RealUser != ""
}

type ctxKeyType string

const ctxIdentityKey ctxKeyType = "SecurityIdentity"

// WithIdentity returns a derived context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxIdentityKey, id)
}

// IdentityFromContext returns the identity set by WithIdentity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxIdentityKey).(Identity)
	return id, ok
}

// EffectiveUser is the user a backend call ran as, for audit records. It
// falls back to the caller and then to the anonymous user.
func EffectiveUser(ctx context.Context) string {
	if id, ok := IdentityFromContext(ctx); ok && id.User != "" {
		return id.User
	}
	if caller := catcommon.CallerFromContext(ctx); caller != "" {
		return caller
	}
	return catcommon.AnonymousUser
}
