// Package catcommon provides context management utilities for the catalog service.
// It carries the caller identity and request scoped values through context.Context.
package catcommon

import (
	"context"
)

// ctxKeyType represents the type for all context keys
type ctxKeyType string

// Context keys for different types of data
const (
	ctxUserContextKey ctxKeyType = "CatalogUserContext"
	ctxRequestIdKey   ctxKeyType = "CatalogRequestId"
)

// AnonymousUser is the caller name used when a request carries no identity.
const AnonymousUser = "anonymous"

// UserContext represents the context of an authenticated user in the system.
type UserContext struct {
	// UserID is the name the caller authenticated as
	UserID string
}

// SetUserContext sets the user context in the provided context.
func SetUserContext(ctx context.Context, userContext *UserContext) context.Context {
	return context.WithValue(ctx, ctxUserContextKey, userContext)
}

// UserContextFromContext retrieves the user context from the provided context.
func UserContextFromContext(ctx context.Context) *UserContext {
	if userContext, ok := ctx.Value(ctxUserContextKey).(*UserContext); ok {
		return userContext
	}
	return nil
}

// SetCallerInContext records the calling user name.
func SetCallerInContext(ctx context.Context, user string) context.Context {
	return SetUserContext(ctx, &UserContext{UserID: user})
}

// CallerFromContext returns the calling user name, or an empty string.
func CallerFromContext(ctx context.Context) string {
	if u := UserContextFromContext(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// SetRequestIdInContext sets the request id in the provided context.
func SetRequestIdInContext(ctx context.Context, requestId string) context.Context {
	return context.WithValue(ctx, ctxRequestIdKey, requestId)
}

// RequestIdFromContext retrieves the request id from the provided context.
func RequestIdFromContext(ctx context.Context) string {
	if r, ok := ctx.Value(ctxRequestIdKey).(string); ok {
		return r
	}
	return ""
}
