package catcommon

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCallerInContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", CallerFromContext(ctx))
	assert.Nil(t, UserContextFromContext(ctx))

	alice := SetCallerInContext(ctx, "alice")
	bob := SetCallerInContext(alice, "bob")
	assert.Equal(t, "alice", CallerFromContext(alice))
	assert.Equal(t, "bob", CallerFromContext(bob))

	ctx = SetRequestIdInContext(ctx, "req-1")
	assert.Equal(t, "req-1", RequestIdFromContext(ctx))
}
