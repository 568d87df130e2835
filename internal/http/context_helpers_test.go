package httpx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionFromContext(t *testing.T) {
	s, ok := SessionFromContext(context.Background())
	assert.False(t, ok)
	assert.Nil(t, s)

	ctx := SetSessionInContext(context.Background(), nil)
	_, ok = SessionFromContext(ctx)
	assert.False(t, ok, "a nil session is never stored")

	h := newHarness(t, harnessOptions{})
	sess := h.sessions.Create()
	got, ok := SessionFromContext(SetSessionInContext(context.Background(), sess))
	assert.True(t, ok)
	assert.Same(t, sess, got)
}
