package errs

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMatchesByCode(t *testing.T) {
	err := ErrRoomNotFound.WrapMsg("lookup", "room", "r1")
	assert.True(t, ErrRoomNotFound.Is(err))
	assert.False(t, ErrJoinDenied.Is(err))
	assert.False(t, ErrRoomNotFound.Is(nil))
}

func TestIsSeesThroughWrapping(t *testing.T) {
	inner := ErrTransportDrop.Wrap()
	outer := errors.WithMessage(inner, "while reading")
	assert.True(t, ErrTransportDrop.Is(outer))
}

func TestWrapMsgFormatsDetail(t *testing.T) {
	err := ErrNotConnected.WrapMsg("send", "room", "r1", "attempt", 2)
	assert.Contains(t, err.Error(), "send")
	assert.Contains(t, err.Error(), "room=r1")
	assert.Contains(t, err.Error(), "attempt=2")
}

func TestWrapMsgDoesNotMutateTheSentinel(t *testing.T) {
	_ = ErrAuthFailure.WrapMsg("first", "k", "v")
	assert.Empty(t, ErrAuthFailure.Detail)
}

func TestWithDetailAccumulates(t *testing.T) {
	e := ErrServerInternal.WithDetail("a").WithDetail("b")
	assert.Equal(t, "a, b", e.Detail)
	assert.Empty(t, ErrServerInternal.Detail)
}

func TestUnwrapWalksToTheRoot(t *testing.T) {
	root := New("root cause")
	wrapped := WrapMsg(root, "level one", "k", "v")
	require.Error(t, wrapped)
	assert.Equal(t, "root cause", Unwrap(wrapped).Error())
}

func TestWrapMsgNilPassthrough(t *testing.T) {
	assert.NoError(t, WrapMsg(nil, "ignored"))
}
