package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirectRoomIDIsOrderIndependent(t *testing.T) {
	assert.Equal(t, DirectRoomID("u1", "u2"), DirectRoomID("u2", "u1"))
	assert.Equal(t, "dm:u1:u2", DirectRoomID("u2", "u1"))
}

func TestDirectRoomIDSortsLexicographically(t *testing.T) {
	// numeric-looking ids still sort as strings
	assert.Equal(t, "dm:10:9", DirectRoomID("9", "10"))
}

func TestHasParticipant(t *testing.T) {
	public := &Room{RoomID: "r1", Kind: RoomKindPublic}
	assert.True(t, public.HasParticipant("anyone"))

	private := &Room{
		RoomID:       "dm:u1:u2",
		Kind:         RoomKindPrivate,
		Participants: []string{"u1", "u2"},
	}
	assert.True(t, private.HasParticipant("u1"))
	assert.True(t, private.HasParticipant("u2"))
	assert.False(t, private.HasParticipant("u3"))
}
