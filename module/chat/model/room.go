package model

import (
	"strings"
)

// Room kinds. A public room is a discoverable multi-participant topic
// room (e.g. a bar-association room); a private room is a two-person
// direct-message pairing.
const (
	RoomKindPublic  = "public"
	RoomKindPrivate = "private"
)

const directRoomPrefix = "dm:"

// Room is the catalog entry for a chat room. For private rooms the
// participant pair is the authoritative identity; the composite Name
// ("Alice & Bob") is only a display artifact.
type Room struct {
	RoomID       string   `bson:"room_id" json:"room_id"`
	Kind         string   `bson:"kind" json:"kind"`
	Name         string   `bson:"name" json:"name"`
	Participants []string `bson:"participants,omitempty" json:"participants,omitempty"`
	MemberCount  int64    `bson:"member_count" json:"member_count"`
	MessageCount int64    `bson:"message_count" json:"message_count"`
	CreatedAt    int64    `bson:"created_at" json:"created_at"`
}

func (r *Room) GetTableName() string {
	return "room"
}

func (r *Room) IsPrivate() bool {
	return r.Kind == RoomKindPrivate
}

// HasParticipant reports pair membership; public rooms admit everyone.
func (r *Room) HasParticipant(userID string) bool {
	if !r.IsPrivate() {
		return true
	}
	for _, p := range r.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// DirectRoomID derives the deterministic id for the private room of an
// unordered user pair. No two private rooms may exist for the same pair,
// and the sorted key is what enforces that on upsert.
func DirectRoomID(a, b string) string {
	lo, hi := a, b
	if strings.Compare(lo, hi) > 0 {
		lo, hi = hi, lo
	}
	return directRoomPrefix + lo + ":" + hi
}
