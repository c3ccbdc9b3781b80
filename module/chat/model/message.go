package model

import (
	"encoding/json"
)

// Sender identifies the author of a message. On the wire it may arrive
// either as a bare user-id string or as a fully materialized record;
// UnmarshalJSON accepts both so callers never branch on shape.
type Sender struct {
	ID          string `bson:"id" json:"id"`
	DisplayName string `bson:"display_name" json:"display_name,omitempty"`
}

func (s *Sender) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var id string
		if err := json.Unmarshal(b, &id); err != nil {
			return err
		}
		s.ID = id
		s.DisplayName = ""
		return nil
	}
	type alias Sender
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*s = Sender(a)
	return nil
}

// Message is one immutable chat message. Ordering within a room is
// (CreatedAt, MsgID); CreatedAt is Unix milliseconds assigned by the
// gateway on persist.
type Message struct {
	MsgID     string `bson:"msg_id" json:"msg_id"`
	RoomID    string `bson:"room_id" json:"room_id"`
	Sender    Sender `bson:"sender" json:"sender"`
	Body      string `bson:"body" json:"body"`
	CreatedAt int64  `bson:"created_at" json:"created_at"`
}

func (m *Message) GetTableName() string {
	return "message"
}

// OrderBefore reports the room-timeline ordering: creation timestamp
// first, message id as tiebreak for simultaneous timestamps.
func OrderBefore(a, b *Message) bool {
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt < b.CreatedAt
	}
	return a.MsgID < b.MsgID
}
