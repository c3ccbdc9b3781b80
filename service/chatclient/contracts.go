package chatclient

import (
	"context"

	"LPChat/module/chat/model"
)

// CredentialProvider supplies the bearer token for the current session.
// The core never mints or refreshes tokens itself: it reads the current
// one at connection time and treats "absent" as "do not connect".
type CredentialProvider interface {
	CurrentToken() (string, bool)
}

// RoomCatalog is the room directory collaborator: two logically separate
// snapshot queries plus the direct-room bootstrap used when a chat is
// initiated from elsewhere in the application ("contact this lawyer").
type RoomCatalog interface {
	ListPublicRooms(ctx context.Context) ([]*model.Room, error)
	ListPrivateRoomsFor(ctx context.Context, userID string) ([]*model.Room, error)
	CreateOrGetDirectRoom(ctx context.Context, target model.Participant) (*model.Room, error)
}

// PageParams bounds a history fetch.
type PageParams struct {
	Limit  int64
	Before int64 // Unix ms exclusive upper bound; 0 means newest page
}

// MessageHistory serves the history snapshot loaded when a room becomes
// active. Pages come back in chronological ascending order.
type MessageHistory interface {
	FetchMessages(ctx context.Context, roomID string, page PageParams) ([]*model.Message, error)
}

// TokenFunc adapts a plain closure to CredentialProvider.
type TokenFunc func() (string, bool)

func (f TokenFunc) CurrentToken() (string, bool) { return f() }
