package storage

import (
	"time"
)

// OnlineManager is the redis-backed presence used by the gateway. It
// satisfies the gateway's Presence contract.
type OnlineManager struct {
	NodeID string
	TTL    time.Duration
}

func NewOnlineManager(nodeID string, ttl time.Duration) *OnlineManager {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &OnlineManager{NodeID: nodeID, TTL: ttl}
}

func (m *OnlineManager) Online(userID string) error {
	return PresenceOnline(userID, m.NodeID, m.TTL)
}

func (m *OnlineManager) Offline(userID string) error {
	return PresenceOffline(userID)
}

func (m *OnlineManager) MemberAdd(roomID, userID string) error {
	return RoomMemberAdd(roomID, userID)
}

func (m *OnlineManager) MemberRemove(roomID, userID string) error {
	return RoomMemberRemove(roomID, userID)
}
