package storage

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	rds "LPChat/service/storage/redis"
)

// presence key: lp:presence:<user>
// Value: gateway node id; the TTL bounds the online validity period.
func presenceKey(user string) string { return "lp:presence:" + user }

// room member set: lp:room:<roomID>:members
func roomMembersKey(roomID string) string { return "lp:room:" + roomID + ":members" }

// PresenceOnline marks the user online on a node and renews the TTL.
func PresenceOnline(user, nodeID string, ttl time.Duration) error {
	rdb := rds.GetClient()
	if rdb == nil {
		return fmt.Errorf("redis not initialized")
	}
	return rdb.Set(rds.Ctx(), presenceKey(user), nodeID, ttl).Err()
}

// PresenceOffline actively sets the user offline (deletes the key).
func PresenceOffline(user string) error {
	rdb := rds.GetClient()
	if rdb == nil {
		return fmt.Errorf("redis not initialized")
	}
	return rdb.Del(rds.Ctx(), presenceKey(user)).Err()
}

// PresenceLookup checks whether the user is online and on which node.
func PresenceLookup(user string) (nodeID string, online bool, err error) {
	rdb := rds.GetClient()
	if rdb == nil {
		return "", false, fmt.Errorf("redis not initialized")
	}
	val, err := rdb.Get(rds.Ctx(), presenceKey(user)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// RoomMemberAdd records a live subscription of user to room.
func RoomMemberAdd(roomID, user string) error {
	rdb := rds.GetClient()
	if rdb == nil {
		return fmt.Errorf("redis not initialized")
	}
	return rdb.SAdd(rds.Ctx(), roomMembersKey(roomID), user).Err()
}

// RoomMemberRemove drops the live subscription.
func RoomMemberRemove(roomID, user string) error {
	rdb := rds.GetClient()
	if rdb == nil {
		return fmt.Errorf("redis not initialized")
	}
	return rdb.SRem(rds.Ctx(), roomMembersKey(roomID), user).Err()
}

// RoomMemberCount returns the live participant-count signal for a room.
func RoomMemberCount(roomID string) (int64, error) {
	rdb := rds.GetClient()
	if rdb == nil {
		return 0, fmt.Errorf("redis not initialized")
	}
	return rdb.SCard(rds.Ctx(), roomMembersKey(roomID)).Result()
}
