package model

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"LPChat/tools/errs"
)

// Participant is the (id, display name) pair needed to mint a direct
// room with its composite label.
type Participant struct {
	ID          string
	DisplayName string
}

// Store bundles the chat collections. The gateway owns one instance; the
// REST API and the websocket handlers both query through it.
type Store struct {
	RoomColl *mongo.Collection
	MsgColl  *mongo.Collection
}

func NewStore(db *mongo.Database) *Store {
	room := Room{}
	msg := Message{}
	return &Store{
		RoomColl: db.Collection(room.GetTableName()),
		MsgColl:  db.Collection(msg.GetTableName()),
	}
}

// ListPublicRooms returns every discoverable room, newest first.
func (s *Store) ListPublicRooms(ctx context.Context) ([]*Room, error) {
	filter := bson.M{"kind": RoomKindPublic}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.RoomColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, errs.WrapMsg(err, "list public rooms")
	}
	defer cur.Close(ctx)
	var rooms []*Room
	if err := cur.All(ctx, &rooms); err != nil {
		return nil, errs.WrapMsg(err, "decode public rooms")
	}
	return rooms, nil
}

// ListPrivateRoomsFor returns the direct rooms the user participates in.
func (s *Store) ListPrivateRoomsFor(ctx context.Context, userID string) ([]*Room, error) {
	filter := bson.M{"kind": RoomKindPrivate, "participants": userID}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.RoomColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, errs.WrapMsg(err, "list private rooms", "user", userID)
	}
	defer cur.Close(ctx)
	var rooms []*Room
	if err := cur.All(ctx, &rooms); err != nil {
		return nil, errs.WrapMsg(err, "decode private rooms")
	}
	return rooms, nil
}

// GetRoom looks a room up by id.
func (s *Store) GetRoom(ctx context.Context, roomID string) (*Room, error) {
	var room Room
	err := s.RoomColl.FindOne(ctx, bson.M{"room_id": roomID}).Decode(&room)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrRoomNotFound.WrapMsg("room", "id", roomID)
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "get room", "id", roomID)
	}
	return &room, nil
}

// CreateOrGetDirectRoom upserts the private room for an unordered user
// pair. The sorted pair key makes the operation idempotent: a second
// call for the same pair returns the existing room.
func (s *Store) CreateOrGetDirectRoom(ctx context.Context, a, b Participant) (*Room, error) {
	pair := []string{a.ID, b.ID}
	sort.Strings(pair)
	roomID := DirectRoomID(a.ID, b.ID)

	filter := bson.M{"room_id": roomID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"room_id":       roomID,
			"kind":          RoomKindPrivate,
			"name":          a.DisplayName + " & " + b.DisplayName,
			"participants":  pair,
			"member_count":  2,
			"message_count": 0,
			"created_at":    time.Now().UnixMilli(),
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var room Room
	if err := s.RoomColl.FindOneAndUpdate(ctx, filter, update, opts).Decode(&room); err != nil {
		return nil, errs.WrapMsg(err, "create or get direct room", "id", roomID)
	}
	return &room, nil
}

// CreatePublicRoom registers a discoverable topic room.
func (s *Store) CreatePublicRoom(ctx context.Context, roomID, name string) (*Room, error) {
	room := &Room{
		RoomID:    roomID,
		Kind:      RoomKindPublic,
		Name:      name,
		CreatedAt: time.Now().UnixMilli(),
	}
	if _, err := s.RoomColl.InsertOne(ctx, room); err != nil {
		return nil, errs.WrapMsg(err, "create public room", "id", roomID)
	}
	return room, nil
}

// InsertMessage persists one message and bumps the room's approximate
// message counter.
func (s *Store) InsertMessage(ctx context.Context, m *Message) error {
	if _, err := s.MsgColl.InsertOne(ctx, m); err != nil {
		return errs.WrapMsg(err, "insert message", "room", m.RoomID)
	}
	_, err := s.RoomColl.UpdateOne(ctx,
		bson.M{"room_id": m.RoomID},
		bson.M{"$inc": bson.M{"message_count": 1}})
	if err != nil {
		return errs.WrapMsg(err, "bump message count", "room", m.RoomID)
	}
	return nil
}

// FetchMessages returns a bounded chronological page for a room. The
// query runs newest-first so `before` pages backwards; the result is
// flipped to ascending (created_at, msg_id) before returning.
func (s *Store) FetchMessages(ctx context.Context, roomID string, limit int64, before int64) ([]*Message, error) {
	filter := bson.M{"room_id": roomID}
	if before > 0 {
		filter["created_at"] = bson.M{"$lt": before}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "msg_id", Value: -1}}).
		SetLimit(limit)
	cur, err := s.MsgColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, errs.WrapMsg(err, "fetch messages", "room", roomID)
	}
	defer cur.Close(ctx)
	var page []*Message
	if err := cur.All(ctx, &page); err != nil {
		return nil, errs.WrapMsg(err, "decode messages", "room", roomID)
	}
	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}
	return page, nil
}
