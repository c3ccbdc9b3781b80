package frame

import (
	"encoding/json"
	"fmt"
	"time"

	"LPChat/module/chat/model"
)

// Frame types carried over the websocket, both directions.
type Type string

const (
	TypeAuth    Type = "auth"     // client -> gateway, first frame, carries the bearer token
	TypeAuthAck Type = "auth_ack" // gateway -> client, handshake success
	TypeJoin    Type = "join"     // client -> gateway, subscribe to a room
	TypeJoinAck Type = "join_ack" // gateway -> client, join confirmed
	TypeLeave   Type = "leave"    // client -> gateway, unsubscribe
	TypeSend    Type = "send"     // client -> gateway, outbound message body
	TypeMessage Type = "message"  // gateway -> client, live delivery
	TypeError   Type = "error"    // gateway -> client, coded failure
	TypePing    Type = "ping"
	TypePong    Type = "pong"
)

// Frame is the wire envelope. Payload stays generic here; typed payloads
// are decoded per frame type via tools/decode.
type Frame struct {
	Type    Type           `json:"type"`
	TS      int64          `json:"ts"`
	ConnID  string         `json:"conn_id,omitempty"`
	RoomID  string         `json:"room_id,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

type AuthPayload struct {
	Token string `json:"token"`
}

type AuthAckPayload struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	ConnID      string `json:"conn_id"`
	ExpireAt    int64  `json:"expire_at"`
}

type SendPayload struct {
	RoomID string `json:"room_id"`
	Body   string `json:"body"`
}

type ErrorPayload struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// ParseJSON decodes a raw websocket text frame.
func ParseJSON(raw []byte) (*Frame, error) {
	f := &Frame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, fmt.Errorf("unmarshal frame failed: %w", err)
	}
	if f.Type == "" {
		return nil, fmt.Errorf("frame missing type")
	}
	return f, nil
}

// MarshalJSON-side counterpart of ParseJSON.
func (f *Frame) Encode() ([]byte, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshal frame: %w", err)
	}
	return b, nil
}

// MessagePayload extracts the delivered message from a TypeMessage
// frame. The payload goes through a JSON round trip so the Sender field
// accepts both the bare-reference and full-record shapes.
func (f *Frame) MessagePayload() (*model.Message, error) {
	if f.Payload == nil {
		return nil, fmt.Errorf("message frame without payload")
	}
	b, err := json.Marshal(f.Payload)
	if err != nil {
		return nil, fmt.Errorf("remarshal message payload: %w", err)
	}
	var m model.Message
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode message payload: %w", err)
	}
	return &m, nil
}

func now() int64 { return time.Now().UnixMilli() }

// ---- frame builders ----

func BuildAuth(token string) *Frame {
	return &Frame{
		Type:    TypeAuth,
		TS:      now(),
		Payload: map[string]any{"token": token},
	}
}

func BuildAuthAck(userID, displayName, connID string, expireAt int64) *Frame {
	return &Frame{
		Type:   TypeAuthAck,
		TS:     now(),
		ConnID: connID,
		Payload: map[string]any{
			"user_id":      userID,
			"display_name": displayName,
			"conn_id":      connID,
			"expire_at":    expireAt,
		},
	}
}

func BuildJoin(roomID string) *Frame {
	return &Frame{Type: TypeJoin, TS: now(), RoomID: roomID}
}

func BuildJoinAck(roomID string) *Frame {
	return &Frame{Type: TypeJoinAck, TS: now(), RoomID: roomID}
}

func BuildLeave(roomID string) *Frame {
	return &Frame{Type: TypeLeave, TS: now(), RoomID: roomID}
}

func BuildSend(roomID, body string) *Frame {
	return &Frame{
		Type:    TypeSend,
		TS:      now(),
		RoomID:  roomID,
		Payload: map[string]any{"room_id": roomID, "body": body},
	}
}

func BuildMessage(m *model.Message) *Frame {
	return &Frame{
		Type:   TypeMessage,
		TS:     now(),
		RoomID: m.RoomID,
		Payload: map[string]any{
			"msg_id":  m.MsgID,
			"room_id": m.RoomID,
			"sender": map[string]any{
				"id":           m.Sender.ID,
				"display_name": m.Sender.DisplayName,
			},
			"body":       m.Body,
			"created_at": m.CreatedAt,
		},
	}
}

func BuildError(roomID string, code int, msg string) *Frame {
	return &Frame{
		Type:    TypeError,
		TS:      now(),
		RoomID:  roomID,
		Payload: map[string]any{"code": code, "msg": msg},
	}
}

func BuildPing() *Frame { return &Frame{Type: TypePing, TS: now()} }
func BuildPong() *Frame { return &Frame{Type: TypePong, TS: now()} }
