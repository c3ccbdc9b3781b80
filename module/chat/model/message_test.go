package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSenderUnmarshalBareReference(t *testing.T) {
	var s Sender
	require.NoError(t, json.Unmarshal([]byte(`"u1"`), &s))
	assert.Equal(t, "u1", s.ID)
	assert.Empty(t, s.DisplayName)
}

func TestSenderUnmarshalFullRecord(t *testing.T) {
	var s Sender
	require.NoError(t, json.Unmarshal([]byte(`{"id":"u1","display_name":"Alice"}`), &s))
	assert.Equal(t, "u1", s.ID)
	assert.Equal(t, "Alice", s.DisplayName)
}

func TestSenderUnmarshalInsideMessage(t *testing.T) {
	raw := `{"msg_id":"m1","room_id":"r1","sender":"u1","body":"hi","created_at":100}`
	var m Message
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	assert.Equal(t, "u1", m.Sender.ID)
	assert.Equal(t, int64(100), m.CreatedAt)
}

func TestOrderBefore(t *testing.T) {
	a := &Message{MsgID: "m1", CreatedAt: 100}
	b := &Message{MsgID: "m2", CreatedAt: 200}
	assert.True(t, OrderBefore(a, b))
	assert.False(t, OrderBefore(b, a))

	// same timestamp falls back to the id
	c := &Message{MsgID: "m3", CreatedAt: 100}
	assert.True(t, OrderBefore(a, c))
	assert.False(t, OrderBefore(c, a))
	assert.False(t, OrderBefore(a, a))
}
