package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LPChat/module/chat/model"
)

func TestParseJSONRejectsGarbage(t *testing.T) {
	_, err := ParseJSON([]byte("not json"))
	assert.Error(t, err)

	_, err = ParseJSON([]byte(`{"ts":1}`))
	assert.Error(t, err, "frame without a type must not parse")
}

func TestEncodeParseRoundTrip(t *testing.T) {
	in := BuildJoin("r1")
	data, err := in.Encode()
	require.NoError(t, err)

	out, err := ParseJSON(data)
	require.NoError(t, err)
	assert.Equal(t, TypeJoin, out.Type)
	assert.Equal(t, "r1", out.RoomID)
}

func TestAuthFrameCarriesTokenInPayload(t *testing.T) {
	f := BuildAuth("tok-123")
	data, err := f.Encode()
	require.NoError(t, err)

	out, err := ParseJSON(data)
	require.NoError(t, err)
	assert.Equal(t, TypeAuth, out.Type)
	assert.Equal(t, "tok-123", out.Payload["token"])
}

func TestMessagePayloadWithFullSender(t *testing.T) {
	m := &model.Message{
		MsgID:     "m1",
		RoomID:    "r1",
		Sender:    model.Sender{ID: "u1", DisplayName: "Alice"},
		Body:      "hi",
		CreatedAt: 100,
	}
	data, err := BuildMessage(m).Encode()
	require.NoError(t, err)

	f, err := ParseJSON(data)
	require.NoError(t, err)
	got, err := f.MessagePayload()
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestMessagePayloadWithBareSender(t *testing.T) {
	raw := []byte(`{"type":"message","room_id":"r1","payload":{"msg_id":"m1","room_id":"r1","sender":"u1","body":"hi","created_at":100}}`)
	f, err := ParseJSON(raw)
	require.NoError(t, err)

	got, err := f.MessagePayload()
	require.NoError(t, err)
	assert.Equal(t, "u1", got.Sender.ID)
	assert.Empty(t, got.Sender.DisplayName)
}

func TestMessagePayloadRequiresPayload(t *testing.T) {
	f := &Frame{Type: TypeMessage, RoomID: "r1"}
	_, err := f.MessagePayload()
	assert.Error(t, err)
}
