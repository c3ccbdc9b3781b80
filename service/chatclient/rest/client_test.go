package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LPChat/module/chat/model"
	"LPChat/service/chatclient"
	"LPChat/tools/errs"
)

func staticToken(token string) chatclient.CredentialProvider {
	return chatclient.TokenFunc(func() (string, bool) { return token, token != "" })
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, staticToken("tok-123"), srv.Client())
}

func TestListPublicRoomsSendsBearer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/rooms/public", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"rooms": []*model.Room{{RoomID: "r1", Kind: model.RoomKindPublic, Name: "Contract Law"}},
		})
	})

	rooms, err := c.ListPublicRooms(context.Background())
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "r1", rooms[0].RoomID)
}

func TestCreateOrGetDirectRoom(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/rooms/direct", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "u2", body["target_user_id"])

		_ = json.NewEncoder(w).Encode(&model.Room{
			RoomID:       "dm:u1:u2",
			Kind:         model.RoomKindPrivate,
			Name:         "Alice & Bob",
			Participants: []string{"u1", "u2"},
		})
	})

	room, err := c.CreateOrGetDirectRoom(context.Background(), model.Participant{ID: "u2", DisplayName: "Bob"})
	require.NoError(t, err)
	assert.Equal(t, "dm:u1:u2", room.RoomID)
}

func TestFetchMessagesQueryParams(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/rooms/r1/messages", r.URL.Path)
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		assert.Equal(t, "1000", r.URL.Query().Get("before"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"messages": []*model.Message{{MsgID: "m1", RoomID: "r1", Body: "a", CreatedAt: 100}},
		})
	})

	msgs, err := c.FetchMessages(context.Background(), "r1", chatclient.PageParams{Limit: 25, Before: 1000})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "m1", msgs[0].MsgID)
}

func TestStatusCodesMapToCodedErrors(t *testing.T) {
	for _, tc := range []struct {
		status int
		want   *errs.CodeError
	}{
		{http.StatusUnauthorized, errs.ErrAuthFailure},
		{http.StatusNotFound, errs.ErrRoomNotFound},
		{http.StatusForbidden, errs.ErrJoinDenied},
	} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		})
		_, err := c.ListPublicRooms(context.Background())
		assert.True(t, tc.want.Is(err), "status %d", tc.status)
	}
}

func TestMissingCredentialFailsBeforeTheWire(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, staticToken(""), srv.Client())
	_, err := c.ListPublicRooms(context.Background())
	assert.True(t, errs.ErrAuthFailure.Is(err))
	assert.False(t, called)
}
