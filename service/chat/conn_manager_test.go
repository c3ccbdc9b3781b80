package chat

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wsPair spins a throwaway upgrade endpoint and returns both ends of one
// websocket connection.
func wsPair(t *testing.T) (server, client *websocket.Conn) {
	t.Helper()
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	ch := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ch <- ws
	}))
	t.Cleanup(srv.Close)

	cli, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cli.Close() })
	return <-ch, cli
}

func newTestManager(t *testing.T) *ConnManager {
	t.Helper()
	m := NewConnManager("node_test")
	t.Cleanup(m.Stop)
	return m
}

func TestAddAndBindUser(t *testing.T) {
	m := newTestManager(t)
	server, _ := wsPair(t)

	c := m.Add(server)
	assert.False(t, c.Authorized)
	require.NotNil(t, m.Get(c.ConnID))

	require.NoError(t, m.BindUser(c.ConnID, "u1", "Alice"))
	got := m.Get(c.ConnID)
	assert.True(t, got.Authorized)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "Alice", got.DisplayName)

	assert.Error(t, m.BindUser("no-such-conn", "u1", "Alice"))
}

func TestJoinRoomImplicitlyLeavesPrevious(t *testing.T) {
	m := newTestManager(t)
	server, _ := wsPair(t)
	c := m.Add(server)

	left, err := m.JoinRoom(c.ConnID, "r1")
	require.NoError(t, err)
	assert.Empty(t, left)
	assert.Len(t, m.RoomConns("r1"), 1)

	// one active room per connection
	left, err = m.JoinRoom(c.ConnID, "r2")
	require.NoError(t, err)
	assert.Equal(t, "r1", left)
	assert.Empty(t, m.RoomConns("r1"))
	assert.Len(t, m.RoomConns("r2"), 1)
	assert.Equal(t, "r2", c.ActiveRoom)

	// re-joining the active room is a no-op
	left, err = m.JoinRoom(c.ConnID, "r2")
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestLeaveRoom(t *testing.T) {
	m := newTestManager(t)
	server, _ := wsPair(t)
	c := m.Add(server)

	_, err := m.JoinRoom(c.ConnID, "r1")
	require.NoError(t, err)

	assert.Equal(t, "r1", m.LeaveRoom(c.ConnID))
	assert.Empty(t, c.ActiveRoom)
	assert.Empty(t, m.RoomConns("r1"))

	assert.Empty(t, m.LeaveRoom(c.ConnID))
}

func TestRemoveTearsDownEverything(t *testing.T) {
	m := newTestManager(t)
	server, _ := wsPair(t)
	c := m.Add(server)
	require.NoError(t, m.BindUser(c.ConnID, "u1", "Alice"))
	_, err := m.JoinRoom(c.ConnID, "r1")
	require.NoError(t, err)

	m.Remove(c.ConnID)
	assert.Nil(t, m.Get(c.ConnID))
	assert.Empty(t, m.RoomConns("r1"))

	// second Remove and a Push after teardown must both be harmless
	m.Remove(c.ConnID)
	m.Push(c, []byte("late"))
}

func TestPushDeliversToPeer(t *testing.T) {
	m := newTestManager(t)
	server, client := wsPair(t)
	c := m.Add(server)

	m.Push(c, []byte(`{"type":"pong"}`))

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := client.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"pong"}`, string(data))
}

func TestSweepRemovesStaleUnauthConns(t *testing.T) {
	now := time.Now()
	m := NewConnManagerWithConf(ManagerConf{
		UnauthTTL:  30 * time.Second,
		SweepEvery: time.Hour, // sweep is driven manually below
		Clock:      func() time.Time { return now },
	}, "node_test")
	t.Cleanup(m.Stop)

	sA, _ := wsPair(t)
	sB, _ := wsPair(t)
	stale := m.Add(sA)
	authed := m.Add(sB)
	require.NoError(t, m.BindUser(authed.ConnID, "u1", "Alice"))

	now = now.Add(31 * time.Second)
	m.sweep()

	assert.Nil(t, m.Get(stale.ConnID))
	assert.NotNil(t, m.Get(authed.ConnID))
}

func TestSweepRemovesIdleAuthorizedConns(t *testing.T) {
	now := time.Now()
	m := NewConnManagerWithConf(ManagerConf{
		UnauthTTL:  time.Hour,
		IdleTTL:    time.Minute,
		SweepEvery: time.Hour,
		Clock:      func() time.Time { return now },
	}, "node_test")
	t.Cleanup(m.Stop)

	sA, _ := wsPair(t)
	sB, _ := wsPair(t)
	idle := m.Add(sA)
	pinging := m.Add(sB)
	require.NoError(t, m.BindUser(idle.ConnID, "u1", "Alice"))
	require.NoError(t, m.BindUser(pinging.ConnID, "u2", "Bob"))

	// a ping refreshes the heartbeat and keeps the conn alive
	now = now.Add(61 * time.Second)
	m.Touch(pinging.ConnID)
	m.sweep()

	assert.Nil(t, m.Get(idle.ConnID))
	assert.NotNil(t, m.Get(pinging.ConnID))
}
