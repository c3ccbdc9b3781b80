package chatclient

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"

	"LPChat/tools/errs"
)

// silentGateway upgrades the socket and then never speaks, so the auth
// handshake can only resolve by timing out.
func silentGateway(t *testing.T) string {
	t.Helper()
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

type connHarness struct {
	loop chan func()
	quit chan struct{}
	conn *Conn
}

func newConnHarness(t *testing.T, opts ConnOptions) *connHarness {
	t.Helper()
	h := &connHarness{
		loop: make(chan func(), 64),
		quit: make(chan struct{}),
	}
	post := func(f func()) {
		select {
		case h.loop <- f:
		case <-h.quit:
		}
	}
	h.conn = newConn(opts, func() (string, bool) { return "tok", true }, post)
	go func() {
		for {
			select {
			case f := <-h.loop:
				f()
			case <-h.quit:
				return
			}
		}
	}()
	t.Cleanup(func() { close(h.quit) })
	return h
}

func (h *connHarness) do(f func()) {
	done := make(chan struct{})
	h.loop <- func() { f(); close(done) }
	<-done
}

func TestStopDuringHandshakeLeavesConnDisconnected(t *testing.T) {
	h := newConnHarness(t, ConnOptions{
		URL:              silentGateway(t),
		HandshakeTimeout: 200 * time.Millisecond,
	})

	started := make(chan error, 1)
	go func() { started <- h.conn.Start() }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		var st ConnState
		h.do(func() { st = h.conn.State() })
		if st == StateConnecting {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("handshake never entered connecting")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// stop lands while the handshake goroutine is still in flight
	h.conn.stopped.Store(true)

	err := <-started
	assert.True(t, errs.ErrNotConnected.Is(err), "got %v", err)
	var st ConnState
	h.do(func() { st = h.conn.State() })
	assert.Equal(t, StateDisconnected, st)
}
