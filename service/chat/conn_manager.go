package chat

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"LPChat/logger"
	"LPChat/tools/errs"
	"LPChat/tools/ids"
)

const (
	writeWait     = 10 * time.Second
	sendQueueSize = 256
)

// ===== configuration =====

type ManagerConf struct {
	UnauthTTL  time.Duration    // grace for connections that never authenticate
	IdleTTL    time.Duration    // heartbeat staleness after which an authorized conn is kicked
	SweepEvery time.Duration    // sweeper period
	Clock      func() time.Time // injectable clock for tests; nil => time.Now
}

func (c *ManagerConf) norm() {
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.SweepEvery <= 0 {
		c.SweepEvery = 10 * time.Second
	}
	if c.UnauthTTL <= 0 {
		c.UnauthTTL = 30 * time.Second
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = 5 * time.Minute
	}
}

// ===== data structures =====

// WsConn is one physical websocket bound to at most one user and at most
// one active room. ActiveRoom is only mutated through JoinRoom/LeaveRoom
// so the one-room-per-connection rule has a single owner.
type WsConn struct {
	ConnID      string
	UserID      string
	DisplayName string
	Authorized  bool
	ActiveRoom  string

	Conn     *websocket.Conn
	SendChan chan []byte

	CreatedAt time.Time
	Heartbeat time.Time

	closeOnce sync.Once
}

// CloseSend shuts the outbound queue exactly once.
func (w *WsConn) CloseSend() {
	w.closeOnce.Do(func() { close(w.SendChan) })
}

type ConnManager struct {
	mu     sync.RWMutex
	byConn map[string]*WsConn            // connID -> conn
	byUser map[string]map[string]*WsConn // userID -> (connID -> conn)
	rooms  map[string]map[string]*WsConn // roomID -> (connID -> conn)

	conf     ManagerConf
	stopOnce sync.Once
	stopCh   chan struct{}
	nodeID   string
}

func NewConnManager(nodeID string) *ConnManager {
	return NewConnManagerWithConf(ManagerConf{}, nodeID)
}

func NewConnManagerWithConf(conf ManagerConf, nodeID string) *ConnManager {
	conf.norm()
	m := &ConnManager{
		byConn: make(map[string]*WsConn),
		byUser: make(map[string]map[string]*WsConn),
		rooms:  make(map[string]map[string]*WsConn),
		conf:   conf,
		stopCh: make(chan struct{}),
		nodeID: nodeID,
	}
	go m.sweepLoop()
	return m
}

func (m *ConnManager) NodeID() string { return m.nodeID }

// Add registers a fresh, unauthenticated connection and starts its
// writer goroutine.
func (m *ConnManager) Add(ws *websocket.Conn) *WsConn {
	now := m.conf.Clock()
	c := &WsConn{
		ConnID:    ids.GenerateString(),
		Conn:      ws,
		SendChan:  make(chan []byte, sendQueueSize),
		CreatedAt: now,
		Heartbeat: now,
	}
	m.mu.Lock()
	m.byConn[c.ConnID] = c
	m.mu.Unlock()

	go m.writeLoop(c)
	return c
}

// BindUser flips the connection to authorized after a successful
// handshake.
func (m *ConnManager) BindUser(connID, userID, displayName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byConn[connID]
	if !ok {
		return errs.New("unknown connection", "conn", connID)
	}
	c.UserID = userID
	c.DisplayName = displayName
	c.Authorized = true
	set, ok := m.byUser[userID]
	if !ok {
		set = make(map[string]*WsConn)
		m.byUser[userID] = set
	}
	set[connID] = c
	return nil
}

// JoinRoom subscribes the connection to roomID, implicitly leaving any
// previously active room first.
func (m *ConnManager) JoinRoom(connID, roomID string) (left string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byConn[connID]
	if !ok {
		return "", errs.New("unknown connection", "conn", connID)
	}
	if c.ActiveRoom == roomID {
		return "", nil
	}
	left = c.ActiveRoom
	if left != "" {
		m.dropFromRoom(left, connID)
	}
	set, ok := m.rooms[roomID]
	if !ok {
		set = make(map[string]*WsConn)
		m.rooms[roomID] = set
	}
	set[connID] = c
	c.ActiveRoom = roomID
	return left, nil
}

// LeaveRoom unsubscribes the connection from its active room, if any.
func (m *ConnManager) LeaveRoom(connID string) (left string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byConn[connID]
	if !ok || c.ActiveRoom == "" {
		return ""
	}
	left = c.ActiveRoom
	m.dropFromRoom(left, connID)
	c.ActiveRoom = ""
	return left
}

func (m *ConnManager) dropFromRoom(roomID, connID string) {
	if set, ok := m.rooms[roomID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(m.rooms, roomID)
		}
	}
}

// RoomConns snapshots the local connections subscribed to a room.
func (m *ConnManager) RoomConns(roomID string) []*WsConn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := m.rooms[roomID]
	out := make([]*WsConn, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

func (m *ConnManager) Get(connID string) *WsConn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byConn[connID]
}

// Touch refreshes the heartbeat timestamp.
func (m *ConnManager) Touch(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.byConn[connID]; ok {
		c.Heartbeat = m.conf.Clock()
	}
}

// Remove tears the connection down on every exit path: room membership,
// user index, send queue. Safe to call more than once.
func (m *ConnManager) Remove(connID string) {
	m.mu.Lock()
	c, ok := m.byConn[connID]
	if !ok {
		m.mu.Unlock()
		return
	}
	if c.ActiveRoom != "" {
		m.dropFromRoom(c.ActiveRoom, connID)
		c.ActiveRoom = ""
	}
	if c.UserID != "" {
		if set, ok := m.byUser[c.UserID]; ok {
			delete(set, connID)
			if len(set) == 0 {
				delete(m.byUser, c.UserID)
			}
		}
	}
	delete(m.byConn, connID)
	m.mu.Unlock()

	c.CloseSend()
}

// Push enqueues an encoded frame; drops with a log line when the client
// cannot keep up, the read loop will notice the dead peer soon enough.
func (m *ConnManager) Push(c *WsConn, data []byte) {
	defer func() {
		// Remove may have closed SendChan concurrently
		_ = recover()
	}()
	select {
	case c.SendChan <- data:
	default:
		logger.Warnf("[connmgr] send queue full, drop conn=%s user=%s", c.ConnID, c.UserID)
	}
}

func (m *ConnManager) writeLoop(c *WsConn) {
	for data := range c.SendChan {
		_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.Infof("[connmgr] write err conn=%s user=%s err=%v", c.ConnID, c.UserID, err)
			break
		}
	}
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.Conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = c.Conn.Close()
}

func (m *ConnManager) sweepLoop() {
	ticker := time.NewTicker(m.conf.SweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

// sweep kicks connections that never completed the auth handshake within
// the grace period, and authorized connections whose heartbeat (refreshed
// by client pings) has gone stale.
func (m *ConnManager) sweep() {
	now := m.conf.Clock()
	var expired []string
	m.mu.RLock()
	for id, c := range m.byConn {
		if !c.Authorized && now.Sub(c.CreatedAt) > m.conf.UnauthTTL {
			expired = append(expired, id)
			continue
		}
		if c.Authorized && now.Sub(c.Heartbeat) > m.conf.IdleTTL {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()
	for _, id := range expired {
		logger.Infof("[connmgr] sweeping stale conn=%s", id)
		m.Remove(id)
	}
}

func (m *ConnManager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}
