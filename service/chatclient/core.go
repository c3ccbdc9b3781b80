package chatclient

import (
	"context"
	"sync"
	"time"

	"LPChat/logger"
	"LPChat/module/chat/frame"
	"LPChat/module/chat/model"
	"LPChat/tools/errs"
)

// Options configures a chat core for one session.
type Options struct {
	GatewayWSURL string // ws:// endpoint of the chat gateway
	Credentials  CredentialProvider
	Catalog      RoomCatalog
	History      MessageHistory

	HandshakeTimeout time.Duration
	HistoryTimeout   time.Duration
	PingInterval     time.Duration
	BackoffBase      time.Duration
	BackoffMax       time.Duration
	HistoryPageSize  int64
	EventBuffer      int
}

// Core is the chat session and delivery engine for one authenticated
// participant: the live connection, the room directory, the active-room
// session and the per-room timelines, all serialized through a single
// event loop. No two handlers for the same session ever run
// concurrently, which is why none of the owned components carry locks.
type Core struct {
	opts Options

	loop   chan func()
	done   chan struct{}
	events chan Event

	conn     *Conn
	dir      *Directory
	timeline *Timeline
	sess     *Session

	closeOnce sync.Once
}

// New wires a core. It does not connect; OpenChat does.
func New(opts Options) (*Core, error) {
	if opts.GatewayWSURL == "" {
		return nil, errs.New("gateway ws url is required")
	}
	if opts.Credentials == nil {
		return nil, errs.New("credential provider is required")
	}
	if opts.Catalog == nil {
		return nil, errs.New("room catalog is required")
	}
	if opts.History == nil {
		return nil, errs.New("message history is required")
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 64
	}

	c := &Core{
		opts:     opts,
		loop:     make(chan func(), 256),
		done:     make(chan struct{}),
		events:   make(chan Event, opts.EventBuffer),
		timeline: NewTimeline(),
	}

	c.conn = newConn(ConnOptions{
		URL:              opts.GatewayWSURL,
		HandshakeTimeout: opts.HandshakeTimeout,
		PingInterval:     opts.PingInterval,
		BackoffBase:      opts.BackoffBase,
		BackoffMax:       opts.BackoffMax,
	}, opts.Credentials.CurrentToken, c.post)

	c.dir = newDirectory(opts.Catalog)
	c.sess = newSession(c.conn, opts.History, c.timeline, c.post, c.emit, opts.HistoryTimeout, opts.HistoryPageSize)

	c.conn.onState = func(old, new ConnState) {
		switch new {
		case StateConnected:
			c.emit(Event{Kind: EventConnected})
			if old == StateReconnecting {
				// the join is not durable across a transport drop
				c.sess.onReconnected()
			}
		case StateReconnecting:
			c.emit(Event{Kind: EventReconnecting})
		case StateDisconnected:
			c.emit(Event{Kind: EventDisconnected})
		}
	}
	c.conn.onFatal = func(err error) {
		c.emit(Event{Kind: EventFatal, Err: err})
	}

	go c.run()
	return c, nil
}

func (c *Core) run() {
	for {
		select {
		case f := <-c.loop:
			f()
		case <-c.done:
			return
		}
	}
}

// post serializes a closure onto the event loop.
func (c *Core) post(f func()) {
	select {
	case c.loop <- f:
	case <-c.done:
	}
}

// do posts and waits for the result; callers block, the loop never does.
func (c *Core) do(f func() error) error {
	res := make(chan error, 1)
	c.post(func() { res <- f() })
	select {
	case err := <-res:
		return err
	case <-c.done:
		return errs.ErrNotConnected.WrapMsg("core closed")
	}
}

func (c *Core) emit(e Event) {
	select {
	case c.events <- e:
	default:
		logger.Warnf("[core] event buffer full, drop kind=%s room=%s", e.Kind, e.RoomID)
	}
}

// Events is the notification stream for the rendering layer.
func (c *Core) Events() <-chan Event { return c.events }

// OpenChat starts the connection if needed, loads the room directory
// and, when roomID is given (e.g. from a deep link elsewhere in the
// application), resolves and selects that room. A deep-link miss
// triggers one directory re-fetch before giving up.
func (c *Core) OpenChat(ctx context.Context, roomID string) error {
	if err := c.conn.Start(); err != nil {
		return err
	}
	if err := c.refreshDirectory(ctx); err != nil {
		return err
	}
	if roomID == "" {
		return nil
	}

	room, err := c.resolve(roomID)
	if errs.ErrRoomNotFound.Is(err) {
		if rerr := c.refreshDirectory(ctx); rerr != nil {
			return rerr
		}
		room, err = c.resolve(roomID)
	}
	if err != nil {
		return err
	}
	return c.do(func() error { return c.sess.selectRoom(room) })
}

// OpenDirectChat bootstraps (or finds) the private room with the target
// user and selects it. Used by "contact this lawyer" entry points.
func (c *Core) OpenDirectChat(ctx context.Context, target model.Participant) error {
	if err := c.conn.Start(); err != nil {
		return err
	}
	room, err := c.opts.Catalog.CreateOrGetDirectRoom(ctx, target)
	if err != nil {
		return errs.ErrDirectoryUnavailable.WrapMsg("create or get direct room", "target", target.ID, "err", err)
	}
	return c.do(func() error {
		c.dir.add(room)
		return c.sess.selectRoom(room)
	})
}

// RefreshDirectory re-fetches the room catalog on demand.
func (c *Core) RefreshDirectory(ctx context.Context) error {
	return c.refreshDirectory(ctx)
}

func (c *Core) refreshDirectory(ctx context.Context) error {
	public, private, err := c.dir.refresh(ctx, c.identity().UserID)
	if err != nil {
		return err
	}
	return c.do(func() error {
		c.dir.install(public, private)
		return nil
	})
}

func (c *Core) resolve(roomID string) (*model.Room, error) {
	var room *model.Room
	err := c.do(func() error {
		r, err := c.dir.Resolve(roomID)
		room = r
		return err
	})
	return room, err
}

// SelectRoom switches the active room.
func (c *Core) SelectRoom(room *model.Room) error {
	return c.do(func() error { return c.sess.selectRoom(room) })
}

// SendMessage emits a send frame for the active room. There is no
// optimistic local append: the message is expected back over the live
// path, and that echo is the delivery confirmation.
func (c *Core) SendMessage(roomID, body string) error {
	return c.do(func() error {
		if c.conn.State() != StateConnected {
			return errs.ErrNotConnected.WrapMsg("send message", "room", roomID)
		}
		act := c.sess.ActiveRoom()
		if act == nil || act.RoomID != roomID {
			return errs.ErrNotActiveRoom.WrapMsg("send message", "room", roomID)
		}
		return c.conn.Send(frame.BuildSend(roomID, body))
	})
}

// Timeline returns the ordered snapshot for a room.
func (c *Core) Timeline(roomID string) []model.Message {
	var out []model.Message
	_ = c.do(func() error {
		out = c.timeline.Timeline(roomID)
		return nil
	})
	return out
}

// Rooms returns the cached directory snapshot.
func (c *Core) Rooms() (public, private []*model.Room) {
	_ = c.do(func() error {
		public, private = c.dir.Rooms()
		return nil
	})
	return public, private
}

// ActiveRoom returns the currently selected room, nil when none.
func (c *Core) ActiveRoom() *model.Room {
	var r *model.Room
	_ = c.do(func() error {
		r = c.sess.ActiveRoom()
		return nil
	})
	return r
}

// ConnState reports the connection lifecycle state.
func (c *Core) ConnState() ConnState {
	var s ConnState
	_ = c.do(func() error {
		s = c.conn.State()
		return nil
	})
	return s
}

// IsMine resolves message authorship against the session identity.
func (c *Core) IsMine(m *model.Message) bool {
	return c.identity().IsMine(m)
}

// RoomLabel derives the display name for a room.
func (c *Core) RoomLabel(r *model.Room) string {
	return c.identity().RoomDisplayName(r)
}

func (c *Core) identity() Identity {
	var id Identity
	_ = c.do(func() error {
		id = c.conn.Identity()
		return nil
	})
	return id
}

// Close leaves the active room, releases the connection and stops the
// loop. Idempotent; safe on every exit path.
func (c *Core) Close() {
	c.closeOnce.Do(func() {
		_ = c.do(func() error {
			c.sess.leaveActive()
			return nil
		})
		c.conn.Stop()
		c.post(func() { close(c.done) })
	})
}
