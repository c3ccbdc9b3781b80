package chatclient

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"LPChat/logger"
	"LPChat/module/chat/frame"
	"LPChat/tools/decode"
	"LPChat/tools/errs"
	"LPChat/tools/safe"
)

// ConnState is the lifecycle of the single live channel.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	}
	return "unknown"
}

type ConnOptions struct {
	URL              string // ws:// endpoint of the gateway
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	PingInterval     time.Duration
	BackoffBase      time.Duration
	BackoffMax       time.Duration
}

func (o *ConnOptions) norm() {
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = time.Second
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 30 * time.Second
	}
}

// Conn owns the one live websocket of a session: handshake, health,
// reconnection. All state lives on the core's event loop; goroutines
// (dial, read pump, backoff) post their results back via post and carry
// a generation number so stale completions are ignored.
type Conn struct {
	opts    ConnOptions
	tokenFn func() (string, bool)
	post    func(func())

	// loop-owned
	state    ConnState
	ws       *websocket.Conn
	gen      int
	subs     map[frame.Type][]func(*frame.Frame)
	onState  func(old, new ConnState)
	onFatal  func(error)
	identity Identity
	pingStop chan struct{}

	stopped atomic.Bool
}

func newConn(opts ConnOptions, tokenFn func() (string, bool), post func(func())) *Conn {
	opts.norm()
	return &Conn{
		opts:    opts,
		tokenFn: tokenFn,
		post:    post,
		subs:    make(map[frame.Type][]func(*frame.Frame)),
	}
}

// Subscribe registers a handler for an inbound frame type. Handlers run
// on the event loop, in registration order.
func (c *Conn) Subscribe(t frame.Type, h func(*frame.Frame)) {
	c.subs[t] = append(c.subs[t], h)
}

func (c *Conn) State() ConnState { return c.state }

// Identity is the session identity confirmed by the auth ack.
func (c *Conn) Identity() Identity { return c.identity }

// Start dials and authenticates, blocking the caller (never the loop)
// until the handshake resolves. The credential rides inside the first
// frame, not in the URL, so it cannot leak into access logs. An auth
// rejection is fatal and is not retried.
func (c *Conn) Start() error {
	done := make(chan error, 1)
	c.post(func() {
		if c.state != StateDisconnected {
			done <- nil
			return
		}
		token, ok := c.tokenFn()
		if !ok {
			done <- errs.ErrAuthFailure.WrapMsg("no credential available")
			return
		}
		c.setState(StateConnecting)
		safe.Go(func() {
			ws, ident, err := c.dialAndAuth(token)
			c.post(func() {
				if c.stopped.Load() {
					if ws != nil {
						_ = ws.Close()
					}
					c.setState(StateDisconnected)
					done <- errs.ErrNotConnected.WrapMsg("stopped during handshake")
					return
				}
				if err != nil {
					c.setState(StateDisconnected)
					done <- err
					return
				}
				c.adopt(ws, ident)
				done <- nil
			})
		})
	})
	return <-done
}

// Stop releases the channel. Idempotent, safe on every exit path.
func (c *Conn) Stop() {
	if c.stopped.Swap(true) {
		return
	}
	c.post(func() {
		if c.ws != nil {
			_ = c.ws.Close()
			c.ws = nil
		}
		c.stopPing()
		c.gen++
		if c.state != StateDisconnected {
			c.setState(StateDisconnected)
		}
	})
}

// Send encodes and writes a frame. Loop-internal; fails with
// NotConnected unless the channel is live.
func (c *Conn) Send(f *frame.Frame) error {
	if c.state != StateConnected || c.ws == nil {
		return errs.ErrNotConnected.WrapMsg("send", "type", string(f.Type))
	}
	data, err := f.Encode()
	if err != nil {
		return err
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return errs.ErrTransportDrop.WrapMsg("write", "type", string(f.Type), "err", err)
	}
	return nil
}

// adopt installs a freshly authenticated socket and starts its read and
// ping pumps. Superseding bumps the generation, so any pump still
// running for a prior socket reports into the void.
func (c *Conn) adopt(ws *websocket.Conn, ident Identity) {
	if c.ws != nil {
		_ = c.ws.Close()
	}
	c.stopPing()
	c.ws = ws
	c.gen++
	c.identity = ident
	gen := c.gen
	c.setState(StateConnected)
	quit := make(chan struct{})
	c.pingStop = quit
	safe.Go(func() { c.readPump(ws, gen) })
	safe.Go(func() { c.pingLoop(quit, gen) })
}

func (c *Conn) stopPing() {
	if c.pingStop != nil {
		close(c.pingStop)
		c.pingStop = nil
	}
}

// pingLoop keeps the gateway's idle sweeper at bay while the socket is
// healthy. Pings go through the loop so writes never race, and carry
// the generation so a superseded socket falls silent.
func (c *Conn) pingLoop(quit chan struct{}, gen int) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			c.post(func() {
				if gen != c.gen || c.state != StateConnected {
					return
				}
				if err := c.Send(frame.BuildPing()); err != nil {
					logger.Infof("[conn] ping failed: %v", err)
				}
			})
		}
	}
}

func (c *Conn) readPump(ws *websocket.Conn, gen int) {
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			c.post(func() { c.handleDrop(gen) })
			return
		}
		f, perr := frame.ParseJSON(raw)
		if perr != nil {
			logger.Infof("[conn] bad frame: %v", perr)
			continue
		}
		c.post(func() { c.dispatch(f) })
	}
}

func (c *Conn) dispatch(f *frame.Frame) {
	if f.Type == frame.TypePing {
		_ = c.Send(frame.BuildPong())
		return
	}
	for _, h := range c.subs[f.Type] {
		h(f)
	}
}

// handleDrop reacts to a read-pump failure for the current socket:
// transition to Reconnecting and start the capped backoff loop.
func (c *Conn) handleDrop(gen int) {
	if c.stopped.Load() || gen != c.gen || c.state != StateConnected {
		return
	}
	c.ws = nil
	c.stopPing()
	c.setState(StateReconnecting)
	safe.Go(c.reconnectLoop)
}

func (c *Conn) reconnectLoop() {
	backoff := c.opts.BackoffBase
	for {
		if c.stopped.Load() {
			return
		}
		token, ok := c.tokenFn()
		if !ok {
			c.post(func() {
				c.setState(StateDisconnected)
				c.fatal(errs.ErrAuthFailure.WrapMsg("credential gone during reconnect"))
			})
			return
		}
		ws, ident, err := c.dialAndAuth(token)
		if err == nil {
			c.post(func() {
				if c.stopped.Load() || c.state != StateReconnecting {
					_ = ws.Close()
					return
				}
				c.adopt(ws, ident)
			})
			return
		}
		if errs.ErrAuthFailure.Is(err) {
			// retrying with the same bad credential cannot succeed
			c.post(func() {
				c.setState(StateDisconnected)
				c.fatal(err)
			})
			return
		}
		logger.Infof("[conn] reconnect failed, retry in %v: %v", backoff, err)
		time.Sleep(backoff)
		if backoff < c.opts.BackoffMax {
			backoff *= 2
			if backoff > c.opts.BackoffMax {
				backoff = c.opts.BackoffMax
			}
		}
	}
}

// dialAndAuth performs the full authenticated handshake on the calling
// goroutine: dial, send the auth frame, await the ack within the
// handshake deadline. A timeout is treated exactly like a failure.
func (c *Conn) dialAndAuth(token string) (*websocket.Conn, Identity, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.opts.HandshakeTimeout}
	ws, _, err := dialer.Dial(c.opts.URL, nil)
	if err != nil {
		return nil, Identity{}, errs.ErrTransportDrop.WrapMsg("dial", "url", c.opts.URL, "err", err)
	}

	deadline := time.Now().Add(c.opts.HandshakeTimeout)
	data, err := frame.BuildAuth(token).Encode()
	if err != nil {
		_ = ws.Close()
		return nil, Identity{}, err
	}
	_ = ws.SetWriteDeadline(deadline)
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		_ = ws.Close()
		return nil, Identity{}, errs.ErrTransportDrop.WrapMsg("write auth", "err", err)
	}

	_ = ws.SetReadDeadline(deadline)
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			_ = ws.Close()
			return nil, Identity{}, errs.ErrTransportDrop.WrapMsg("await auth ack", "err", err)
		}
		f, perr := frame.ParseJSON(raw)
		if perr != nil {
			continue
		}
		switch f.Type {
		case frame.TypeAuthAck:
			ack, err := decode.DecodeMap[frame.AuthAckPayload](f.Payload)
			if err != nil {
				_ = ws.Close()
				return nil, Identity{}, errs.ErrTransportDrop.WrapMsg("decode auth ack", "err", err)
			}
			_ = ws.SetReadDeadline(time.Time{})
			return ws, Identity{UserID: ack.UserID, DisplayName: ack.DisplayName}, nil
		case frame.TypeError:
			ep, derr := decode.DecodeMap[frame.ErrorPayload](f.Payload)
			_ = ws.Close()
			if derr == nil && ep.Code == errs.CodeAuthFailure {
				return nil, Identity{}, errs.ErrAuthFailure.WrapMsg(ep.Msg)
			}
			return nil, Identity{}, errs.ErrTransportDrop.WrapMsg("handshake error frame")
		default:
			// tolerate unrelated frames while waiting for the ack
		}
	}
}

func (c *Conn) setState(s ConnState) {
	old := c.state
	if old == s {
		return
	}
	c.state = s
	logger.Infof("[conn] %s -> %s", old, s)
	if c.onState != nil {
		c.onState(old, s)
	}
}

func (c *Conn) fatal(err error) {
	if c.onFatal != nil {
		c.onFatal(err)
	}
}
