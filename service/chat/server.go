package chat

import (
	"context"
	"time"

	"LPChat/logger"
	"LPChat/module/chat/frame"
	"LPChat/module/chat/model"
	"LPChat/tools/security"
)

// RoomStore is the slice of the mongo store the gateway needs at frame
// time. Narrow so handler tests can stub it.
type RoomStore interface {
	GetRoom(ctx context.Context, roomID string) (*model.Room, error)
	InsertMessage(ctx context.Context, m *model.Message) error
}

// Broadcaster publishes a persisted message frame to every gateway node
// subscribed to the room (natsx.Fanout in production).
type Broadcaster interface {
	PublishRoom(roomID string, data []byte) error
}

// Presence records online state and live room membership (redis in
// production, no-op in tests).
type Presence interface {
	Online(userID string) error
	Offline(userID string) error
	MemberAdd(roomID, userID string) error
	MemberRemove(roomID, userID string) error
}

type Server struct {
	nodeID  string
	store   RoomStore
	fanout  Broadcaster
	pres    Presence
	jwtOpts security.Options

	disp    *Dispatcher
	connMgr *ConnManager
}

func NewServer(nodeID string, store RoomStore, fanout Broadcaster, pres Presence, jwtOpts security.Options, connMgr *ConnManager) *Server {
	s := &Server{
		nodeID:  nodeID,
		store:   store,
		fanout:  fanout,
		pres:    pres,
		jwtOpts: jwtOpts,
		disp:    NewDispatcher(),
		connMgr: connMgr,
	}
	return s
}

func (s *Server) NodeID() string          { return s.nodeID }
func (s *Server) Store() RoomStore        { return s.store }
func (s *Server) Fanout() Broadcaster     { return s.fanout }
func (s *Server) Pres() Presence          { return s.pres }
func (s *Server) JwtOpts() security.Options { return s.jwtOpts }
func (s *Server) Disp() *Dispatcher       { return s.disp }
func (s *Server) ConnMgr() *ConnManager   { return s.connMgr }

func (s *Server) DispatchFrame(f *frame.Frame, conn *WsConn) error {
	return s.disp.Dispatch(&ChatContext{S: s}, f, conn)
}

// DeliverLocal pushes an encoded message frame to every local connection
// subscribed to the room. Wired as the fan-out subscription callback, so
// messages published by any node (this one included) land here.
func (s *Server) DeliverLocal(roomID string, data []byte) {
	for _, c := range s.connMgr.RoomConns(roomID) {
		s.connMgr.Push(c, data)
	}
}

// PushFrame encodes and enqueues a frame for one connection.
func (s *Server) PushFrame(c *WsConn, f *frame.Frame) {
	data, err := f.Encode()
	if err != nil {
		logger.Errorf("[server] encode frame type=%s err=%v", f.Type, err)
		return
	}
	s.connMgr.Push(c, data)
}

// FrameCtx bounds store/broker work done inside a frame handler.
func FrameCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 3*time.Second)
}
