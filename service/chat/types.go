package chat

import (
	"LPChat/module/chat/frame"
)

// Handler processes one inbound frame type.
type Handler interface {
	Type() frame.Type
	Handle(*ChatContext, *frame.Frame, *WsConn) error
}

type ChatContext struct {
	S *Server
}
