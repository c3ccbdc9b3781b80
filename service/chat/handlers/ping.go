package handlers

import (
	"LPChat/module/chat/frame"
	"LPChat/service/chat"
)

type PingHandler struct{ ctx *chat.ChatContext }

func NewPingHandler(ctx *chat.ChatContext) chat.Handler { return &PingHandler{ctx: ctx} }
func (h *PingHandler) Type() frame.Type                 { return frame.TypePing }

func (h *PingHandler) Handle(_ *chat.ChatContext, f *frame.Frame, conn *chat.WsConn) error {
	s := h.ctx.S
	s.ConnMgr().Touch(conn.ConnID)
	s.PushFrame(conn, frame.BuildPong())
	return nil
}
