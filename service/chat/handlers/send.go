package handlers

import (
	"time"

	"LPChat/logger"
	"LPChat/module/chat/frame"
	"LPChat/module/chat/model"
	"LPChat/service/chat"
	"LPChat/tools/decode"
	"LPChat/tools/errs"
	"LPChat/tools/ids"
)

type SendHandler struct{ ctx *chat.ChatContext }

func NewSendHandler(ctx *chat.ChatContext) chat.Handler { return &SendHandler{ctx: ctx} }
func (h *SendHandler) Type() frame.Type                 { return frame.TypeSend }

// Handle persists an outbound message and publishes it to the room
// fan-out. The sender gets no direct ack: the message comes back over
// the fan-out like everyone else's, and that echo is the delivery
// confirmation.
func (h *SendHandler) Handle(_ *chat.ChatContext, f *frame.Frame, conn *chat.WsConn) error {
	s := h.ctx.S

	sp, err := decode.DecodeMap[frame.SendPayload](f.Payload)
	if err != nil {
		logger.Infof("[send] bad payload conn=%s err=%v", conn.ConnID, err)
		return nil
	}
	roomID := sp.RoomID
	if roomID == "" {
		roomID = f.RoomID
	}
	if roomID == "" || sp.Body == "" {
		return nil
	}
	if conn.ActiveRoom != roomID {
		s.PushFrame(conn, frame.BuildError(roomID, errs.CodeNotActiveRoom, "send to a room that is not joined"))
		return nil
	}

	m := &model.Message{
		MsgID:  ids.GenerateString(),
		RoomID: roomID,
		Sender: model.Sender{
			ID:          conn.UserID,
			DisplayName: conn.DisplayName,
		},
		Body:      sp.Body,
		CreatedAt: time.Now().UnixMilli(),
	}

	ctx, cancel := chat.FrameCtx()
	defer cancel()
	if err := s.Store().InsertMessage(ctx, m); err != nil {
		logger.Errorf("[send] persist err room=%s: %v", roomID, err)
		s.PushFrame(conn, frame.BuildError(roomID, errs.CodeServerInternal, "message not stored"))
		return nil
	}

	data, err := frame.BuildMessage(m).Encode()
	if err != nil {
		logger.Errorf("[send] encode err room=%s: %v", roomID, err)
		return nil
	}
	if err := s.Fanout().PublishRoom(roomID, data); err != nil {
		logger.Errorf("[send] fanout err room=%s: %v", roomID, err)
	}
	return nil
}
