package handlers

import (
	stderrors "errors"

	"LPChat/logger"
	"LPChat/module/chat/frame"
	"LPChat/service/chat"
	"LPChat/tools/errs"
)

type JoinHandler struct{ ctx *chat.ChatContext }

func NewJoinHandler(ctx *chat.ChatContext) chat.Handler { return &JoinHandler{ctx: ctx} }
func (h *JoinHandler) Type() frame.Type                 { return frame.TypeJoin }

// Handle subscribes the connection to a room. A private room only admits
// its two participants; anyone else gets a JoinDenied error frame and
// keeps whatever room they had before.
func (h *JoinHandler) Handle(_ *chat.ChatContext, f *frame.Frame, conn *chat.WsConn) error {
	s := h.ctx.S
	roomID := f.RoomID
	if roomID == "" {
		s.PushFrame(conn, frame.BuildError("", errs.CodeRoomNotFound, "join without room id"))
		return nil
	}

	ctx, cancel := chat.FrameCtx()
	defer cancel()
	room, err := s.Store().GetRoom(ctx, roomID)
	if err != nil {
		var ce *errs.CodeError
		if stderrors.As(err, &ce) && ce.Code == errs.CodeRoomNotFound {
			s.PushFrame(conn, frame.BuildError(roomID, errs.CodeRoomNotFound, "room not found"))
			return nil
		}
		logger.Errorf("[join] get room err room=%s: %v", roomID, err)
		s.PushFrame(conn, frame.BuildError(roomID, errs.CodeServerInternal, "room lookup failed"))
		return nil
	}

	if !room.HasParticipant(conn.UserID) {
		logger.Infof("[join] denied user=%s room=%s", conn.UserID, roomID)
		s.PushFrame(conn, frame.BuildError(roomID, errs.CodeJoinDenied, "not a participant of this room"))
		return nil
	}

	left, err := s.ConnMgr().JoinRoom(conn.ConnID, roomID)
	if err != nil {
		return err
	}
	if left != "" {
		_ = s.Pres().MemberRemove(left, conn.UserID)
	}
	if err := s.Pres().MemberAdd(roomID, conn.UserID); err != nil {
		logger.Warnf("[join] member add err room=%s user=%s: %v", roomID, conn.UserID, err)
	}

	s.PushFrame(conn, frame.BuildJoinAck(roomID))
	logger.Infof("[join] user=%s room=%s (left=%s)", conn.UserID, roomID, left)
	return nil
}

type LeaveHandler struct{ ctx *chat.ChatContext }

func NewLeaveHandler(ctx *chat.ChatContext) chat.Handler { return &LeaveHandler{ctx: ctx} }
func (h *LeaveHandler) Type() frame.Type                 { return frame.TypeLeave }

func (h *LeaveHandler) Handle(_ *chat.ChatContext, f *frame.Frame, conn *chat.WsConn) error {
	s := h.ctx.S
	left := s.ConnMgr().LeaveRoom(conn.ConnID)
	if left != "" {
		_ = s.Pres().MemberRemove(left, conn.UserID)
		logger.Infof("[leave] user=%s room=%s", conn.UserID, left)
	}
	return nil
}
