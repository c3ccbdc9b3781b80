package handlers

import (
	"LPChat/logger"
	"LPChat/module/chat/frame"
	"LPChat/service/chat"
	"LPChat/tools/decode"
	"LPChat/tools/errs"
	"LPChat/tools/security"
)

type AuthHandler struct{ ctx *chat.ChatContext }

func NewAuthHandler(ctx *chat.ChatContext) chat.Handler { return &AuthHandler{ctx: ctx} }
func (h *AuthHandler) Type() frame.Type                 { return frame.TypeAuth }

// Handle verifies the bearer token carried in the first frame and flips
// the connection to authorized. A bad token is answered with a coded
// error frame and the connection is torn down; retrying with the same
// credential cannot succeed, so the client must surface it.
func (h *AuthHandler) Handle(_ *chat.ChatContext, f *frame.Frame, conn *chat.WsConn) error {
	s := h.ctx.S

	ap, err := decode.DecodeMap[frame.AuthPayload](f.Payload)
	if err != nil || ap.Token == "" {
		logger.Infof("[auth] bad payload conn=%s err=%v", conn.ConnID, err)
		h.reject(conn, "missing or malformed token")
		return nil
	}

	claims, err := security.Verify(s.JwtOpts(), ap.Token)
	if err != nil {
		// log the digest, never the credential itself
		logger.Infof("[auth] verify err conn=%s token=%s: %v", conn.ConnID, security.HashToken(ap.Token), err)
		h.reject(conn, "token rejected")
		return nil
	}
	userID := claims.UserID()
	if userID == "" {
		h.reject(conn, "token missing subject")
		return nil
	}

	// BindUser writes UserID/DisplayName/Authorized under the manager
	// lock; the sweeper reads Authorized concurrently, so the fields are
	// never touched directly here
	if err := s.ConnMgr().BindUser(conn.ConnID, userID, claims.DisplayName()); err != nil {
		logger.Errorf("[auth] bind user err conn=%s: %v", conn.ConnID, err)
		return err
	}

	if err := s.Pres().Online(userID); err != nil {
		logger.Warnf("[auth] presence online err user=%s: %v", userID, err)
	}

	var expireAt int64
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expireAt = exp.UnixMilli()
	}
	s.PushFrame(conn, frame.BuildAuthAck(userID, claims.DisplayName(), conn.ConnID, expireAt))
	logger.Infof("[auth] authorized conn=%s user=%s", conn.ConnID, userID)
	return nil
}

func (h *AuthHandler) reject(conn *chat.WsConn, msg string) {
	s := h.ctx.S
	s.PushFrame(conn, frame.BuildError("", errs.CodeAuthFailure, msg))
	// writer drains the queued error frame before closing the socket
	s.ConnMgr().Remove(conn.ConnID)
}
