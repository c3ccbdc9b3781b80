package chat

import (
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"LPChat/logger"
	"LPChat/module/chat/frame"
)

var upgrader = websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096, CheckOrigin: func(r *http.Request) bool { return true }}

// HandleWS upgrades the HTTP request and runs the read loop for one
// connection. The bearer credential is NOT read from the URL: the first
// frame the client sends must be an auth frame, so the token never shows
// up in access logs.
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[HandleWS] upgrade websocket error: %v", err)
		return
	}

	rec := s.connMgr.Add(ws)
	logger.Infof("[HandleWS] connected conn=%s remote=%s node=%s", rec.ConnID, ws.RemoteAddr(), s.NodeID())

	// ---- read loop: read only, never write; the writer goroutine owns
	// the socket for writes and closes it on exit ----
	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[WS] peer closed conn=%s err=%v", rec.ConnID, rerr)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Infof("[WS] read timeout conn=%s err=%v", rec.ConnID, rerr)
			} else {
				logger.Infof("[WS] read err conn=%s err=%v", rec.ConnID, rerr)
			}
			break
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		msg, perr := frame.ParseJSON(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[WS] ParseJSON err conn=%s err=%v sample=%q", rec.ConnID, perr, sample)
			continue
		}

		// unauthenticated connections may only speak auth or ping
		if !rec.Authorized && msg.Type != frame.TypeAuth && msg.Type != frame.TypePing {
			logger.Infof("[WS] frame before auth conn=%s type=%s", rec.ConnID, msg.Type)
			continue
		}

		msg.ConnID = rec.ConnID
		if err := s.DispatchFrame(msg, rec); err != nil {
			logger.Infof("[WS] handler err conn=%s type=%s err=%v", rec.ConnID, msg.Type, err)
		}
	}

	// ---- exit: presence offline, room membership and indices released ----
	if rec.ActiveRoom != "" {
		if left := s.connMgr.LeaveRoom(rec.ConnID); left != "" && rec.UserID != "" {
			_ = s.pres.MemberRemove(left, rec.UserID)
		}
	}
	if rec.UserID != "" {
		_ = s.pres.Offline(rec.UserID)
	}
	s.connMgr.Remove(rec.ConnID)
	logger.Infof("[WS] closed conn=%s user=%s", rec.ConnID, rec.UserID)
}
