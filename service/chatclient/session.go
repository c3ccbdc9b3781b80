package chatclient

import (
	"context"
	"time"

	"LPChat/logger"
	"LPChat/module/chat/frame"
	"LPChat/module/chat/model"
	"LPChat/tools/decode"
	"LPChat/tools/errs"
	"LPChat/tools/safe"
)

// SessionState is the per-connection room subscription lifecycle.
type SessionState int

const (
	SessionIdle SessionState = iota
	SessionJoining
	SessionActive
	SessionLeaving
)

// wire is the slice of the connection the session needs: frame
// emission and inbound subscription. *Conn satisfies it.
type wire interface {
	Send(*frame.Frame) error
	Subscribe(frame.Type, func(*frame.Frame))
}

// Session enforces "at most one active room subscription per
// connection" and keeps the history snapshot and the live stream
// consistent for that room. All methods run on the core's event loop.
type Session struct {
	conn     wire
	history  MessageHistory
	timeline *Timeline
	post     func(func())
	emit     func(Event)

	state   SessionState
	active  *model.Room
	pending *model.Room

	historyTimeout time.Duration
	pageSize       int64
}

func newSession(conn wire, history MessageHistory, timeline *Timeline, post func(func()), emit func(Event), historyTimeout time.Duration, pageSize int64) *Session {
	if historyTimeout <= 0 {
		historyTimeout = 10 * time.Second
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	s := &Session{
		conn:           conn,
		history:        history,
		timeline:       timeline,
		post:           post,
		emit:           emit,
		historyTimeout: historyTimeout,
		pageSize:       pageSize,
	}
	conn.Subscribe(frame.TypeJoinAck, s.onJoinAck)
	conn.Subscribe(frame.TypeMessage, s.onMessage)
	conn.Subscribe(frame.TypeError, s.onErrorFrame)
	return s
}

func (s *Session) State() SessionState { return s.state }

// ActiveRoom returns the room currently subscribed for live delivery,
// nil when none is.
func (s *Session) ActiveRoom() *model.Room { return s.active }

// selectRoom switches the active room: any prior pending or active room
// gets a leave emission first, then the join goes out. The room becomes
// Active only on the join ack; a denial surfaces as EventJoinDenied and
// the selection dies there.
func (s *Session) selectRoom(room *model.Room) error {
	if s.pending != nil && s.pending.RoomID != room.RoomID {
		// superseded before its ack arrived
		_ = s.conn.Send(frame.BuildLeave(s.pending.RoomID))
		s.pending = nil
	}
	if s.active != nil && s.active.RoomID != room.RoomID {
		s.state = SessionLeaving
		_ = s.conn.Send(frame.BuildLeave(s.active.RoomID))
		s.timeline.SetActive("")
		s.active = nil
	}

	s.state = SessionJoining
	s.pending = room
	if err := s.conn.Send(frame.BuildJoin(room.RoomID)); err != nil {
		s.state = SessionIdle
		s.pending = nil
		return err
	}
	return nil
}

// leaveActive drops the subscription without selecting a replacement.
func (s *Session) leaveActive() {
	if s.active == nil {
		return
	}
	s.state = SessionLeaving
	_ = s.conn.Send(frame.BuildLeave(s.active.RoomID))
	s.timeline.SetActive("")
	s.active = nil
	s.state = SessionIdle
}

// onReconnected re-issues the join for whatever room the user last
// selected; a join is not durable across a transport drop.
func (s *Session) onReconnected() {
	target := s.active
	if s.pending != nil {
		target = s.pending
	}
	if target == nil {
		return
	}
	logger.Infof("[session] re-joining room=%s after reconnect", target.RoomID)
	if err := s.selectRoom(target); err != nil {
		logger.Warnf("[session] re-join failed room=%s: %v", target.RoomID, err)
	}
}

func (s *Session) onJoinAck(f *frame.Frame) {
	if s.pending == nil || f.RoomID != s.pending.RoomID {
		// ack for a selection that was superseded; the leave already
		// went out, nothing to do
		return
	}
	s.active = s.pending
	s.pending = nil
	s.state = SessionActive
	s.timeline.SetActive(s.active.RoomID)
	s.emit(Event{Kind: EventJoined, RoomID: s.active.RoomID})
	s.fetchHistory(s.active.RoomID)
}

// fetchHistory loads the history snapshot off-loop and merges it back
// in. Live events that land while the fetch is in flight sit in the
// timeline already; the merge unions by id, so arrival order between
// the two paths cannot change the final content.
func (s *Session) fetchHistory(roomID string) {
	safe.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.historyTimeout)
		defer cancel()
		msgs, err := s.history.FetchMessages(ctx, roomID, PageParams{Limit: s.pageSize})
		s.post(func() {
			stillActive := s.active != nil && s.active.RoomID == roomID
			if err != nil {
				// the room stays Active with a stale or empty timeline;
				// re-selecting it retries the fetch
				if stillActive {
					s.emit(Event{Kind: EventHistoryFailed, RoomID: roomID,
						Err: errs.ErrHistoryFetchFailure.WrapMsg("fetch", "room", roomID, "err", err)})
				}
				return
			}
			// merge into the room it was fetched for even if the user
			// has moved on; the per-room store keeps this from touching
			// the now-active timeline
			s.timeline.ApplyHistory(roomID, msgs)
			if stillActive {
				s.emit(Event{Kind: EventHistoryApplied, RoomID: roomID})
			}
		})
	})
}

func (s *Session) onMessage(f *frame.Frame) {
	m, err := f.MessagePayload()
	if err != nil {
		logger.Infof("[session] bad message frame: %v", err)
		return
	}
	if s.timeline.ApplyLive(m.RoomID, m) {
		s.emit(Event{Kind: EventMessage, RoomID: m.RoomID})
	}
}

func (s *Session) onErrorFrame(f *frame.Frame) {
	ep, err := decode.DecodeMap[frame.ErrorPayload](f.Payload)
	if err != nil {
		logger.Infof("[session] bad error frame: %v", err)
		return
	}
	switch ep.Code {
	case errs.CodeJoinDenied:
		if s.pending != nil && f.RoomID == s.pending.RoomID {
			s.pending = nil
			s.state = SessionIdle
			s.emit(Event{Kind: EventJoinDenied, RoomID: f.RoomID,
				Err: errs.ErrJoinDenied.WrapMsg(ep.Msg, "room", f.RoomID)})
		}
	case errs.CodeRoomNotFound:
		if s.pending != nil && f.RoomID == s.pending.RoomID {
			s.pending = nil
			s.state = SessionIdle
			s.emit(Event{Kind: EventJoinDenied, RoomID: f.RoomID,
				Err: errs.ErrRoomNotFound.WrapMsg(ep.Msg, "room", f.RoomID)})
		}
	default:
		logger.Infof("[session] server error frame room=%s code=%d msg=%s", f.RoomID, ep.Code, ep.Msg)
	}
}
