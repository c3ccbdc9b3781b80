package chatclient

// EventKind classifies the notifications the core surfaces to its
// consumer (typically the rendering layer).
type EventKind int

const (
	// connection health; a reconnecting indicator, not an error
	EventConnected EventKind = iota
	EventReconnecting
	EventDisconnected

	// room session lifecycle
	EventJoined
	EventJoinDenied

	// timeline changes for the active room
	EventHistoryApplied
	EventHistoryFailed
	EventMessage

	// fatal conditions requiring user action (re-login etc.)
	EventFatal
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventReconnecting:
		return "reconnecting"
	case EventDisconnected:
		return "disconnected"
	case EventJoined:
		return "joined"
	case EventJoinDenied:
		return "join_denied"
	case EventHistoryApplied:
		return "history_applied"
	case EventHistoryFailed:
		return "history_failed"
	case EventMessage:
		return "message"
	case EventFatal:
		return "fatal"
	}
	return "unknown"
}

type Event struct {
	Kind   EventKind
	RoomID string
	Err    error
}
