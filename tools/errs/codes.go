package errs

// Error codes of the chat core. Guard errors (10xx) indicate a caller
// precondition violation; 14xx are fatal for the attempt that raised
// them; 15xx are recoverable and retried either automatically (transport)
// or by the user re-invoking the operation.
const (
	CodeNotConnected  = 1001
	CodeNotActiveRoom = 1002

	CodeAuthFailure  = 1401
	CodeJoinDenied   = 1403
	CodeRoomNotFound = 1404

	CodeTransportDrop        = 1502
	CodeDirectoryUnavailable = 1503
	CodeHistoryFetchFailure  = 1504

	CodeServerInternal = 1500
)

var (
	ErrNotConnected  = NewCodeError(CodeNotConnected, "connection is not established")
	ErrNotActiveRoom = NewCodeError(CodeNotActiveRoom, "room is not the active room")

	ErrAuthFailure  = NewCodeError(CodeAuthFailure, "authentication rejected")
	ErrJoinDenied   = NewCodeError(CodeJoinDenied, "room join denied")
	ErrRoomNotFound = NewCodeError(CodeRoomNotFound, "room not found")

	ErrTransportDrop        = NewCodeError(CodeTransportDrop, "transport dropped")
	ErrDirectoryUnavailable = NewCodeError(CodeDirectoryUnavailable, "room directory unavailable")
	ErrHistoryFetchFailure  = NewCodeError(CodeHistoryFetchFailure, "history fetch failed")

	ErrServerInternal = NewCodeError(CodeServerInternal, "server internal error")
)
