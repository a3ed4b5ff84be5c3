package session

import "errors"

// Sentinel errors for the terminal core. Callers classify failures with
// errors.Is; wrapped messages carry the operation context.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrShellNotFound  = errors.New("shell not found")
	ErrPtyAllocFailed = errors.New("pty allocation failed")
	ErrSpawnFailed    = errors.New("spawn failed")
	ErrSessionMissing = errors.New("session not found")
	ErrIoFailed       = errors.New("terminal io failed")
	ErrEmitFailed     = errors.New("event emit failed")
	ErrExecFailed     = errors.New("command execution failed")
)

// ErrorCode maps an error to a stable machine-readable code for the wire.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrShellNotFound):
		return "shell_not_found"
	case errors.Is(err, ErrPtyAllocFailed):
		return "pty_alloc_failed"
	case errors.Is(err, ErrSpawnFailed):
		return "spawn_failed"
	case errors.Is(err, ErrSessionMissing):
		return "session_missing"
	case errors.Is(err, ErrIoFailed):
		return "io_failed"
	case errors.Is(err, ErrEmitFailed):
		return "emit_failed"
	case errors.Is(err, ErrExecFailed):
		return "exec_failed"
	default:
		return "internal"
	}
}
