package session

// EventTerminalOutput carries an OutputChunk payload.
const EventTerminalOutput = "terminal-output"

// EventSink delivers named events to the surrounding application. Emit is
// attempt-once: the core never retries a refused event. Implementations
// must be safe for concurrent use and must not block indefinitely; a
// failed emit tears the emitting session down.
type EventSink interface {
	Emit(name string, payload any) error
}
