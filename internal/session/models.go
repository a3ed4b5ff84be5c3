package session

import (
	"os"
	"os/exec"
	"sync"
	"time"
)

// Status is the lifecycle state of a session. Transitions are monotonic:
// starting → running → exited | killed.
type Status string

const (
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusExited   Status = "exited"
	StatusKilled   Status = "killed"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusExited || s == StatusKilled
}

// Session is one PTY-backed shell process plus the handles that manage it.
// Mutable fields are guarded by the owning Manager's mutex; the PTY master
// itself is read, written, and resized concurrently outside the lock.
type Session struct {
	ID        string
	TabID     string
	Command   string // resolved executable
	Args      []string
	Cwd       string
	Env       map[string]string
	Cols      int
	Rows      int
	PID       int
	ExitCode  *int
	Status    Status
	StartedAt time.Time
	EndedAt   *time.Time

	pty   *os.File  // master side, nil until spawn succeeds
	child *exec.Cmd // nil until spawn succeeds

	killRequested bool       // kill arrived before the session reached running
	writeMu       sync.Mutex // serializes input writes
	ptyOnce       sync.Once  // master is closed on exactly one path
	readerDone    chan struct{}
	done          chan struct{} // closed after the exit chunk is emitted
}

// closePTY closes the master handle. Safe to call from the kill path and
// the monitor concurrently.
func (s *Session) closePTY() {
	s.ptyOnce.Do(func() {
		if s.pty != nil {
			s.pty.Close()
		}
	})
}

// View is the externally visible snapshot of a Session, with internal
// handles elided.
type View struct {
	ID        string            `json:"id"`
	TabID     string            `json:"tab_id"`
	Command   string            `json:"command"`
	Args      []string          `json:"args"`
	Cwd       string            `json:"working_directory"`
	Env       map[string]string `json:"environment"`
	Status    Status            `json:"status"`
	PID       *int              `json:"pid,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   *time.Time        `json:"end_time,omitempty"`
	ExitCode  *int              `json:"exit_code,omitempty"`
}

// view snapshots the session. Caller must hold the manager mutex.
func (s *Session) view() View {
	args := make([]string, 0, len(s.Args))
	args = append(args, s.Args...)
	v := View{
		ID:        s.ID,
		TabID:     s.TabID,
		Command:   s.Command,
		Args:      args,
		Cwd:       s.Cwd,
		Env:       s.Env,
		Status:    s.Status,
		StartTime: s.StartedAt,
	}
	if s.PID != 0 {
		pid := s.PID
		v.PID = &pid
	}
	if s.EndedAt != nil {
		t := *s.EndedAt
		v.EndTime = &t
	}
	if s.ExitCode != nil {
		code := *s.ExitCode
		v.ExitCode = &code
	}
	return v
}

// CreateRequest describes a new interactive session.
type CreateRequest struct {
	TabID string            `json:"tab_id"`
	Shell string            `json:"shell"`
	Cwd   string            `json:"working_directory"`
	Env   map[string]string `json:"environment"`
	Cols  int               `json:"cols"`
	Rows  int               `json:"rows"`
}

// ChunkKind classifies an output chunk.
type ChunkKind string

const (
	ChunkStdout ChunkKind = "stdout"
	ChunkInfo   ChunkKind = "info"
	ChunkExit   ChunkKind = "exit"
)

// OutputChunk is one buffered read of session output, shaped for the
// terminal-output event payload.
type OutputChunk struct {
	SessionID string    `json:"process_id"`
	Content   string    `json:"content"`
	Kind      ChunkKind `json:"output_type"`
	Timestamp time.Time `json:"timestamp"`
}
