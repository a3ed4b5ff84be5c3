package session

import (
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// waitChild reaps the child, lets the reader drain, finalizes the session,
// and emits the exit chunk. It is the only finalizer: the kill path just
// signals the child, so the exit chunk goes out exactly once per session.
func (m *Manager) waitChild(s *Session) {
	defer m.wg.Done()

	err := s.child.Wait()

	// Give the reader a bounded window to deliver output still buffered
	// in the PTY. A grandchild holding the slave open would otherwise
	// park the reader forever.
	select {
	case <-s.readerDone:
	case <-time.After(m.cfg.DrainTimeout):
		s.closePTY()
		<-s.readerDone
	}
	s.closePTY()

	m.finalize(s, exitCode(err))
}

// exitCode extracts the numeric exit code from a Wait error. 1 stands in
// when the platform cannot surface the raw code, e.g. death by signal.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code
		}
	}
	return 1
}

// finalize records the terminal state, moves the exit code to the
// retained map, removes the session from the registry, and emits the exit
// chunk as the session's last event.
func (m *Manager) finalize(s *Session, code int) {
	m.mu.Lock()
	status := s.Status
	if !status.Terminal() {
		status = StatusExited
		s.Status = status
	}
	s.ExitCode = &code
	if s.EndedAt == nil {
		t := m.now()
		s.EndedAt = &t
	}
	delete(m.sessions, s.ID)
	m.exitCodes[s.ID] = code
	m.mu.Unlock()

	if err := m.emitChunk(s.ID, ChunkExit, fmt.Sprintf("Process exited with code: %d", code)); err != nil {
		m.logger.Error("exit emit failed", "session_id", s.ID, "error", err)
	}
	m.logger.Info("session ended",
		"session_id", s.ID, "status", status, "exit_code", code)
	close(s.done)
}
