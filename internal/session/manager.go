package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Config tunes a Manager. Zero values take the defaults below.
type Config struct {
	// ReadBufferSize is the per-session PTY read buffer. Default 8 KiB.
	ReadBufferSize int
	// DrainTimeout bounds how long the monitor waits for the reader to
	// deliver buffered output after the child exits. Default 1s.
	DrainTimeout time.Duration
	Logger       *slog.Logger
}

const (
	defaultReadBufferSize = 8 * 1024
	defaultDrainTimeout   = time.Second
)

// Manager owns the session registry and everything hanging off it: PTY
// handles, reader and monitor goroutines, and the exit codes of sessions
// that already left the registry. All state is instance-scoped so
// independent managers can run side by side.
type Manager struct {
	cfg    Config
	sink   EventSink
	logger *slog.Logger

	mu        sync.RWMutex
	sessions  map[string]*Session
	exitCodes map[string]int
	closed    bool

	now func() time.Time
	wg  sync.WaitGroup
}

// NewManager returns a Manager that delivers events through sink.
func NewManager(sink EventSink, cfg Config) *Manager {
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = defaultReadBufferSize
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = defaultDrainTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:       cfg,
		sink:      sink,
		logger:    logger,
		sessions:  make(map[string]*Session),
		exitCodes: make(map[string]int),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateSession validates the request, spawns the shell on a fresh PTY,
// and starts the reader and monitor for it. On any failure no session
// stays registered.
func (m *Manager) CreateSession(req CreateRequest) (View, error) {
	if req.Cols < 1 {
		return View{}, fmt.Errorf("%w: cols must be greater than 0", ErrInvalidRequest)
	}
	if req.Rows < 1 {
		return View{}, fmt.Errorf("%w: rows must be greater than 0", ErrInvalidRequest)
	}
	if req.Shell == "" {
		return View{}, fmt.Errorf("%w: shell is required", ErrInvalidRequest)
	}
	cwd := req.Cwd
	if cwd == "" {
		cwd = homeDir()
	}
	info, err := os.Stat(cwd)
	if err != nil {
		return View{}, fmt.Errorf("%w: working directory %q: %v", ErrInvalidRequest, cwd, err)
	}
	if !info.IsDir() {
		return View{}, fmt.Errorf("%w: working directory %q is not a directory", ErrInvalidRequest, cwd)
	}

	shellPath, shellArgs, err := ResolveShell(req.Shell)
	if err != nil {
		return View{}, err
	}

	s := &Session{
		ID:         uuid.New().String(),
		TabID:      req.TabID,
		Command:    shellPath,
		Args:       shellArgs,
		Cwd:        cwd,
		Env:        req.Env,
		Cols:       req.Cols,
		Rows:       req.Rows,
		Status:     StatusStarting,
		StartedAt:  m.now(),
		readerDone: make(chan struct{}),
		done:       make(chan struct{}),
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return View{}, fmt.Errorf("%w: manager is shut down", ErrInvalidRequest)
	}
	m.sessions[s.ID] = s
	m.mu.Unlock()

	master, slave, err := openPTY(req.Cols, req.Rows)
	if err != nil {
		m.discard(s.ID)
		return View{}, fmt.Errorf("%w: %v", ErrPtyAllocFailed, err)
	}

	cmd := exec.Command(shellPath, shellArgs...)
	cmd.Dir = cwd
	cmd.Env = append(os.Environ(), envSlice(req.Env)...)
	cmd.Env = append(cmd.Env, defaultEnv()...)

	if err := startChild(cmd, slave); err != nil {
		master.Close()
		slave.Close()
		m.discard(s.ID)
		return View{}, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}
	// The child owns the slave now; dropping our reference lets the master
	// see EOF when the child exits.
	slave.Close()

	m.mu.Lock()
	s.PID = cmd.Process.Pid
	s.Status = StatusRunning
	s.pty = master
	s.child = cmd
	killRequested := s.killRequested
	view := s.view()
	m.mu.Unlock()

	m.logger.Info("session started",
		"session_id", s.ID, "tab_id", s.TabID, "shell", shellPath, "pid", s.PID)

	// The ready banner goes out before the reader starts so it precedes
	// any bytes from the child.
	if err := m.emitChunk(s.ID, ChunkInfo, readyBanner(shellPath, shellArgs)); err != nil {
		m.logger.Error("info emit failed", "session_id", s.ID, "error", err)
	}

	m.wg.Add(2)
	go m.readLoop(s)
	go m.waitChild(s)

	if killRequested {
		_ = m.KillSession(s.ID)
	}
	return view, nil
}

// discard drops a session that never reached running.
func (m *Manager) discard(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

func readyBanner(path string, args []string) string {
	line := path
	for _, a := range args {
		line += " " + a
	}
	return "PTY shell ready: " + line + "\r\n"
}

func envSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	pairs := make([]string, 0, len(env))
	for k, v := range env {
		pairs = append(pairs, k+"="+v)
	}
	return pairs
}

// GetSession returns a snapshot of a live session.
func (m *Manager) GetSession(id string) (View, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return View{}, fmt.Errorf("%w: %s", ErrSessionMissing, id)
	}
	return s.view(), nil
}

// ListSessions snapshots every registered session, oldest first.
func (m *Manager) ListSessions() []View {
	m.mu.RLock()
	views := make([]View, 0, len(m.sessions))
	for _, s := range m.sessions {
		views = append(views, s.view())
	}
	m.mu.RUnlock()

	sort.Slice(views, func(i, j int) bool {
		if views[i].StartTime.Equal(views[j].StartTime) {
			return views[i].ID < views[j].ID
		}
		return views[i].StartTime.Before(views[j].StartTime)
	})
	return views
}

// ExitCode returns the exit code of a finished session, or nil while the
// session is still running or the id is unknown. Codes survive registry
// removal for the lifetime of the manager.
func (m *Manager) ExitCode(id string) *int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if s, ok := m.sessions[id]; ok {
		if s.ExitCode == nil {
			return nil
		}
		code := *s.ExitCode
		return &code
	}
	if code, ok := m.exitCodes[id]; ok {
		c := code
		return &c
	}
	return nil
}

// SendInput writes data verbatim to the session's PTY. The empty string
// is a no-op. Writes are serialized per session; submission order is
// write order.
func (m *Manager) SendInput(id string, data string) error {
	if data == "" {
		return nil
	}

	m.mu.RLock()
	s, ok := m.sessions[id]
	if !ok || s.Status != StatusRunning {
		m.mu.RUnlock()
		return fmt.Errorf("%w: %s", ErrSessionMissing, id)
	}
	master := s.pty
	m.mu.RUnlock()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := master.Write([]byte(data)); err != nil {
		return fmt.Errorf("%w: write to session %s: %v", ErrIoFailed, id, err)
	}
	return nil
}

// Resize applies new geometry to the session's PTY. Stored geometry is
// updated only when the resize succeeds.
func (m *Manager) Resize(id string, cols, rows int) error {
	if cols < 1 || rows < 1 {
		return fmt.Errorf("%w: cols and rows must be greater than 0", ErrInvalidRequest)
	}

	m.mu.RLock()
	s, ok := m.sessions[id]
	if !ok || s.Status != StatusRunning {
		m.mu.RUnlock()
		return fmt.Errorf("%w: %s", ErrSessionMissing, id)
	}
	master := s.pty
	m.mu.RUnlock()

	if err := resizePTY(master, cols, rows); err != nil {
		return fmt.Errorf("%w: resize session %s: %v", ErrIoFailed, id, err)
	}

	m.mu.Lock()
	s.Cols, s.Rows = cols, rows
	m.mu.Unlock()
	return nil
}

// KillSession terminates a session. Idempotent: killing a session that
// already ended is a no-op returning nil. The monitor emits the single
// exit chunk once the child is reaped.
func (m *Manager) KillSession(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		_, ended := m.exitCodes[id]
		m.mu.Unlock()
		if ended {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrSessionMissing, id)
	}
	if s.Status.Terminal() {
		m.mu.Unlock()
		return nil
	}
	if s.Status == StatusStarting {
		// Spawn is still in flight; CreateSession finishes the kill once
		// the child exists.
		s.killRequested = true
		m.mu.Unlock()
		return nil
	}

	s.Status = StatusKilled
	code := 1
	s.ExitCode = &code
	t := m.now()
	s.EndedAt = &t
	proc := s.child.Process
	m.mu.Unlock()

	// Closing the master unblocks the reader; it sees the terminal status
	// and stops emitting before the exit chunk goes out.
	s.closePTY()
	if proc != nil {
		_ = proc.Kill()
	}
	m.logger.Info("session killed", "session_id", id)
	return nil
}

// Shutdown kills every live session and waits for their readers and
// monitors to finish.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		_ = m.KillSession(id)
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) emitChunk(id string, kind ChunkKind, content string) error {
	chunk := OutputChunk{
		SessionID: id,
		Content:   content,
		Kind:      kind,
		Timestamp: m.now(),
	}
	if err := m.sink.Emit(EventTerminalOutput, chunk); err != nil {
		return fmt.Errorf("%w: %v", ErrEmitFailed, err)
	}
	return nil
}
