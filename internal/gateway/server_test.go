package gateway_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/mselko/termhub/internal/client"
	"github.com/mselko/termhub/internal/gateway"
	"github.com/mselko/termhub/internal/history"
	"github.com/mselko/termhub/internal/session"
	"github.com/mselko/termhub/internal/suggest"
)

func startTestServer(t *testing.T) (*gateway.Server, *session.Manager) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	gw := gateway.NewServer("127.0.0.1:0", logger)
	mgr := session.NewManager(gw, session.Config{Logger: logger})
	histSvc := history.NewService(history.NewStore(), nil, logger)
	sugSvc := suggest.NewService(logger,
		suggest.NewHistoryProvider(histSvc),
		suggest.NewStaticProvider(),
	)
	gateway.RegisterDefaultHandlers(gw, gateway.HandlerDeps{
		Manager:   mgr,
		History:   histSvc,
		Suggest:   sugSvc,
		Version:   "test",
		Build:     "none",
		StartTime: time.Now(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		_ = gw.Start(ctx)
	}()

	deadline := time.Now().Add(3 * time.Second)
	for gw.BoundAddr() == "" {
		if time.Now().After(deadline) {
			t.Fatal("server did not bind in time")
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Cleanup(func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 3*time.Second)
		defer done()
		mgr.Shutdown(shutdownCtx)
		gw.Stop(context.Background())
	})
	return gw, mgr
}

func dialClient(t *testing.T, gw *gateway.Server) *client.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	c, err := client.Dial(ctx, gw.BoundAddr())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func dialRaw(t *testing.T, gw *gateway.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	ws, _, err := websocket.Dial(ctx, "ws://"+gw.BoundAddr()+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { ws.Close(websocket.StatusNormalClosure, "") })
	return ws
}

func TestServerLifecycle(t *testing.T) {
	gw, _ := startTestServer(t)
	if gw.BoundAddr() == "" {
		t.Fatal("BoundAddr is empty")
	}
}

func TestPingRoundtrip(t *testing.T) {
	gw, _ := startTestServer(t)
	c := dialClient(t, gw)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var resp struct {
		Message string `json:"message"`
	}
	if err := c.Call(ctx, "ping", nil, &resp); err != nil {
		t.Fatalf("Call(ping) error = %v", err)
	}
	if resp.Message != "pong" {
		t.Errorf("message = %q, want pong", resp.Message)
	}

	if err := c.Call(ctx, "ping", map[string]any{"message": "hello"}, &resp); err != nil {
		t.Fatalf("Call(ping hello) error = %v", err)
	}
	if resp.Message != "hello" {
		t.Errorf("message = %q, want hello", resp.Message)
	}
}

func TestUnknownMethodReturnsCode(t *testing.T) {
	gw, _ := startTestServer(t)
	c := dialClient(t, gw)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := c.Call(ctx, "nonexistent", nil, nil)
	if err == nil {
		t.Fatal("Call(nonexistent) error = nil, want method_not_found")
	}
	rpcErr, ok := err.(*client.RPCError)
	if !ok {
		t.Fatalf("error type = %T, want *client.RPCError", err)
	}
	if rpcErr.Code != "method_not_found" {
		t.Errorf("code = %q, want method_not_found", rpcErr.Code)
	}
}

func TestInvalidPayloadReturnsCode(t *testing.T) {
	gw, _ := startTestServer(t)
	c := dialClient(t, gw)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := c.Call(ctx, "create_session", "not an object", nil)
	if err == nil {
		t.Fatal("Call(create_session) error = nil, want invalid_request")
	}
	rpcErr, ok := err.(*client.RPCError)
	if !ok {
		t.Fatalf("error type = %T, want *client.RPCError", err)
	}
	if rpcErr.Code != "invalid_request" {
		t.Errorf("code = %q, want invalid_request", rpcErr.Code)
	}
}

func TestGetSessionMissingIsNull(t *testing.T) {
	gw, _ := startTestServer(t)
	c := dialClient(t, gw)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var raw json.RawMessage
	if err := c.Call(ctx, "get_session", map[string]any{"session_id": "no-such"}, &raw); err != nil {
		t.Fatalf("Call(get_session) error = %v", err)
	}
	if string(raw) != "null" {
		t.Errorf("payload = %s, want null", raw)
	}
}

func TestKillUnknownSessionFails(t *testing.T) {
	gw, _ := startTestServer(t)
	c := dialClient(t, gw)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := c.Call(ctx, "kill_session", map[string]any{"session_id": "no-such"}, nil)
	if err == nil {
		t.Fatal("Call(kill_session) error = nil, want session_missing")
	}
	rpcErr, ok := err.(*client.RPCError)
	if !ok {
		t.Fatalf("error type = %T, want *client.RPCError", err)
	}
	if rpcErr.Code != "session_missing" {
		t.Errorf("code = %q, want session_missing", rpcErr.Code)
	}
}

func TestHealth(t *testing.T) {
	gw, _ := startTestServer(t)
	c := dialClient(t, gw)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var resp struct {
		Status         string `json:"status"`
		Version        string `json:"version"`
		ActiveSessions int    `json:"active_sessions"`
	}
	if err := c.Call(ctx, "health", nil, &resp); err != nil {
		t.Fatalf("Call(health) error = %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if resp.Version != "test" {
		t.Errorf("version = %q, want test", resp.Version)
	}
	if resp.ActiveSessions != 0 {
		t.Errorf("active_sessions = %d, want 0", resp.ActiveSessions)
	}
}

func TestHistoryOverGateway(t *testing.T) {
	gw, _ := startTestServer(t)
	c := dialClient(t, gw)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	entries := []history.Entry{
		{ID: "e1", Timestamp: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), Command: "ls", Output: "README.md\n"},
		{ID: "e2", Timestamp: time.Date(2025, 6, 1, 10, 1, 0, 0, time.UTC), Command: "pwd", Output: "/tmp\n"},
	}
	save := map[string]any{"tab_id": "tab-1", "entries": entries}
	if err := c.Call(ctx, "save_command_history", save, nil); err != nil {
		t.Fatalf("Call(save_command_history) error = %v", err)
	}

	var loaded struct {
		Entries []history.Entry `json:"entries"`
	}
	if err := c.Call(ctx, "load_command_history", map[string]any{"tab_id": "tab-1"}, &loaded); err != nil {
		t.Fatalf("Call(load_command_history) error = %v", err)
	}
	if len(loaded.Entries) != 2 {
		t.Fatalf("loaded %d entries, want 2", len(loaded.Entries))
	}
	if loaded.Entries[0].Command != "ls" || loaded.Entries[1].Command != "pwd" {
		t.Errorf("entries out of order: %+v", loaded.Entries)
	}

	// Null tab_id clears everything.
	if err := c.Call(ctx, "clear_command_history", map[string]any{"tab_id": nil}, nil); err != nil {
		t.Fatalf("Call(clear_command_history) error = %v", err)
	}
	if err := c.Call(ctx, "load_command_history", map[string]any{"tab_id": "tab-1"}, &loaded); err != nil {
		t.Fatalf("Call(load_command_history) error = %v", err)
	}
	if len(loaded.Entries) != 0 {
		t.Errorf("loaded %d entries after clear, want 0", len(loaded.Entries))
	}
}

func TestSuggestionsOverGateway(t *testing.T) {
	gw, _ := startTestServer(t)
	c := dialClient(t, gw)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	save := map[string]any{
		"tab_id": "tab-1",
		"entries": []history.Entry{
			{ID: "e1", Timestamp: time.Now().UTC(), Command: "git status"},
		},
	}
	if err := c.Call(ctx, "save_command_history", save, nil); err != nil {
		t.Fatalf("Call(save_command_history) error = %v", err)
	}

	var resp struct {
		Suggestions []suggest.Suggestion `json:"suggestions"`
	}
	req := map[string]any{"input": "git", "cursor_pos": 3}
	if err := c.Call(ctx, "get_suggestions", req, &resp); err != nil {
		t.Fatalf("Call(get_suggestions) error = %v", err)
	}
	found := false
	for _, s := range resp.Suggestions {
		if s.Text == "git status" && s.Source == "history" {
			found = true
		}
	}
	if !found {
		t.Errorf("suggestions missing history entry: %+v", resp.Suggestions)
	}

	// Out-of-range cursor is rejected.
	bad := map[string]any{"input": "git", "cursor_pos": 10}
	err := c.Call(ctx, "get_suggestions", bad, nil)
	if err == nil {
		t.Fatal("Call(get_suggestions) error = nil, want invalid_request")
	}
	if rpcErr, ok := err.(*client.RPCError); !ok || rpcErr.Code != "invalid_request" {
		t.Errorf("error = %v, want invalid_request code", err)
	}
}

func TestEventBroadcast(t *testing.T) {
	gw, _ := startTestServer(t)
	c := dialClient(t, gw)

	// Give the connection time to register before emitting.
	time.Sleep(100 * time.Millisecond)

	chunk := session.OutputChunk{
		SessionID: "sess-1",
		Content:   "hello\r\n",
		Kind:      session.ChunkStdout,
		Timestamp: time.Now().UTC(),
	}
	if err := gw.Emit(session.EventTerminalOutput, chunk); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}

	select {
	case frame := <-c.Events():
		if frame.Event != session.EventTerminalOutput {
			t.Errorf("event = %q, want %q", frame.Event, session.EventTerminalOutput)
		}
		var got session.OutputChunk
		if err := json.Unmarshal(frame.Payload, &got); err != nil {
			t.Fatalf("unmarshal chunk: %v", err)
		}
		if got.SessionID != "sess-1" || got.Content != "hello\r\n" {
			t.Errorf("chunk = %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event frame received")
	}
}

func TestNonRequestFramesIgnored(t *testing.T) {
	gw, _ := startTestServer(t)
	c := dialClient(t, gw)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	// A stray event frame from a client must not break the read loop.
	raw := dialRaw(t, gw)
	if err := wsjson.Write(ctx, raw, gateway.Frame{Type: gateway.FrameTypeEvent, Event: "noise"}); err != nil {
		t.Fatalf("write noise frame: %v", err)
	}

	var resp struct {
		Message string `json:"message"`
	}
	if err := c.Call(ctx, "ping", nil, &resp); err != nil {
		t.Fatalf("Call(ping) after noise error = %v", err)
	}
}

// waitForChunks drains terminal-output events for one session until the
// exit chunk arrives.
func waitForChunks(t *testing.T, events <-chan gateway.Frame, sessionID string, timeout time.Duration) []session.OutputChunk {
	t.Helper()
	deadline := time.After(timeout)
	var chunks []session.OutputChunk
	for {
		select {
		case frame, ok := <-events:
			if !ok {
				t.Fatal("event stream closed before exit chunk")
			}
			if frame.Event != session.EventTerminalOutput {
				continue
			}
			var chunk session.OutputChunk
			if err := json.Unmarshal(frame.Payload, &chunk); err != nil {
				t.Fatalf("unmarshal chunk: %v", err)
			}
			if chunk.SessionID != sessionID {
				continue
			}
			chunks = append(chunks, chunk)
			if chunk.Kind == session.ChunkExit {
				return chunks
			}
		case <-deadline:
			t.Fatalf("no exit chunk within %v (%d chunks so far)", timeout, len(chunks))
		}
	}
}

func TestSessionLifecycleOverGateway(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("PTY sessions require a POSIX host")
	}
	gw, _ := startTestServer(t)
	c := dialClient(t, gw)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var view session.View
	create := map[string]any{
		"tab_id":            "tab-1",
		"shell":             "/bin/sh",
		"working_directory": t.TempDir(),
		"cols":              80,
		"rows":              24,
	}
	if err := c.Call(ctx, "create_session", create, &view); err != nil {
		t.Fatalf("Call(create_session) error = %v", err)
	}
	if view.ID == "" {
		t.Fatal("create_session returned empty id")
	}
	if view.Status != session.StatusRunning {
		t.Errorf("status = %q, want running", view.Status)
	}
	if view.PID == nil || *view.PID <= 0 {
		t.Errorf("pid = %v, want positive", view.PID)
	}

	var sessions []session.View
	if err := c.Call(ctx, "list_sessions", nil, &sessions); err != nil {
		t.Fatalf("Call(list_sessions) error = %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != view.ID {
		t.Errorf("list_sessions = %+v, want the new session", sessions)
	}

	if err := c.Call(ctx, "resize", map[string]any{"session_id": view.ID, "cols": 100, "rows": 30}, nil); err != nil {
		t.Fatalf("Call(resize) error = %v", err)
	}

	input := map[string]any{"session_id": view.ID, "data": "exit 7\n"}
	if err := c.Call(ctx, "send_input", input, nil); err != nil {
		t.Fatalf("Call(send_input) error = %v", err)
	}

	chunks := waitForChunks(t, c.Events(), view.ID, 8*time.Second)
	if chunks[0].Kind != session.ChunkInfo {
		t.Errorf("first chunk kind = %q, want info banner", chunks[0].Kind)
	}
	last := chunks[len(chunks)-1]
	if last.Kind != session.ChunkExit {
		t.Fatalf("last chunk kind = %q, want exit", last.Kind)
	}
	if !strings.Contains(last.Content, "Process exited with code: 7") {
		t.Errorf("exit chunk = %q, want code 7 notice", last.Content)
	}

	// Nothing follows the exit chunk for this session.
	select {
	case frame := <-c.Events():
		var chunk session.OutputChunk
		if err := json.Unmarshal(frame.Payload, &chunk); err == nil && chunk.SessionID == view.ID {
			t.Errorf("chunk after exit: %+v", chunk)
		}
	case <-time.After(300 * time.Millisecond):
	}

	var codeResp struct {
		ExitCode *int `json:"exit_code"`
	}
	if err := c.Call(ctx, "get_exit_code", map[string]any{"session_id": view.ID}, &codeResp); err != nil {
		t.Fatalf("Call(get_exit_code) error = %v", err)
	}
	if codeResp.ExitCode == nil || *codeResp.ExitCode != 7 {
		t.Errorf("exit_code = %v, want 7", codeResp.ExitCode)
	}

	// The registry forgets the session once it ends.
	var raw json.RawMessage
	if err := c.Call(ctx, "get_session", map[string]any{"session_id": view.ID}, &raw); err != nil {
		t.Fatalf("Call(get_session) error = %v", err)
	}
	if string(raw) != "null" {
		t.Errorf("get_session after exit = %s, want null", raw)
	}
}

func TestKillOverGateway(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("PTY sessions require a POSIX host")
	}
	gw, _ := startTestServer(t)
	c := dialClient(t, gw)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var view session.View
	create := map[string]any{
		"tab_id":            "tab-1",
		"shell":             "/bin/sh",
		"working_directory": t.TempDir(),
		"cols":              80,
		"rows":              24,
	}
	if err := c.Call(ctx, "create_session", create, &view); err != nil {
		t.Fatalf("Call(create_session) error = %v", err)
	}

	kill := map[string]any{"session_id": view.ID}
	if err := c.Call(ctx, "kill_session", kill, nil); err != nil {
		t.Fatalf("Call(kill_session) error = %v", err)
	}

	chunks := waitForChunks(t, c.Events(), view.ID, 8*time.Second)
	last := chunks[len(chunks)-1]
	if !strings.Contains(last.Content, "Process exited with code: 1") {
		t.Errorf("exit chunk = %q, want code 1 notice", last.Content)
	}

	// Killing an already-dead session is a no-op.
	if err := c.Call(ctx, "kill_session", kill, nil); err != nil {
		t.Errorf("second kill error = %v, want nil", err)
	}

	var codeResp struct {
		ExitCode *int `json:"exit_code"`
	}
	if err := c.Call(ctx, "get_exit_code", kill, &codeResp); err != nil {
		t.Fatalf("Call(get_exit_code) error = %v", err)
	}
	if codeResp.ExitCode == nil || *codeResp.ExitCode != 1 {
		t.Errorf("exit_code = %v, want 1", codeResp.ExitCode)
	}
}
