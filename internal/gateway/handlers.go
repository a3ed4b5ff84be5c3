package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mselko/termhub/internal/history"
	"github.com/mselko/termhub/internal/session"
	"github.com/mselko/termhub/internal/suggest"
	"github.com/mselko/termhub/internal/validators"
)

// HandlerDeps holds dependencies needed by RPC handlers.
type HandlerDeps struct {
	Manager   *session.Manager
	History   *history.Service // can be nil
	Suggest   *suggest.Service // can be nil
	Version   string
	Build     string
	StartTime time.Time
}

// RegisterDefaultHandlers registers all built-in RPC handlers on the server.
func RegisterDefaultHandlers(s *Server, deps HandlerDeps) {
	s.RegisterHandler("create_session", createSessionHandler(deps))
	s.RegisterHandler("send_input", sendInputHandler(deps))
	s.RegisterHandler("resize", resizeHandler(deps))
	s.RegisterHandler("kill_session", killSessionHandler(deps))
	s.RegisterHandler("get_session", getSessionHandler(deps))
	s.RegisterHandler("list_sessions", listSessionsHandler(deps))
	s.RegisterHandler("get_exit_code", getExitCodeHandler(deps))
	s.RegisterHandler("execute", executeHandler(deps))
	s.RegisterHandler("list_shells", listShellsHandler(deps))
	s.RegisterHandler("default_shell", defaultShellHandler(deps))
	s.RegisterHandler("system_info", systemInfoHandler(deps))
	s.RegisterHandler("ping", pingHandler(deps))
	s.RegisterHandler("health", healthHandler(deps))

	if deps.History != nil {
		s.RegisterHandler("save_command_history", saveHistoryHandler(deps))
		s.RegisterHandler("load_command_history", loadHistoryHandler(deps))
		s.RegisterHandler("clear_command_history", clearHistoryHandler(deps))
	}
	if deps.Suggest != nil {
		s.RegisterHandler("get_suggestions", getSuggestionsHandler(deps))
	}
}

// decode unmarshals a request payload, mapping failures to ErrInvalidPayload.
func decode(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return ErrInvalidPayload
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// --- sessions ---

type sessionIDRequest struct {
	SessionID string `json:"session_id"`
}

func createSessionHandler(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
		var req session.CreateRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		view, err := deps.Manager.CreateSession(req)
		if err != nil {
			return nil, err
		}
		return json.Marshal(view)
	}
}

type sendInputRequest struct {
	SessionID string `json:"session_id"`
	Data      string `json:"data"`
}

func sendInputHandler(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
		var req sendInputRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		if err := deps.Manager.SendInput(req.SessionID, req.Data); err != nil {
			return nil, err
		}
		return nil, nil
	}
}

type resizeRequest struct {
	SessionID string `json:"session_id"`
	Cols      int    `json:"cols"`
	Rows      int    `json:"rows"`
}

func resizeHandler(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
		var req resizeRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		if err := deps.Manager.Resize(req.SessionID, req.Cols, req.Rows); err != nil {
			return nil, err
		}
		return nil, nil
	}
}

func killSessionHandler(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
		var req sessionIDRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		if err := deps.Manager.KillSession(req.SessionID); err != nil {
			return nil, err
		}
		return nil, nil
	}
}

func getSessionHandler(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
		var req sessionIDRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		view, err := deps.Manager.GetSession(req.SessionID)
		if err != nil {
			// Lookups are queries, not assertions: an unknown id is a
			// null result rather than an error.
			if errors.Is(err, session.ErrSessionMissing) {
				return json.RawMessage("null"), nil
			}
			return nil, err
		}
		return json.Marshal(view)
	}
}

func listSessionsHandler(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
		return json.Marshal(deps.Manager.ListSessions())
	}
}

type exitCodeResponse struct {
	ExitCode *int `json:"exit_code"`
}

func getExitCodeHandler(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
		var req sessionIDRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		return json.Marshal(exitCodeResponse{ExitCode: deps.Manager.ExitCode(req.SessionID)})
	}
}

// --- one-shot execution ---

type executeResponse struct {
	Output string `json:"output"`
}

func executeHandler(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
		var req session.ExecRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		output, err := session.Execute(ctx, req)
		if err != nil {
			return nil, err
		}
		return json.Marshal(executeResponse{Output: output})
	}
}

// --- shells and system ---

type defaultShellResponse struct {
	Shell string `json:"shell"`
}

func listShellsHandler(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
		return json.Marshal(session.ListShells())
	}
}

func defaultShellHandler(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
		return json.Marshal(defaultShellResponse{Shell: session.DefaultShell()})
	}
}

func systemInfoHandler(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
		return json.Marshal(session.Info())
	}
}

type pingRequest struct {
	Message string `json:"message"`
}

type pingResponse struct {
	Message string `json:"message"`
}

// pingHandler echoes the request message back. A missing message is a
// plain liveness probe and echoes "pong".
func pingHandler(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
		var req pingRequest
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &req); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
			}
		}
		if req.Message == "" {
			req.Message = "pong"
		}
		return json.Marshal(pingResponse{Message: req.Message})
	}
}

type healthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	Build          string `json:"build"`
	UptimeSeconds  int64  `json:"uptime_seconds"`
	ActiveSessions int    `json:"active_sessions"`
}

func healthHandler(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
		return json.Marshal(healthResponse{
			Status:         "ok",
			Version:        deps.Version,
			Build:          deps.Build,
			UptimeSeconds:  int64(time.Since(deps.StartTime).Seconds()),
			ActiveSessions: len(deps.Manager.ListSessions()),
		})
	}
}

// --- command history ---

type saveHistoryRequest struct {
	TabID   string          `json:"tab_id"`
	Entries []history.Entry `json:"entries"`
}

func saveHistoryHandler(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
		var req saveHistoryRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		if req.TabID == "" {
			return nil, fmt.Errorf("%w: tab_id is required", ErrInvalidPayload)
		}
		deps.History.Save(req.TabID, req.Entries)
		return nil, nil
	}
}

type loadHistoryRequest struct {
	TabID string `json:"tab_id"`
}

type loadHistoryResponse struct {
	Entries []history.Entry `json:"entries"`
}

func loadHistoryHandler(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
		var req loadHistoryRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		if req.TabID == "" {
			return nil, fmt.Errorf("%w: tab_id is required", ErrInvalidPayload)
		}
		entries := deps.History.Load(req.TabID)
		if entries == nil {
			entries = []history.Entry{}
		}
		return json.Marshal(loadHistoryResponse{Entries: entries})
	}
}

type clearHistoryRequest struct {
	TabID *string `json:"tab_id"` // null clears every tab
}

func clearHistoryHandler(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
		var req clearHistoryRequest
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &req); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
			}
		}
		if req.TabID == nil || *req.TabID == "" {
			deps.History.ClearAll()
		} else {
			deps.History.Clear(*req.TabID)
		}
		return nil, nil
	}
}

// --- suggestions ---

type suggestionsResponse struct {
	Suggestions []suggest.Suggestion `json:"suggestions"`
}

func getSuggestionsHandler(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
		var req suggest.Request
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		if err := validators.ValidateSuggestRequest(req); err != nil {
			return nil, err
		}
		suggestions := deps.Suggest.Suggest(ctx, req)
		if suggestions == nil {
			suggestions = []suggest.Suggestion{}
		}
		return json.Marshal(suggestionsResponse{Suggestions: suggestions})
	}
}
