package suggest

import (
	"context"
	"log/slog"
	"sort"
	"strings"
)

// maxSuggestions caps the merged result so the UI never drowns.
const maxSuggestions = 50

// Suggestion is one completion candidate.
type Suggestion struct {
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Score  float32 `json:"score"`
}

// Request asks for completions of the token under the cursor.
type Request struct {
	Input     string `json:"input"`
	CursorPos int    `json:"cursor_pos"`
	SessionID string `json:"session_id,omitempty"`
}

// Provider is a suggestion source (history, filesystem, static, ...).
type Provider interface {
	GetSuggestions(ctx context.Context, input string, cursorPos int, sessionID string) ([]Suggestion, error)
	Name() string
}

// Service merges suggestions from all registered providers.
type Service struct {
	providers []Provider
	logger    *slog.Logger
}

// NewService creates a suggestion service over the given providers.
func NewService(logger *slog.Logger, providers ...Provider) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{providers: providers, logger: logger}
}

// Suggest collects suggestions from every provider for the token at the
// cursor, deduplicates them, and returns at most maxSuggestions sorted by
// score descending. A failing provider is skipped, not fatal.
func (s *Service) Suggest(ctx context.Context, req Request) []Suggestion {
	token := extractTokenAtCursor(req.Input, req.CursorPos)

	var all []Suggestion
	for _, provider := range s.providers {
		suggestions, err := provider.GetSuggestions(ctx, token, req.CursorPos, req.SessionID)
		if err != nil {
			s.logger.Warn("suggestion provider failed", "provider", provider.Name(), "error", err)
			continue
		}
		all = append(all, suggestions...)
	}

	deduped := deduplicate(all)
	if len(deduped) > maxSuggestions {
		deduped = deduped[:maxSuggestions]
	}
	return deduped
}

// extractTokenAtCursor returns the whitespace-delimited word containing
// the cursor, so providers complete just the relevant fragment.
func extractTokenAtCursor(input string, cursorPos int) string {
	if input == "" || cursorPos <= 0 || cursorPos > len(input) {
		return ""
	}

	start := cursorPos - 1
	for start > 0 && !isWhitespace(rune(input[start-1])) {
		start--
	}
	end := cursorPos
	for end < len(input) && !isWhitespace(rune(input[end])) {
		end++
	}
	return input[start:end]
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// deduplicate collapses suggestions with identical text, keeping the
// highest score, and re-sorts the survivors.
func deduplicate(suggestions []Suggestion) []Suggestion {
	seen := make(map[string]Suggestion)
	for _, s := range suggestions {
		if existing, ok := seen[s.Text]; !ok || s.Score > existing.Score {
			seen[s.Text] = s
		}
	}

	result := make([]Suggestion, 0, len(seen))
	for _, s := range seen {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].Text < result[j].Text
	})
	return result
}

// StaticProvider suggests common shell commands.
type StaticProvider struct{}

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{}
}

func (p *StaticProvider) Name() string {
	return "static"
}

var commonCommands = []string{
	"ls", "cd", "pwd", "cat", "grep", "find", "echo", "mkdir", "rm", "cp", "mv",
	"chmod", "chown", "ps", "kill", "top", "htop", "df", "du", "tar", "zip",
	"git", "docker", "npm", "yarn", "python", "node", "go", "cargo", "make",
}

func (p *StaticProvider) GetSuggestions(ctx context.Context, input string, cursorPos int, sessionID string) ([]Suggestion, error) {
	var suggestions []Suggestion
	lowerInput := strings.ToLower(input)

	for _, cmd := range commonCommands {
		if strings.HasPrefix(cmd, lowerInput) && cmd != input {
			score := float32(1.0)
			if lowerInput != "" {
				score = float32(len(lowerInput)) / float32(len(cmd))
			}
			suggestions = append(suggestions, Suggestion{
				Text:   cmd,
				Source: "static",
				Score:  score * 0.5, // below history and filesystem
			})
		}
	}
	return suggestions, nil
}
