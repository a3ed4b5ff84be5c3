package suggest

import (
	"context"
	"sort"
	"strings"

	"github.com/mselko/termhub/internal/history"
)

// HistoryProvider suggests previously executed commands.
type HistoryProvider struct {
	historySvc *history.Service
}

// NewHistoryProvider creates a history-backed suggestion provider.
func NewHistoryProvider(historySvc *history.Service) *HistoryProvider {
	return &HistoryProvider{historySvc: historySvc}
}

// Name returns the provider name.
func (p *HistoryProvider) Name() string {
	return "history"
}

// GetSuggestions returns history commands matching the input prefix,
// scored by recency and match quality.
func (p *HistoryProvider) GetSuggestions(ctx context.Context, input string, cursorPos int, sessionID string) ([]Suggestion, error) {
	if input == "" {
		return nil, nil
	}

	commands := p.historySvc.Search(input, 50)

	seen := make(map[string]struct{})
	var suggestions []Suggestion
	for i, cmd := range commands {
		if _, exists := seen[cmd]; exists {
			continue
		}
		seen[cmd] = struct{}{}

		// No point suggesting exactly what is already typed.
		if cmd == input {
			continue
		}

		suggestions = append(suggestions, Suggestion{
			Text:   cmd,
			Source: "history",
			Score:  historyScore(cmd, input, i, len(commands)),
		})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		return suggestions[i].Score > suggestions[j].Score
	})
	if len(suggestions) > 20 {
		suggestions = suggestions[:20]
	}
	return suggestions, nil
}

// historyScore weighs recency (index 0 is newest) and prefix match
// quality on top of a base that outranks static suggestions.
func historyScore(cmd, input string, index, total int) float32 {
	var score float32 = 0.7

	if total > 1 {
		recency := float32(total-index) / float32(total)
		score += recency * 0.15
	}

	if strings.HasPrefix(strings.ToLower(cmd), strings.ToLower(input)) {
		matchRatio := float32(len(input)) / float32(len(cmd))
		score += matchRatio * 0.1

		if strings.HasPrefix(cmd, input) {
			score += 0.05 // exact-case bonus
		}
	}
	return score
}
