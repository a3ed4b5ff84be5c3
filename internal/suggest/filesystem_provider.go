package suggest

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mselko/termhub/internal/session"
)

// FilesystemProvider completes file and directory paths relative to the
// session's working directory.
type FilesystemProvider struct {
	sessionMgr *session.Manager
}

// NewFilesystemProvider creates a filesystem suggestion provider.
func NewFilesystemProvider(sessionMgr *session.Manager) *FilesystemProvider {
	return &FilesystemProvider{sessionMgr: sessionMgr}
}

// Name returns the provider name.
func (p *FilesystemProvider) Name() string {
	return "filesystem"
}

// GetSuggestions completes the input token against directory contents.
func (p *FilesystemProvider) GetSuggestions(ctx context.Context, input string, cursorPos int, sessionID string) ([]Suggestion, error) {
	if input == "" {
		return nil, nil
	}

	// Resolve relative paths against the session's cwd when known.
	cwd := homeDir()
	if sessionID != "" {
		if view, err := p.sessionMgr.GetSession(sessionID); err == nil {
			cwd = view.Cwd
		}
	}

	var basePath, prefix string
	switch {
	case filepath.IsAbs(input):
		basePath = filepath.Dir(input)
		prefix = filepath.Base(input)
	case strings.HasPrefix(input, "~"):
		expanded := strings.Replace(input, "~", homeDir(), 1)
		basePath = filepath.Dir(expanded)
		prefix = filepath.Base(expanded)
	case strings.Contains(input, string(os.PathSeparator)):
		basePath = filepath.Join(cwd, filepath.Dir(input))
		prefix = filepath.Base(input)
	default:
		basePath = cwd
		prefix = input
	}

	entries, err := os.ReadDir(basePath)
	if err != nil {
		return nil, nil // unreadable directory means no suggestions
	}

	var suggestions []Suggestion
	lowerPrefix := strings.ToLower(prefix)

	for _, entry := range entries {
		name := entry.Name()
		if prefix != "" && !strings.HasPrefix(strings.ToLower(name), lowerPrefix) {
			continue
		}

		completion := completionText(input, basePath, name)
		if entry.IsDir() {
			completion += "/"
		}

		suggestions = append(suggestions, Suggestion{
			Text:   completion,
			Source: "filesystem",
			Score:  filesystemScore(name, prefix, entry.IsDir()),
		})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].Text < suggestions[j].Text
	})
	if len(suggestions) > 30 {
		suggestions = suggestions[:30]
	}
	return suggestions, nil
}

// completionText rebuilds the suggestion in the same form the user typed
// the path: absolute stays absolute, ~ stays ~, bare names stay bare.
func completionText(input, basePath, name string) string {
	switch {
	case filepath.IsAbs(input):
		return filepath.Join(basePath, name)
	case strings.HasPrefix(input, "~"):
		rel := strings.TrimPrefix(basePath, homeDir())
		if rel == "" {
			return "~/" + name
		}
		return "~" + rel + "/" + name
	case strings.Contains(input, string(os.PathSeparator)):
		return filepath.Join(filepath.Dir(input), name)
	default:
		return name
	}
}

// filesystemScore favors directories and close prefix matches, and
// demotes hidden entries unless the user typed a dot.
func filesystemScore(name, prefix string, isDir bool) float32 {
	var score float32 = 0.5

	if isDir {
		score += 0.1
	}
	if prefix != "" && strings.HasPrefix(strings.ToLower(name), strings.ToLower(prefix)) {
		matchRatio := float32(len(prefix)) / float32(len(name))
		score += matchRatio * 0.3
	}
	if strings.HasPrefix(name, ".") && !strings.HasPrefix(prefix, ".") {
		score -= 0.2
	}
	return score
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/"
	}
	return home
}
