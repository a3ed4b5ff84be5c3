package history

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Entry is one executed command with its captured output.
type Entry struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Command     string    `json:"command"`
	Output      string    `json:"output"`
	ExitCode    *int      `json:"exit_code,omitempty"`
	DurationMS  *int64    `json:"duration_ms,omitempty"`
	Intercepted *bool     `json:"intercepted,omitempty"`
}

// Store keeps per-tab command history in memory. Entries are ordered by
// insertion; save replaces a tab's whole sequence. Safe for concurrent
// use from any number of sessions.
type Store struct {
	mu   sync.Mutex
	tabs map[string][]Entry
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{tabs: make(map[string][]Entry)}
}

// Save replaces all entries for the tab. The input slice is copied, so
// callers may reuse it.
func (s *Store) Save(tabID string, entries []Entry) {
	copied := append([]Entry(nil), entries...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs[tabID] = copied
}

// Load returns an independent copy of the tab's entries, empty if the tab
// is unknown.
func (s *Store) Load(tabID string) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.tabs[tabID]...)
}

// Clear removes one tab's entries.
func (s *Store) Clear(tabID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tabs, tabID)
}

// ClearAll removes every tab.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs = make(map[string][]Entry)
}

// Tabs lists the tab ids currently holding entries.
func (s *Store) Tabs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	tabs := make([]string, 0, len(s.tabs))
	for tab := range s.tabs {
		tabs = append(tabs, tab)
	}
	return tabs
}

// Search returns up to limit commands across all tabs whose text starts
// with prefix (case-insensitive), newest first. Duplicates are kept; the
// caller decides how to collapse them.
func (s *Store) Search(prefix string, limit int) []string {
	lower := strings.ToLower(prefix)

	s.mu.Lock()
	var hits []Entry
	for _, entries := range s.tabs {
		for _, e := range entries {
			if strings.HasPrefix(strings.ToLower(e.Command), lower) {
				hits = append(hits, e)
			}
		}
	}
	s.mu.Unlock()

	sort.Slice(hits, func(i, j int) bool {
		return hits[i].Timestamp.After(hits[j].Timestamp)
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	commands := make([]string, len(hits))
	for i, e := range hits {
		commands[i] = e.Command
	}
	return commands
}
