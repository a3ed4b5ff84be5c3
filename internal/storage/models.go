package storage

import (
	"time"
)

// HistoryRow is one persisted history entry. Position preserves the
// insertion order of the tab's snapshot.
type HistoryRow struct {
	TabID       string
	EntryID     string
	Timestamp   time.Time
	Command     string
	Output      string
	ExitCode    *int
	DurationMS  *int64
	Intercepted *bool
	Position    int
}
