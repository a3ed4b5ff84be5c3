package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mselko/termhub/internal/storage"
)

// Service couples the authoritative in-memory store with optional SQLite
// snapshot persistence. Writes to disk are async so PTY-path callers
// never block on the database.
type Service struct {
	store  *Store
	db     *storage.DB // nil disables persistence
	logger *slog.Logger

	writeCh  chan snapshotJob
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// snapshotJob mirrors one store mutation to disk.
type snapshotJob struct {
	op      string // "save", "clear", "clear_all"
	tabID   string
	entries []Entry
}

// NewService wires the store to db. A nil db keeps history purely
// in-memory. The background writer starts immediately.
func NewService(store *Store, db *storage.DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	svc := &Service{
		store:   store,
		db:      db,
		logger:  logger,
		writeCh: make(chan snapshotJob, 100), // buffered to handle bursts
		stopCh:  make(chan struct{}),
	}
	if db != nil {
		svc.wg.Add(1)
		go svc.writeWorker()
	}
	return svc
}

// Save replaces a tab's entries and schedules the snapshot for disk.
// Entries arriving without an id are assigned one.
func (s *Service) Save(tabID string, entries []Entry) {
	for i := range entries {
		if entries[i].ID == "" {
			entries[i].ID = uuid.New().String()
		}
	}
	s.store.Save(tabID, entries)
	s.enqueue(snapshotJob{op: "save", tabID: tabID, entries: s.store.Load(tabID)})
}

// Load returns the tab's entries from the in-memory store.
func (s *Service) Load(tabID string) []Entry {
	return s.store.Load(tabID)
}

// Search returns up to limit commands matching prefix, newest first.
func (s *Service) Search(prefix string, limit int) []string {
	return s.store.Search(prefix, limit)
}

// Clear drops one tab, in memory and on disk.
func (s *Service) Clear(tabID string) {
	s.store.Clear(tabID)
	s.enqueue(snapshotJob{op: "clear", tabID: tabID})
}

// ClearAll drops every tab, in memory and on disk.
func (s *Service) ClearAll() {
	s.store.ClearAll()
	s.enqueue(snapshotJob{op: "clear_all"})
}

// Warm loads every persisted tab snapshot into the in-memory store. Call
// once at startup, before the store is reachable from handlers.
func (s *Service) Warm(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	tabs, err := s.db.Tabs(ctx)
	if err != nil {
		return err
	}
	for _, tab := range tabs {
		rows, err := s.db.LoadTab(ctx, tab)
		if err != nil {
			return err
		}
		s.store.Save(tab, rowsToEntries(rows))
	}
	return nil
}

func (s *Service) enqueue(job snapshotJob) {
	if s.db == nil {
		return
	}
	select {
	case s.writeCh <- job:
	default:
		s.logger.Warn("history write buffer full, dropping snapshot", "tab_id", job.tabID)
	}
}

// writeWorker applies snapshot jobs in the background.
func (s *Service) writeWorker() {
	defer s.wg.Done()

	for {
		select {
		case job := <-s.writeCh:
			s.apply(job)
		case <-s.stopCh:
			// Drain remaining writes before exiting
			for {
				select {
				case job := <-s.writeCh:
					s.apply(job)
				default:
					return
				}
			}
		}
	}
}

func (s *Service) apply(job snapshotJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	switch job.op {
	case "save":
		err = s.db.ReplaceTab(ctx, job.tabID, entriesToRows(job.tabID, job.entries))
	case "clear":
		err = s.db.ClearTab(ctx, job.tabID)
	case "clear_all":
		err = s.db.ClearAll(ctx)
	}
	if err != nil {
		s.logger.Error("history snapshot write failed",
			"op", job.op, "tab_id", job.tabID, "error", err)
	}
}

// Close drains pending snapshot writes and stops the worker.
func (s *Service) Close() error {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
	})
	return nil
}

func entriesToRows(tabID string, entries []Entry) []storage.HistoryRow {
	rows := make([]storage.HistoryRow, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, storage.HistoryRow{
			TabID:       tabID,
			EntryID:     e.ID,
			Timestamp:   e.Timestamp,
			Command:     e.Command,
			Output:      e.Output,
			ExitCode:    e.ExitCode,
			DurationMS:  e.DurationMS,
			Intercepted: e.Intercepted,
			Position:    i,
		})
	}
	return rows
}

func rowsToEntries(rows []storage.HistoryRow) []Entry {
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, Entry{
			ID:          row.EntryID,
			Timestamp:   row.Timestamp,
			Command:     row.Command,
			Output:      row.Output,
			ExitCode:    row.ExitCode,
			DurationMS:  row.DurationMS,
			Intercepted: row.Intercepted,
		})
	}
	return entries
}
