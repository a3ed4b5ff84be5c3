package history

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mselko/termhub/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.NewDB(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestServiceWarmRestoresSnapshots(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	exit := 0
	duration := int64(42)
	intercepted := true
	svc := NewService(NewStore(), db, discardLogger())
	svc.Save("tab-1", []Entry{
		{
			ID:          "e1",
			Timestamp:   base,
			Command:     "git status",
			Output:      "clean",
			ExitCode:    &exit,
			DurationMS:  &duration,
			Intercepted: &intercepted,
		},
		{ID: "e2", Timestamp: base.Add(time.Second), Command: "ls", Output: ""},
	})
	svc.Save("tab-2", []Entry{
		{ID: "e3", Timestamp: base.Add(2 * time.Second), Command: "pwd", Output: "/home"},
	})
	// Close drains the async snapshot writes.
	require.NoError(t, svc.Close())

	// Simulate a restart: fresh store, same database file.
	restored := NewService(NewStore(), db, discardLogger())
	defer restored.Close()
	require.NoError(t, restored.Warm(context.Background()))

	got := restored.Load("tab-1")
	require.Len(t, got, 2)
	assert.Equal(t, "e1", got[0].ID)
	assert.Equal(t, "git status", got[0].Command)
	assert.Equal(t, "clean", got[0].Output)
	assert.True(t, got[0].Timestamp.Equal(base), "timestamp=%v want=%v", got[0].Timestamp, base)
	require.NotNil(t, got[0].ExitCode)
	assert.Equal(t, 0, *got[0].ExitCode)
	require.NotNil(t, got[0].DurationMS)
	assert.Equal(t, int64(42), *got[0].DurationMS)
	require.NotNil(t, got[0].Intercepted)
	assert.True(t, *got[0].Intercepted)

	assert.Nil(t, got[1].ExitCode, "unset exit code must stay nil")
	assert.Nil(t, got[1].DurationMS)
	assert.Nil(t, got[1].Intercepted)

	require.Len(t, restored.Load("tab-2"), 1)
}

func TestServiceClearPersists(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	svc := NewService(NewStore(), db, discardLogger())
	svc.Save("tab-1", []Entry{{ID: "e1", Timestamp: base, Command: "ls"}})
	svc.Save("tab-2", []Entry{{ID: "e2", Timestamp: base, Command: "pwd"}})
	svc.Clear("tab-1")
	require.NoError(t, svc.Close())

	restored := NewService(NewStore(), db, discardLogger())
	defer restored.Close()
	require.NoError(t, restored.Warm(context.Background()))
	assert.Empty(t, restored.Load("tab-1"))
	assert.Len(t, restored.Load("tab-2"), 1)
}

func TestServiceClearAllPersists(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	svc := NewService(NewStore(), db, discardLogger())
	svc.Save("tab-1", []Entry{{ID: "e1", Timestamp: base, Command: "ls"}})
	svc.Save("tab-2", []Entry{{ID: "e2", Timestamp: base, Command: "pwd"}})
	svc.ClearAll()
	require.NoError(t, svc.Close())

	restored := NewService(NewStore(), db, discardLogger())
	defer restored.Close()
	require.NoError(t, restored.Warm(context.Background()))
	assert.Empty(t, restored.Load("tab-1"))
	assert.Empty(t, restored.Load("tab-2"))
}

func TestServiceSaveAssignsMissingIDs(t *testing.T) {
	svc := NewService(NewStore(), nil, discardLogger())
	defer svc.Close()

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	svc.Save("tab-1", []Entry{
		{Timestamp: base, Command: "make build"},
		{ID: "keep-me", Timestamp: base.Add(time.Second), Command: "make test"},
	})

	got := svc.Load("tab-1")
	require.Len(t, got, 2)
	assert.NotEmpty(t, got[0].ID)
	assert.Equal(t, "keep-me", got[1].ID)
}

func TestServiceWithoutDatabase(t *testing.T) {
	svc := NewService(NewStore(), nil, discardLogger())
	defer svc.Close()

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	svc.Save("tab-1", []Entry{{ID: "e1", Timestamp: base, Command: "git log"}})

	assert.Len(t, svc.Load("tab-1"), 1)
	assert.Equal(t, []string{"git log"}, svc.Search("git", 0))
	assert.NoError(t, svc.Warm(context.Background()))
}
