package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection holding command-history snapshots.
type DB struct {
	conn *sql.DB
}

// NewDB opens/creates a SQLite database at the given path and initializes
// the schema. Pass ":memory:" for an in-memory database (useful for tests).
func NewDB(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// initSchema creates the necessary tables if they don't exist.
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS history_entries (
		tab_id TEXT NOT NULL,
		entry_id TEXT NOT NULL,
		ts INTEGER NOT NULL,
		command TEXT NOT NULL,
		output TEXT NOT NULL,
		exit_code INTEGER,
		duration_ms INTEGER,
		intercepted INTEGER,
		position INTEGER NOT NULL,
		PRIMARY KEY (tab_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_history_tab ON history_entries(tab_id);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// ReplaceTab swaps a tab's persisted snapshot for the given rows in one
// transaction.
func (db *DB) ReplaceTab(ctx context.Context, tabID string, rows []HistoryRow) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM history_entries WHERE tab_id = ?`, tabID); err != nil {
		return fmt.Errorf("failed to clear tab %s: %w", tabID, err)
	}

	insert := `
		INSERT INTO history_entries
			(tab_id, entry_id, ts, command, output, exit_code, duration_ms, intercepted, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, row := range rows {
		var intercepted any
		if row.Intercepted != nil {
			if *row.Intercepted {
				intercepted = 1
			} else {
				intercepted = 0
			}
		}
		_, err := tx.ExecContext(ctx, insert,
			row.TabID,
			row.EntryID,
			row.Timestamp.UnixMilli(),
			row.Command,
			row.Output,
			row.ExitCode,
			row.DurationMS,
			intercepted,
			row.Position,
		)
		if err != nil {
			return fmt.Errorf("failed to insert history entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// LoadTab returns a tab's persisted snapshot in insertion order.
func (db *DB) LoadTab(ctx context.Context, tabID string) ([]HistoryRow, error) {
	query := `
		SELECT tab_id, entry_id, ts, command, output, exit_code, duration_ms, intercepted, position
		FROM history_entries
		WHERE tab_id = ?
		ORDER BY position ASC
	`

	rows, err := db.conn.QueryContext(ctx, query, tabID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tab %s: %w", tabID, err)
	}
	defer rows.Close()

	return db.scanRows(rows)
}

// Tabs lists every tab id with a persisted snapshot.
func (db *DB) Tabs(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT DISTINCT tab_id FROM history_entries ORDER BY tab_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tabs: %w", err)
	}
	defer rows.Close()

	var tabs []string
	for rows.Next() {
		var tab string
		if err := rows.Scan(&tab); err != nil {
			return nil, fmt.Errorf("failed to scan tab id: %w", err)
		}
		tabs = append(tabs, tab)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tab rows: %w", err)
	}
	return tabs, nil
}

// ClearTab deletes a tab's persisted snapshot.
func (db *DB) ClearTab(ctx context.Context, tabID string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM history_entries WHERE tab_id = ?`, tabID); err != nil {
		return fmt.Errorf("failed to clear tab %s: %w", tabID, err)
	}
	return nil
}

// ClearAll deletes every persisted snapshot.
func (db *DB) ClearAll(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM history_entries`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// scanRows is a helper that scans query results into HistoryRow structs.
func (db *DB) scanRows(rows *sql.Rows) ([]HistoryRow, error) {
	var out []HistoryRow

	for rows.Next() {
		var row HistoryRow
		var tsMilli int64
		var exitCode, durationMS, intercepted sql.NullInt64

		err := rows.Scan(
			&row.TabID,
			&row.EntryID,
			&tsMilli,
			&row.Command,
			&row.Output,
			&exitCode,
			&durationMS,
			&intercepted,
			&row.Position,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}

		row.Timestamp = time.UnixMilli(tsMilli).UTC()
		if exitCode.Valid {
			val := int(exitCode.Int64)
			row.ExitCode = &val
		}
		if durationMS.Valid {
			val := durationMS.Int64
			row.DurationMS = &val
		}
		if intercepted.Valid {
			val := intercepted.Int64 != 0
			row.Intercepted = &val
		}

		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history rows: %w", err)
	}

	return out, nil
}
