package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// HistoryDB records which feed items have already been collected and the
// outcome of past export runs, so refetches and re-exports stay incremental.
type HistoryDB struct {
	db *sql.DB
}

// OpenHistory opens or creates the history database at the given path.
func OpenHistory(path string) (*HistoryDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createHistorySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}

	return &HistoryDB{db: db}, nil
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func createHistorySchema(db *sql.DB) error {
	schema := `
		-- Feed items already collected, keyed per source
		CREATE TABLE IF NOT EXISTS seen_items (
			source TEXT NOT NULL,
			item_id TEXT NOT NULL,
			title TEXT,
			seen_at INTEGER NOT NULL,
			PRIMARY KEY (source, item_id)
		);

		-- Outcome of past export runs
		CREATE TABLE IF NOT EXISTS export_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at INTEGER NOT NULL,
			total INTEGER NOT NULL,
			created INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			failed INTEGER NOT NULL
		);
	`

	_, err := db.Exec(schema)
	return err
}

// Seen reports whether the item has been collected before.
func (h *HistoryDB) Seen(source, itemID string) (bool, error) {
	if itemID == "" {
		return false, nil
	}
	var one int
	err := h.db.QueryRow(
		"SELECT 1 FROM seen_items WHERE source = ? AND item_id = ?",
		source, itemID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying seen items: %w", err)
	}
	return true, nil
}

// MarkSeen records that the item has been collected. Re-marking is a no-op.
func (h *HistoryDB) MarkSeen(source, itemID, title string, at time.Time) error {
	if itemID == "" {
		return nil
	}
	_, err := h.db.Exec(
		"INSERT OR IGNORE INTO seen_items (source, item_id, title, seen_at) VALUES (?, ?, ?, ?)",
		source, itemID, title, at.Unix(),
	)
	if err != nil {
		return fmt.Errorf("marking item seen: %w", err)
	}
	return nil
}

// PruneSeenBefore deletes seen-item records older than the cutoff and returns
// the number removed.
func (h *HistoryDB) PruneSeenBefore(cutoff time.Time) (int, error) {
	result, err := h.db.Exec("DELETE FROM seen_items WHERE seen_at < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("pruning seen items: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned items: %w", err)
	}
	return int(n), nil
}

// RecordExportRun stores the outcome of one export run.
func (h *HistoryDB) RecordExportRun(startedAt time.Time, total, created, skipped, failed int) error {
	_, err := h.db.Exec(
		"INSERT INTO export_runs (started_at, total, created, skipped, failed) VALUES (?, ?, ?, ?, ?)",
		startedAt.Unix(), total, created, skipped, failed,
	)
	if err != nil {
		return fmt.Errorf("recording export run: %w", err)
	}
	return nil
}

// ExportRun is one recorded export outcome.
type ExportRun struct {
	StartedAt time.Time `json:"started_at"`
	Total     int       `json:"total"`
	Created   int       `json:"created"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
}

// RecentExportRuns returns up to limit export runs, newest first.
func (h *HistoryDB) RecentExportRuns(limit int) ([]ExportRun, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := h.db.Query(
		"SELECT started_at, total, created, skipped, failed FROM export_runs ORDER BY started_at DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying export runs: %w", err)
	}
	defer rows.Close()

	var runs []ExportRun
	for rows.Next() {
		var run ExportRun
		var ts int64
		if err := rows.Scan(&ts, &run.Total, &run.Created, &run.Skipped, &run.Failed); err != nil {
			return nil, fmt.Errorf("scanning export run: %w", err)
		}
		run.StartedAt = time.Unix(ts, 0).UTC()
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
