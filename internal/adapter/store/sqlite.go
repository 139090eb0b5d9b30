// Package store persists run history.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"content-crew/internal/domain"
)

const defaultListLimit = 20

// SQLiteRunStore implements domain.RunStore using SQLite.
type SQLiteRunStore struct {
	db *sql.DB
}

var _ domain.RunStore = (*SQLiteRunStore)(nil)

// NewSQLiteRunStore opens (or creates) a SQLite database at dbPath and runs
// the schema migration. The parent directory is created when missing.
func NewSQLiteRunStore(dbPath string) (*SQLiteRunStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create run db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open run db: %w", err)
	}
	// WAL mode for better concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate run db: %w", err)
	}
	return &SQLiteRunStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id           TEXT PRIMARY KEY,
			start_agent  TEXT NOT NULL,
			last_agent   TEXT NOT NULL DEFAULT '',
			input        TEXT NOT NULL,
			final_output TEXT NOT NULL DEFAULT '',
			status       TEXT NOT NULL,
			error_code   TEXT NOT NULL DEFAULT '',
			error        TEXT NOT NULL DEFAULT '',
			turns        INTEGER NOT NULL DEFAULT 0,
			total_tokens INTEGER NOT NULL DEFAULT 0,
			started_at   TEXT NOT NULL,
			finished_at  TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs (started_at);
	`)
	return err
}

// Close closes the underlying database connection.
func (s *SQLiteRunStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts rec, replacing any earlier record with the same ID.
func (s *SQLiteRunStore) SaveRun(ctx context.Context, rec domain.RunRecord) error {
	if rec.ID == "" {
		return domain.NewDomainError("RunStore.SaveRun", domain.ErrInvalidInput, "empty run id")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, start_agent, last_agent, input, final_output, status, error_code, error,
			turns, total_tokens, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_agent = excluded.last_agent,
			final_output = excluded.final_output,
			status = excluded.status,
			error_code = excluded.error_code,
			error = excluded.error,
			turns = excluded.turns,
			total_tokens = excluded.total_tokens,
			finished_at = excluded.finished_at`,
		rec.ID, rec.StartAgent, rec.LastAgent, rec.Input, rec.FinalOutput, rec.Status,
		string(rec.ErrorCode), rec.Error, rec.Turns, rec.TotalTokens,
		formatTime(rec.StartedAt), formatTime(rec.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w: %w", rec.ID, domain.ErrRunStore, err)
	}
	return nil
}

func (s *SQLiteRunStore) GetRun(ctx context.Context, id string) (*domain.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewDomainError("RunStore.GetRun", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w: %w", id, domain.ErrRunStore, err)
	}
	return rec, nil
}

// ListRuns returns the most recent runs first. A non-positive limit uses
// the default of 20.
func (s *SQLiteRunStore) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs ORDER BY started_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w: %w", domain.ErrRunStore, err)
	}
	defer rows.Close()

	var runs []domain.RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w: %w", domain.ErrRunStore, err)
		}
		runs = append(runs, *rec)
	}
	return runs, rows.Err()
}

const runColumns = `id, start_agent, last_agent, input, final_output, status, error_code, error,
	turns, total_tokens, started_at, finished_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*domain.RunRecord, error) {
	var rec domain.RunRecord
	var code, startedStr, finishedStr string
	if err := row.Scan(&rec.ID, &rec.StartAgent, &rec.LastAgent, &rec.Input, &rec.FinalOutput,
		&rec.Status, &code, &rec.Error, &rec.Turns, &rec.TotalTokens, &startedStr, &finishedStr); err != nil {
		return nil, err
	}
	rec.ErrorCode = domain.ErrorCode(code)
	rec.StartedAt, _ = time.Parse(time.RFC3339Nano, startedStr)
	rec.FinishedAt, _ = time.Parse(time.RFC3339Nano, finishedStr)
	return &rec, nil
}

// timeLayout is fixed width so stored timestamps order lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
