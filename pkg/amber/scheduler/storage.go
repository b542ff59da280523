// Package scheduler – storage.go persists jobs to SQLite.
package scheduler

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const jobsSchema = `
CREATE TABLE IF NOT EXISTS jobs (
    id          TEXT PRIMARY KEY,
    schedule    TEXT NOT NULL,
    type        TEXT NOT NULL DEFAULT 'cron',
    prompt      TEXT NOT NULL,
    channel     TEXT DEFAULT '',
    chat_id     TEXT DEFAULT '',
    enabled     INTEGER DEFAULT 1,
    created_by  TEXT DEFAULT '',
    created_at  TEXT NOT NULL,
    last_run_at TEXT,
    last_error  TEXT DEFAULT '',
    run_count   INTEGER DEFAULT 0
);
`

// SQLiteStorage persists jobs in a SQLite database.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (and migrates) the job database at path.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(jobsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating jobs table: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Save inserts or updates a job.
func (s *SQLiteStorage) Save(job *Job) error {
	var lastRun any
	if job.LastRunAt != nil {
		lastRun = job.LastRunAt.Format(time.RFC3339)
	}
	_, err := s.db.Exec(`
		INSERT INTO jobs (id, schedule, type, prompt, channel, chat_id, enabled,
			created_by, created_at, last_run_at, last_error, run_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			schedule = excluded.schedule,
			type = excluded.type,
			prompt = excluded.prompt,
			channel = excluded.channel,
			chat_id = excluded.chat_id,
			enabled = excluded.enabled,
			last_run_at = excluded.last_run_at,
			last_error = excluded.last_error,
			run_count = excluded.run_count`,
		job.ID, job.Schedule, job.Type, job.Prompt, job.Channel, job.ChatID,
		job.Enabled, job.CreatedBy, job.CreatedAt.Format(time.RFC3339),
		lastRun, job.LastError, job.RunCount)
	if err != nil {
		return fmt.Errorf("saving job %s: %w", job.ID, err)
	}
	return nil
}

// Delete removes a job.
func (s *SQLiteStorage) Delete(id string) error {
	if _, err := s.db.Exec(`DELETE FROM jobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting job %s: %w", id, err)
	}
	return nil
}

// LoadAll returns every persisted job.
func (s *SQLiteStorage) LoadAll() ([]*Job, error) {
	rows, err := s.db.Query(`
		SELECT id, schedule, type, prompt, channel, chat_id, enabled,
			created_by, created_at, last_run_at, last_error, run_count
		FROM jobs`)
	if err != nil {
		return nil, fmt.Errorf("loading jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		var (
			job       Job
			createdAt string
			lastRun   sql.NullString
		)
		if err := rows.Scan(&job.ID, &job.Schedule, &job.Type, &job.Prompt,
			&job.Channel, &job.ChatID, &job.Enabled, &job.CreatedBy,
			&createdAt, &lastRun, &job.LastError, &job.RunCount); err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			job.CreatedAt = t
		}
		if lastRun.Valid {
			if t, err := time.Parse(time.RFC3339, lastRun.String); err == nil {
				job.LastRunAt = &t
			}
		}
		jobs = append(jobs, &job)
	}
	return jobs, rows.Err()
}
