package storage

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/t77yq/crontab/internal/model"
)

const jobColumns = `id, name, handler, payload, interval_sec, status,
	next_execute_time, last_execute_time, create_time, update_time`

// SQLiteJobStore implements the crontab job table on SQLite
type SQLiteJobStore struct {
	logger *zap.Logger
	db     *sql.DB
	table  string
}

// NewSQLiteJobStore creates the job store and makes sure its table exists
func NewSQLiteJobStore(logger *zap.Logger, db *sql.DB, table string) (*SQLiteJobStore, error) {
	if err := validateTableName(table); err != nil {
		return nil, err
	}

	store := &SQLiteJobStore{
		logger: logger.Named("job-store"),
		db:     db,
		table:  table,
	}

	if err := store.initialize(); err != nil {
		return nil, err
	}
	return store, nil
}

// initialize creates the job table if it doesn't exist
func (s *SQLiteJobStore) initialize() error {
	_, err := s.db.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			handler TEXT NOT NULL,
			payload TEXT,
			interval_sec INTEGER NOT NULL DEFAULT 60,
			status INTEGER NOT NULL DEFAULT 1,
			next_execute_time TEXT NOT NULL,
			last_execute_time TEXT,
			create_time TEXT NOT NULL,
			update_time TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_due ON %[1]s(status, next_execute_time);
	`, s.table))
	if err != nil {
		return fmt.Errorf("failed to initialize job table: %w", err)
	}
	return nil
}

// Table returns the name of the job table
func (s *SQLiteJobStore) Table() string {
	return s.table
}

// FetchDue returns every active job whose next_execute_time is at or before now,
// oldest due time first.
func (s *SQLiteJobStore) FetchDue(ctx context.Context, now time.Time) ([]*model.Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s
		WHERE status = ? AND next_execute_time <= ?
		ORDER BY next_execute_time ASC, create_time ASC, id ASC`, jobColumns, s.table)

	rows, err := s.db.QueryContext(ctx, query, model.JobStatusActive, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due jobs: %w", err)
	}
	defer rows.Close()

	return scanJobs(rows)
}

// Reschedule records an attempted run: last_execute_time becomes now and
// next_execute_time becomes next, whatever the outcome of the run was.
func (s *SQLiteJobStore) Reschedule(ctx context.Context, id string, now, next time.Time) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET
			last_execute_time = ?,
			next_execute_time = ?,
			update_time = ?
		WHERE id = ?`, s.table),
		formatTime(now),
		formatTime(next),
		formatTime(now),
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to reschedule job %s: %w", id, err)
	}
	return nil
}

// Enqueue inserts a new active job that becomes due on the next poll cycle
func (s *SQLiteJobStore) Enqueue(ctx context.Context, name, handler string, payload interface{}, intervalSec int64) (string, error) {
	return s.EnqueueAt(ctx, name, handler, payload, intervalSec, time.Now())
}

// EnqueueAt inserts a new active job with next_execute_time set to at
func (s *SQLiteJobStore) EnqueueAt(ctx context.Context, name, handler string, payload interface{}, intervalSec int64, at time.Time) (string, error) {
	if strings.TrimSpace(handler) == "" {
		return "", ErrEmptyHandler
	}
	if intervalSec <= 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidInterval, intervalSec)
	}

	data, err := EncodePayload(payload)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (
			id, name, handler, payload, interval_sec, status,
			next_execute_time, create_time, update_time
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table),
		id,
		name,
		handler,
		string(data),
		intervalSec,
		model.JobStatusActive,
		formatTime(at),
		formatTime(at),
		formatTime(at),
	)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue job: %w", err)
	}

	s.logger.Info("Job enqueued",
		zap.String("id", id),
		zap.String("name", name),
		zap.String("handler", handler),
		zap.Int64("interval_sec", intervalSec))

	return id, nil
}

// Get retrieves a job by ID
func (s *SQLiteJobStore) Get(ctx context.Context, id string) (*model.Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, jobColumns, s.table)

	job, err := scanJob(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// List returns every job in the table ordered by next_execute_time
func (s *SQLiteJobStore) List(ctx context.Context) ([]*model.Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY next_execute_time ASC, id ASC`, jobColumns, s.table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	return scanJobs(rows)
}

// EncodePayload serializes a payload for the payload column. Raw JSON is
// stored as given, nil becomes an empty object and anything else is
// marshaled without HTML escaping so non-ASCII text stays readable.
func EncodePayload(payload interface{}) ([]byte, error) {
	switch p := payload.(type) {
	case nil:
		return []byte("{}"), nil
	case json.RawMessage:
		if len(p) == 0 {
			return []byte("{}"), nil
		}
		if !json.Valid(p) {
			return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidPayload)
		}
		return p, nil
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJobs(rows *sql.Rows) ([]*model.Job, error) {
	var jobs []*model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return jobs, nil
}

func scanJob(row rowScanner) (*model.Job, error) {
	var job model.Job
	var payload, lastExecute sql.NullString
	var nextExecute, created, updated string

	err := row.Scan(
		&job.ID,
		&job.Name,
		&job.Handler,
		&payload,
		&job.IntervalSec,
		&job.Status,
		&nextExecute,
		&lastExecute,
		&created,
		&updated,
	)
	if err != nil {
		return nil, err
	}

	if payload.Valid && payload.String != "" {
		job.Payload = json.RawMessage(payload.String)
	}

	if job.NextExecuteTime, err = parseTime(nextExecute); err != nil {
		return nil, fmt.Errorf("failed to parse next_execute_time for job %s: %w", job.ID, err)
	}
	if job.CreateTime, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("failed to parse create_time for job %s: %w", job.ID, err)
	}
	if job.UpdateTime, err = parseTime(updated); err != nil {
		return nil, fmt.Errorf("failed to parse update_time for job %s: %w", job.ID, err)
	}
	if lastExecute.Valid && lastExecute.String != "" {
		t, err := parseTime(lastExecute.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse last_execute_time for job %s: %w", job.ID, err)
		}
		job.LastExecuteTime = &t
	}

	return &job, nil
}
