package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/t77yq/crontab/internal/model"
)

// runTimeLayout keeps fixed-width nanoseconds so runs within one cycle
// still sort by start time.
const runTimeLayout = "2006-01-02 15:04:05.000000000"

// RunHistoryStorage defines the interface for run history storage
type RunHistoryStorage interface {
	// Record stores a finished run
	Record(ctx context.Context, run *model.Run) error

	// List retrieves runs newest first; an empty jobID lists all jobs
	List(ctx context.Context, jobID string, offset, limit int) ([]*model.Run, error)

	// DeleteBefore deletes runs started before the specified time
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// SQLiteRunHistory implements RunHistoryStorage using SQLite
type SQLiteRunHistory struct {
	logger *zap.Logger
	db     *sql.DB
	table  string
}

// NewSQLiteRunHistory creates the history table "<jobTable>_run"
func NewSQLiteRunHistory(logger *zap.Logger, db *sql.DB, jobTable string) (*SQLiteRunHistory, error) {
	if err := validateTableName(jobTable); err != nil {
		return nil, err
	}

	history := &SQLiteRunHistory{
		logger: logger.Named("run-history"),
		db:     db,
		table:  jobTable + "_run",
	}

	if err := history.initialize(); err != nil {
		return nil, err
	}
	return history, nil
}

// initialize creates the necessary tables if they don't exist
func (s *SQLiteRunHistory) initialize() error {
	_, err := s.db.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id TEXT PRIMARY KEY,
			job_id TEXT NOT NULL,
			job_name TEXT NOT NULL,
			handler TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			duration INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_job_id ON %[1]s(job_id);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_started_at ON %[1]s(started_at);
	`, s.table))
	if err != nil {
		return fmt.Errorf("failed to initialize run history: %w", err)
	}
	return nil
}

// Record implements RunHistoryStorage.Record
func (s *SQLiteRunHistory) Record(ctx context.Context, run *model.Run) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (
			id, job_id, job_name, handler, status, error, started_at, finished_at, duration
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table),
		run.ID,
		run.JobID,
		run.JobName,
		run.Handler,
		string(run.Status),
		sql.NullString{String: run.Error, Valid: run.Error != ""},
		run.StartedAt.UTC().Format(runTimeLayout),
		run.FinishedAt.UTC().Format(runTimeLayout),
		int64(run.Duration),
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// List implements RunHistoryStorage.List
func (s *SQLiteRunHistory) List(ctx context.Context, jobID string, offset, limit int) ([]*model.Run, error) {
	query := fmt.Sprintf(`SELECT id, job_id, job_name, handler, status, error, started_at, finished_at, duration
		FROM %s`, s.table)
	args := make([]interface{}, 0, 3)

	if jobID != "" {
		query += " WHERE job_id = ?"
		args = append(args, jobID)
	}

	query += " ORDER BY started_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list run history: %w", err)
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		run := &model.Run{}
		var status, startedAt, finishedAt string
		var errorStr sql.NullString
		var durationNanos int64

		err := rows.Scan(
			&run.ID,
			&run.JobID,
			&run.JobName,
			&run.Handler,
			&status,
			&errorStr,
			&startedAt,
			&finishedAt,
			&durationNanos,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		run.Status = model.RunStatus(status)
		if errorStr.Valid {
			run.Error = errorStr.String
		}
		if run.StartedAt, err = time.ParseInLocation(runTimeLayout, startedAt, time.UTC); err != nil {
			return nil, fmt.Errorf("failed to parse started_at for run %s: %w", run.ID, err)
		}
		if run.FinishedAt, err = time.ParseInLocation(runTimeLayout, finishedAt, time.UTC); err != nil {
			return nil, fmt.Errorf("failed to parse finished_at for run %s: %w", run.ID, err)
		}
		run.Duration = time.Duration(durationNanos)

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return runs, nil
}

// DeleteBefore implements RunHistoryStorage.DeleteBefore
func (s *SQLiteRunHistory) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE started_at < ?", s.table),
		before.UTC().Format(runTimeLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to delete run history: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	s.logger.Info("Deleted old run history records",
		zap.Time("before", before),
		zap.Int64("deleted", affected))

	return affected, nil
}
