package handler

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/t77yq/crontab/internal/executor"
)

// DBOperationPayload represents the payload for database operation jobs
type DBOperationPayload struct {
	Query string        `json:"query"`
	Args  []interface{} `json:"args"`
}

// DatabaseOperationHandler runs SQL against the crontab database.
// "DatabaseOperation" and "DatabaseOperation@exec" run a statement,
// "DatabaseOperation@query" runs a query and logs the rows.
type DatabaseOperationHandler struct {
	logger *zap.Logger
	db     *sql.DB
}

// NewDatabaseOperationHandler creates a new database operation handler
func NewDatabaseOperationHandler(logger *zap.Logger, db *sql.DB) *DatabaseOperationHandler {
	return &DatabaseOperationHandler{
		logger: logger,
		db:     db,
	}
}

// Fire runs the payload's statement
func (h *DatabaseOperationHandler) Fire(ctx context.Context, p executor.Payload) error {
	_, err := h.Exec(ctx, p)
	return err
}

// Methods implements executor.MethodSet
func (h *DatabaseOperationHandler) Methods() map[string]executor.Method {
	return map[string]executor.Method{
		"exec": func(ctx context.Context, p executor.Payload) error {
			_, err := h.Exec(ctx, p)
			return err
		},
		"query": func(ctx context.Context, p executor.Payload) error {
			_, err := h.Query(ctx, p)
			return err
		},
	}
}

// Exec runs a statement and returns the number of affected rows
func (h *DatabaseOperationHandler) Exec(ctx context.Context, p executor.Payload) (int64, error) {
	payload, err := h.decode(p)
	if err != nil {
		return 0, err
	}

	result, err := h.db.ExecContext(ctx, payload.Query, payload.Args...)
	if err != nil {
		return 0, fmt.Errorf("failed to execute statement: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	h.logger.Info("Executed database statement",
		zap.String("query", payload.Query),
		zap.Int64("affected_rows", affected))
	return affected, nil
}

// Query runs a query and returns its rows as column maps
func (h *DatabaseOperationHandler) Query(ctx context.Context, p executor.Payload) ([]map[string]interface{}, error) {
	payload, err := h.decode(p)
	if err != nil {
		return nil, err
	}

	rows, err := h.db.QueryContext(ctx, payload.Query, payload.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	var results []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		for i := range values {
			values[i] = new(interface{})
		}

		if err := rows.Scan(values...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]interface{}, len(columns))
		for i, column := range columns {
			row[column] = *(values[i].(*interface{}))
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	h.logger.Info("Executed database query",
		zap.String("query", payload.Query),
		zap.Int("rows", len(results)))
	return results, nil
}

func (h *DatabaseOperationHandler) decode(p executor.Payload) (*DBOperationPayload, error) {
	var payload DBOperationPayload
	if err := p.Decode(&payload); err != nil {
		return nil, err
	}
	if payload.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	return &payload, nil
}
