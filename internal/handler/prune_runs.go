package handler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/t77yq/crontab/internal/executor"
	"github.com/t77yq/crontab/internal/storage"
)

// DefaultRunRetention is how long run history is kept by default
const DefaultRunRetention = 7 * 24 * time.Hour

// PruneRunsPayload represents the payload for run history pruning jobs
type PruneRunsPayload struct {
	OlderThanSec int64 `json:"older_than_sec"`
}

// PruneRunsHandler deletes old run history
type PruneRunsHandler struct {
	logger  *zap.Logger
	history storage.RunHistoryStorage
	now     func() time.Time
}

// NewPruneRunsHandler creates a new run history pruning handler
func NewPruneRunsHandler(logger *zap.Logger, history storage.RunHistoryStorage, now func() time.Time) *PruneRunsHandler {
	return &PruneRunsHandler{
		logger:  logger,
		history: history,
		now:     now,
	}
}

// Fire deletes runs started before now minus the retention
func (h *PruneRunsHandler) Fire(ctx context.Context, p executor.Payload) error {
	var payload PruneRunsPayload
	if err := p.Decode(&payload); err != nil {
		return err
	}

	retention := DefaultRunRetention
	if payload.OlderThanSec > 0 {
		retention = time.Duration(payload.OlderThanSec) * time.Second
	}

	_, err := h.history.DeleteBefore(ctx, h.now().Add(-retention))
	return err
}
