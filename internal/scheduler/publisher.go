package scheduler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/t77yq/crontab/internal/model"
)

// NATSRunPublisher publishes run outcomes to "<subject>.<job id>"
type NATSRunPublisher struct {
	logger  *zap.Logger
	js      nats.JetStreamContext
	subject string
}

// NewNATSRunPublisher creates a run publisher. The subject must be covered
// by a stream, see stream.Ensure.
func NewNATSRunPublisher(js nats.JetStreamContext, subject string, logger *zap.Logger) *NATSRunPublisher {
	if subject == "" {
		subject = DefaultResultSubject
	}
	return &NATSRunPublisher{
		logger:  logger.Named("run-publisher"),
		js:      js,
		subject: subject,
	}
}

// Subject returns the subject a run of jobID is published to
func (p *NATSRunPublisher) Subject(jobID string) string {
	return fmt.Sprintf("%s.%s", p.subject, jobID)
}

// Publish implements RunPublisher.Publish
func (p *NATSRunPublisher) Publish(ctx context.Context, run *model.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	if _, err := p.js.Publish(p.Subject(run.JobID), data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish run: %w", err)
	}

	p.logger.Debug("Run published",
		zap.String("run_id", run.ID),
		zap.String("job_id", run.JobID),
		zap.String("status", string(run.Status)))
	return nil
}
