package monitor

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// ErrorReporter receives errors that escaped a poll cycle
type ErrorReporter interface {
	Report(ctx context.Context, err error)
}

// LogReporter is the default reporter; it writes the error to the log
type LogReporter struct {
	logger *zap.Logger
}

// NewLogReporter creates a log-only reporter
func NewLogReporter(logger *zap.Logger) *LogReporter {
	return &LogReporter{logger: logger.Named("reporter")}
}

// Report implements ErrorReporter
func (r *LogReporter) Report(ctx context.Context, err error) {
	r.logger.Error("Unexpected crontab error", zap.Error(err))
}

// ErrorReport is the message published for every reported error
type ErrorReport struct {
	ID         string    `json:"id"`
	Host       string    `json:"host"`
	PID        int       `json:"pid"`
	Error      string    `json:"error"`
	ReportedAt time.Time `json:"reported_at"`
}

// NATSReporter logs the error and publishes an ErrorReport to a JetStream subject
type NATSReporter struct {
	logger  *zap.Logger
	js      nats.JetStreamContext
	subject string
	host    string
}

// NewNATSReporter creates a reporter publishing to subject. The subject must
// be covered by an existing stream.
func NewNATSReporter(js nats.JetStreamContext, subject string, logger *zap.Logger) *NATSReporter {
	host, _ := os.Hostname()
	return &NATSReporter{
		logger:  logger.Named("reporter"),
		js:      js,
		subject: subject,
		host:    host,
	}
}

// Report implements ErrorReporter
func (r *NATSReporter) Report(ctx context.Context, err error) {
	report := ErrorReport{
		ID:         uuid.New().String(),
		Host:       r.host,
		PID:        os.Getpid(),
		Error:      err.Error(),
		ReportedAt: time.Now(),
	}

	r.logger.Error("Unexpected crontab error",
		zap.String("report_id", report.ID),
		zap.Error(err))

	data, merr := json.Marshal(report)
	if merr != nil {
		r.logger.Error("Failed to marshal error report", zap.Error(merr))
		return
	}

	if _, perr := r.js.Publish(r.subject, data, nats.Context(ctx)); perr != nil {
		r.logger.Error("Failed to publish error report",
			zap.String("subject", r.subject),
			zap.Error(perr))
	}
}
