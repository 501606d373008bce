package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/t77yq/crontab/internal/stream"
	"github.com/t77yq/crontab/internal/testutil"
)

func TestLogReporter(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	reporter := NewLogReporter(zap.New(core))

	reporter.Report(context.Background(), errors.New("database is locked"))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Unexpected crontab error", entries[0].Message)
	assert.Equal(t, "database is locked", entries[0].ContextMap()["error"])
}

func TestNATSReporter(t *testing.T) {
	_, js := testutil.StartJetStream(t)
	logger := zap.NewNop()
	require.NoError(t, stream.Ensure(js, stream.DefaultName, []string{stream.DefaultSubjects}, logger))

	reporter := NewNATSReporter(js, "crontab.error", logger)
	reporter.Report(context.Background(), errors.New("database is locked"))

	msgs := testutil.ConsumeMessages(t, js, "crontab.error", 1, 2*time.Second)
	require.Len(t, msgs, 1)

	var report ErrorReport
	require.NoError(t, json.Unmarshal(msgs[0], &report))
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, "database is locked", report.Error)
	assert.NotZero(t, report.PID)
	assert.False(t, report.ReportedAt.IsZero())
}
