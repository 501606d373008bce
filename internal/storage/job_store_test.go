package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/t77yq/crontab/internal/model"
)

func newTestJobStore(t *testing.T) (*SQLiteJobStore, *sql.DB) {
	t.Helper()

	db := newTestDB(t)
	store, err := NewSQLiteJobStore(zaptest.NewLogger(t), db, "crontab")
	require.NoError(t, err)
	return store, db
}

func TestNewSQLiteJobStoreRejectsBadTableName(t *testing.T) {
	db := newTestDB(t)

	for _, name := range []string{"", "crontab; DROP TABLE x", "1crontab", "cron-tab"} {
		_, err := NewSQLiteJobStore(zaptest.NewLogger(t), db, name)
		assert.ErrorIs(t, err, ErrInvalidTableName, name)
	}
}

func TestEnqueue(t *testing.T) {
	store, _ := newTestJobStore(t)
	ctx := context.Background()
	at := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)

	id, err := store.EnqueueAt(ctx, "report", "index/Report", map[string]interface{}{"to": "运营 <ops>"}, 60, at)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	job, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "report", job.Name)
	assert.Equal(t, "index/Report", job.Handler)
	assert.Equal(t, int64(60), job.IntervalSec)
	assert.Equal(t, model.JobStatusActive, job.Status)
	assert.True(t, at.Equal(job.NextExecuteTime))
	assert.True(t, at.Equal(job.CreateTime))
	assert.Nil(t, job.LastExecuteTime)
	assert.JSONEq(t, `{"to":"运营 <ops>"}`, string(job.Payload))
	assert.Contains(t, string(job.Payload), "运营 <ops>")

	t.Run("Invalid Interval", func(t *testing.T) {
		_, err := store.Enqueue(ctx, "bad", "Bad", nil, 0)
		assert.ErrorIs(t, err, ErrInvalidInterval)
	})

	t.Run("Empty Handler", func(t *testing.T) {
		_, err := store.Enqueue(ctx, "bad", "  ", nil, 60)
		assert.ErrorIs(t, err, ErrEmptyHandler)
	})

	t.Run("Invalid Raw Payload", func(t *testing.T) {
		_, err := store.Enqueue(ctx, "bad", "Bad", json.RawMessage(`{"a":`), 60)
		assert.ErrorIs(t, err, ErrInvalidPayload)
	})

	t.Run("Missing Job", func(t *testing.T) {
		_, err := store.Get(ctx, "does-not-exist")
		assert.ErrorIs(t, err, ErrJobNotFound)
	})
}

func TestFetchDue(t *testing.T) {
	store, db := newTestJobStore(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	pastID, err := store.EnqueueAt(ctx, "past", "Past", nil, 60, now.Add(-10*time.Minute))
	require.NoError(t, err)
	nowID, err := store.EnqueueAt(ctx, "now", "Now", nil, 60, now)
	require.NoError(t, err)
	_, err = store.EnqueueAt(ctx, "future", "Future", nil, 60, now.Add(time.Second))
	require.NoError(t, err)
	inactiveID, err := store.EnqueueAt(ctx, "inactive", "Inactive", nil, 60, now.Add(-time.Hour))
	require.NoError(t, err)

	_, err = db.Exec("UPDATE crontab SET status = ? WHERE id = ?", model.JobStatusInactive, inactiveID)
	require.NoError(t, err)

	jobs, err := store.FetchDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, pastID, jobs[0].ID)
	assert.Equal(t, nowID, jobs[1].ID)
}

func TestReschedule(t *testing.T) {
	store, _ := newTestJobStore(t)
	ctx := context.Background()
	due := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	now := due.Add(5 * time.Second)

	id, err := store.EnqueueAt(ctx, "job", "Job", nil, 60, due)
	require.NoError(t, err)

	next := due.Add(60 * time.Second)
	require.NoError(t, store.Reschedule(ctx, id, now, next))

	job, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, job.LastExecuteTime)
	assert.True(t, now.Equal(*job.LastExecuteTime))
	assert.True(t, next.Equal(job.NextExecuteTime))
	assert.True(t, now.Equal(job.UpdateTime))

	// A rescheduled job is no longer due within the same cycle.
	jobs, err := store.FetchDue(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestList(t *testing.T) {
	store, _ := newTestJobStore(t)
	ctx := context.Background()
	now := time.Now()

	_, err := store.EnqueueAt(ctx, "b", "B", nil, 60, now.Add(time.Minute))
	require.NoError(t, err)
	_, err = store.EnqueueAt(ctx, "a", "A", nil, 60, now)
	require.NoError(t, err)

	jobs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "a", jobs[0].Name)
	assert.Equal(t, "b", jobs[1].Name)
}

func TestEncodePayload(t *testing.T) {
	tests := []struct {
		name    string
		payload interface{}
		want    string
	}{
		{name: "Nil", payload: nil, want: `{}`},
		{name: "Empty Raw", payload: json.RawMessage(nil), want: `{}`},
		{name: "Raw", payload: json.RawMessage(`{"a":1}`), want: `{"a":1}`},
		{name: "Map", payload: map[string]string{"q": "a&b"}, want: `{"q":"a&b"}`},
		{name: "Unicode", payload: map[string]string{"name": "定时任务"}, want: `{"name":"定时任务"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodePayload(tt.payload)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}

	_, err := EncodePayload(make(chan int))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}
