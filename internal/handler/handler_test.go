package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/t77yq/crontab/internal/executor"
	"github.com/t77yq/crontab/internal/storage"
)

func TestRegister(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("All Jobs", func(t *testing.T) {
		db, err := storage.Open(":memory:")
		require.NoError(t, err)
		defer db.Close()
		history, err := storage.NewSQLiteRunHistory(logger, db, "crontab")
		require.NoError(t, err)

		registry := executor.NewRegistry()
		require.NoError(t, Register(registry, "app", Deps{Logger: logger, DB: db, History: history}))
		assert.Equal(t, []string{
			"app.job.DatabaseOperation",
			"app.job.HttpRequest",
			"app.job.PruneRuns",
			"app.job.ShellCommand",
		}, registry.Names())

		dispatcher := executor.NewDispatcher(registry, "app", logger)
		err = dispatcher.Dispatch(context.Background(), "DatabaseOperation@query", []byte(`{"query":"SELECT 1 AS one"}`))
		assert.NoError(t, err)
	})

	t.Run("Without Database", func(t *testing.T) {
		registry := executor.NewRegistry()
		require.NoError(t, Register(registry, "app", Deps{Logger: logger}))
		assert.Equal(t, []string{"app.job.HttpRequest", "app.job.ShellCommand"}, registry.Names())
	})

	t.Run("Duplicate", func(t *testing.T) {
		registry := executor.NewRegistry()
		require.NoError(t, Register(registry, "app", Deps{Logger: logger}))
		err := Register(registry, "app", Deps{Logger: logger})
		assert.ErrorIs(t, err, executor.ErrDuplicateHandler)
	})
}
