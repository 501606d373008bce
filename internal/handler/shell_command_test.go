package handler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/t77yq/crontab/internal/executor"
)

func TestShellCommandHandler(t *testing.T) {
	h := NewShellCommandHandler(zaptest.NewLogger(t))
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		dir := t.TempDir()
		err := h.Fire(ctx, executor.Payload{
			"command":     "sh",
			"args":        []interface{}{"-c", "echo $GREETING > out.txt"},
			"env":         map[string]interface{}{"GREETING": "hello"},
			"working_dir": dir,
		})
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
		require.NoError(t, err)
		assert.Equal(t, "hello\n", string(data))
	})

	t.Run("Non Zero Exit", func(t *testing.T) {
		err := h.Fire(ctx, executor.Payload{
			"command": "sh",
			"args":    []interface{}{"-c", "echo boom >&2; exit 3"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("Timeout", func(t *testing.T) {
		err := h.Fire(ctx, executor.Payload{
			"command":     "sleep",
			"args":        []interface{}{"5"},
			"timeout_sec": 1,
		})
		assert.EqualError(t, err, "command execution timed out")
	})

	t.Run("Missing Command", func(t *testing.T) {
		assert.Error(t, h.Fire(ctx, executor.Payload{}))
	})
}
