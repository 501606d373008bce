package handler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/t77yq/crontab/internal/executor"
)

// ShellCommandPayload represents the payload for shell command jobs
type ShellCommandPayload struct {
	Command    string            `json:"command"`
	Args       []string          `json:"args"`
	Env        map[string]string `json:"env"`
	WorkingDir string            `json:"working_dir"`
	TimeoutSec int64             `json:"timeout_sec"`
}

// ShellCommandHandler runs a command and fails when it exits non-zero
type ShellCommandHandler struct {
	logger *zap.Logger
}

// NewShellCommandHandler creates a new shell command handler
func NewShellCommandHandler(logger *zap.Logger) *ShellCommandHandler {
	return &ShellCommandHandler{
		logger: logger,
	}
}

// Fire runs the shell command
func (h *ShellCommandHandler) Fire(ctx context.Context, p executor.Payload) error {
	var payload ShellCommandPayload
	if err := p.Decode(&payload); err != nil {
		return err
	}
	if payload.Command == "" {
		return fmt.Errorf("command is required")
	}

	cmdCtx := ctx
	if d := timeout(payload.TimeoutSec); d > 0 {
		var cancel context.CancelFunc
		cmdCtx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	cmd := exec.CommandContext(cmdCtx, payload.Command, payload.Args...)
	if payload.WorkingDir != "" {
		cmd.Dir = payload.WorkingDir
	}
	if len(payload.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range payload.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}

	h.logger.Info("Executing shell command",
		zap.String("command", payload.Command),
		zap.Strings("args", payload.Args))

	output, err := cmd.CombinedOutput()
	if err != nil {
		if errors.Is(cmdCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("command execution timed out")
		}
		return fmt.Errorf("command failed: %w: %s", err, strings.TrimSpace(string(output)))
	}

	h.logger.Debug("Shell command finished", zap.ByteString("output", output))
	return nil
}
