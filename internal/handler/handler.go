// Package handler contains the built-in crontab jobs. Each one is
// registered under "<namespace>.job.<Name>" so a job row can refer to it
// as plain "<Name>" or "<Name>@method".
package handler

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/t77yq/crontab/internal/executor"
	"github.com/t77yq/crontab/internal/storage"
)

const (
	HTTPRequestName       = "HttpRequest"
	ShellCommandName      = "ShellCommand"
	DatabaseOperationName = "DatabaseOperation"
	PruneRunsName         = "PruneRuns"
)

// Deps are the shared resources the built-in jobs use
type Deps struct {
	Logger  *zap.Logger
	DB      *sql.DB
	History storage.RunHistoryStorage
}

// Register adds the built-in jobs to registry. Jobs whose dependencies are
// missing from deps are left out.
func Register(registry *executor.Registry, namespace string, deps Deps) error {
	logger := deps.Logger.Named("handler")
	id := func(name string) string {
		if namespace == "" {
			return "job." + name
		}
		return fmt.Sprintf("%s.job.%s", namespace, name)
	}

	httpHandler := NewHTTPRequestHandler(logger)
	factories := map[string]executor.Factory{
		HTTPRequestName:  func() executor.Handler { return httpHandler },
		ShellCommandName: func() executor.Handler { return NewShellCommandHandler(logger) },
	}
	if deps.DB != nil {
		factories[DatabaseOperationName] = func() executor.Handler {
			return NewDatabaseOperationHandler(logger, deps.DB)
		}
	}
	if deps.History != nil {
		factories[PruneRunsName] = func() executor.Handler {
			return NewPruneRunsHandler(logger, deps.History, time.Now)
		}
	}

	for name, factory := range factories {
		if err := registry.Register(id(name), factory); err != nil {
			return err
		}
	}
	return nil
}

// timeout converts a payload's timeout_sec into a duration
func timeout(seconds int64) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
