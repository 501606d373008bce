package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/t77yq/crontab/internal/config"
	"github.com/t77yq/crontab/internal/monitor"
	"github.com/t77yq/crontab/internal/storage"
	"github.com/t77yq/crontab/internal/stream"
)

const natsConnectRetries = 5

// flagKeys maps command line flags to configuration keys
var flagKeys = map[string]string{
	"db":        "database.path",
	"table":     "crontab.table",
	"log-level": "log.level",
	"sleep":     "crontab.sleep",
	"memory":    "crontab.memory",
	"backoff":   "crontab.backoff",
	"nats-url":  "nats.url",
	"marker":    "marker.backend",
}

// app holds the resources shared by every command
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sql.DB
	nc     *nats.Conn
	js     nats.JetStreamContext
	store  *storage.SQLiteJobStore
}

// newApp loads configuration, opens the database and, when configured,
// connects to NATS.
func newApp(cmd *cobra.Command) (*app, error) {
	v, err := config.New(configFile)
	if err != nil {
		return nil, err
	}
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return nil, err
	}

	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &app{cfg: cfg, logger: logger}

	a.db, err = storage.Open(cfg.Database.Path)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.store, err = storage.NewSQLiteJobStore(logger, a.db, cfg.Crontab.Table)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.NATS.Enabled() {
		if err := a.connectNATS(); err != nil {
			a.Close()
			return nil, err
		}
	}

	return a, nil
}

// bindFlags binds the flags that were set on the command line
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.Visit(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || err != nil {
			return
		}
		err = v.BindPFlag(key, f)
	})
	if err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}
	return nil
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	if cfg.Development {
		zapConfig = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zapConfig.Level = level

	return zapConfig.Build()
}

func (a *app) connectNATS() error {
	cfg := a.cfg.NATS
	logger := a.logger.Named("nats")

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.PingInterval(20 * time.Second),
		nats.MaxPingsOutstanding(5),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			logger.Error("NATS connection error", zap.String("subject", subject), zap.Error(err))
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	var err error
	for i := 0; i < natsConnectRetries; i++ {
		a.nc, err = nats.Connect(cfg.URL, opts...)
		if err == nil {
			break
		}
		logger.Warn("Failed to connect to NATS, retrying...",
			zap.Int("attempt", i+1),
			zap.Error(err))
		time.Sleep(time.Second * time.Duration(i+1))
	}
	if err != nil {
		return fmt.Errorf("failed to connect to NATS after retries: %w", err)
	}

	logger.Info("Connected to NATS successfully", zap.String("url", a.nc.ConnectedUrl()))

	a.js, err = a.nc.JetStream()
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	subjects := []string{stream.DefaultSubjects}
	if err := stream.Ensure(a.js, stream.DefaultName, subjects, logger); err != nil {
		return err
	}
	return nil
}

// marker opens the configured restart marker backend
func (a *app) marker() (monitor.MarkerStore, error) {
	key := a.cfg.Crontab.RestartKey

	switch a.cfg.Marker.Backend {
	case config.MarkerNATS:
		if a.js == nil {
			return nil, fmt.Errorf("marker backend %q requires a NATS connection", config.MarkerNATS)
		}
		return monitor.NewKVMarker(a.js, a.cfg.NATS.Bucket, key)
	case config.MarkerMemory:
		return monitor.NewMemoryMarker(), nil
	default:
		return storage.NewSQLiteMarker(a.db, a.cfg.Crontab.Table, key)
	}
}

// Close releases the database and NATS connection and flushes the logger
func (a *app) Close() {
	if a.nc != nil {
		if err := a.nc.Drain(); err != nil {
			a.nc.Close()
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("Failed to close database", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// commandContext returns the command's context or a background one
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
