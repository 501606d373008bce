// Package monitor decides when the crontab daemon must recycle itself and
// reports unexpected errors.
package monitor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultMemoryLimitMB is the resident memory ceiling
	DefaultMemoryLimitMB = 32

	// DefaultRestartKey names the restart marker
	DefaultRestartKey = "crontab:restart"

	// DefaultMarkerMaxAge is how long a marker may stay untouched before
	// the monitor refreshes it and recycles the daemon.
	DefaultMarkerMaxAge = time.Hour
)

// StopReason explains why the daemon loop ended
type StopReason int

const (
	StopNone StopReason = iota
	// StopRestartSignal means the marker changed since the loop started
	StopRestartSignal
	// StopRestartExpired means the marker aged past the maximum and was refreshed
	StopRestartExpired
	// StopMemoryExceeded means resident memory reached the configured limit
	StopMemoryExceeded
	// StopShutdown means the loop's context was cancelled
	StopShutdown
)

func (r StopReason) String() string {
	switch r {
	case StopNone:
		return "none"
	case StopRestartSignal:
		return "restart_signal"
	case StopRestartExpired:
		return "restart_expired"
	case StopMemoryExceeded:
		return "memory_exceeded"
	case StopShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// RestartConfig configures the restart monitor
type RestartConfig struct {
	MemoryLimitMB float64
	MarkerMaxAge  time.Duration
	// Now overrides the clock; nil means time.Now
	Now func() time.Time
}

// RestartMonitor compares the restart marker with the value captured at
// loop start and watches the process memory.
type RestartMonitor struct {
	logger  *zap.Logger
	marker  MarkerStore
	memory  MemoryProbe
	limitMB float64
	maxAge  time.Duration
	now     func() time.Time

	lastRestart time.Time
	started     bool
}

// NewRestartMonitor creates a restart monitor
func NewRestartMonitor(marker MarkerStore, memory MemoryProbe, config RestartConfig, logger *zap.Logger) *RestartMonitor {
	if config.MemoryLimitMB <= 0 {
		config.MemoryLimitMB = DefaultMemoryLimitMB
	}
	if config.MarkerMaxAge <= 0 {
		config.MarkerMaxAge = DefaultMarkerMaxAge
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &RestartMonitor{
		logger:  logger.Named("restart-monitor"),
		marker:  marker,
		memory:  memory,
		limitMB: config.MemoryLimitMB,
		maxAge:  config.MarkerMaxAge,
		now:     config.Now,
	}
}

// Start captures the current marker. A marker that was never written is
// initialized to now so that a fresh deployment does not recycle at once.
func (m *RestartMonitor) Start(ctx context.Context) error {
	last, ok, err := m.marker.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to read restart marker: %w", err)
	}

	if !ok {
		last = time.Unix(m.now().Unix(), 0)
		if err := m.marker.Store(ctx, last); err != nil {
			return fmt.Errorf("failed to initialize restart marker: %w", err)
		}
		m.logger.Info("Initialized restart marker", zap.Time("marker", last))
	}

	m.lastRestart = last
	m.started = true
	return nil
}

// LastRestart returns the marker value captured by Start
func (m *RestartMonitor) LastRestart() time.Time {
	return m.lastRestart
}

// Check reports whether the loop must stop before the next job
func (m *RestartMonitor) Check(ctx context.Context) (StopReason, error) {
	if !m.started {
		return StopNone, fmt.Errorf("restart monitor not started")
	}

	usage, err := m.memory.ResidentMB()
	if err != nil {
		return StopNone, err
	}
	if usage >= m.limitMB {
		m.logger.Info("Memory limit reached",
			zap.Float64("memory_mb", usage),
			zap.Float64("limit_mb", m.limitMB))
		return StopMemoryExceeded, nil
	}

	return m.checkMarker(ctx)
}

func (m *RestartMonitor) checkMarker(ctx context.Context) (StopReason, error) {
	current, ok, err := m.marker.Load(ctx)
	if err != nil {
		return StopNone, fmt.Errorf("failed to read restart marker: %w", err)
	}

	now := m.now()
	if !ok || now.Sub(current) > m.maxAge {
		// Refresh the marker so the next process starts with a fresh hour.
		if err := m.marker.Store(ctx, now); err != nil {
			return StopNone, fmt.Errorf("failed to refresh restart marker: %w", err)
		}
		if !ok {
			m.logger.Info("Restart marker disappeared")
			return StopRestartSignal, nil
		}
		m.logger.Info("Restart marker expired",
			zap.Time("marker", current),
			zap.Duration("max_age", m.maxAge))
		return StopRestartExpired, nil
	}

	if !current.Equal(m.lastRestart) {
		m.logger.Info("Restart signal received",
			zap.Time("marker", current),
			zap.Time("started_with", m.lastRestart))
		return StopRestartSignal, nil
	}

	return StopNone, nil
}
