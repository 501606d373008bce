// Package stream prepares the JetStream stream that carries crontab events.
package stream

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	// DefaultName is the stream holding crontab events
	DefaultName = "CRONTAB"

	// DefaultSubjects covers error reports and run results
	DefaultSubjects = "crontab.>"

	streamMaxAge = 24 * time.Hour
)

// Ensure creates the stream, or updates its subjects when it already exists
func Ensure(js nats.JetStreamContext, name string, subjects []string, logger *zap.Logger) error {
	info, err := js.StreamInfo(name)
	if err != nil && !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to get stream info: %w", err)
	}

	if info == nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:      name,
			Subjects:  subjects,
			Retention: nats.LimitsPolicy,
			MaxAge:    streamMaxAge,
			MaxMsgs:   -1,
			Discard:   nats.DiscardOld,
			Storage:   nats.FileStorage,
			Replicas:  1,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream %s: %w", name, err)
		}
		logger.Info("Created stream", zap.String("name", name))
		return nil
	}

	config := info.Config
	config.Subjects = subjects
	if _, err := js.UpdateStream(&config); err != nil {
		return fmt.Errorf("failed to update stream %s: %w", name, err)
	}
	logger.Info("Updated stream", zap.String("name", name))
	return nil
}
