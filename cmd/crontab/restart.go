package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/t77yq/crontab/internal/config"
	"github.com/t77yq/crontab/internal/monitor"
)

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Ask every running daemon to recycle itself",
	Long: `Write the current time into the restart marker. Each running daemon
notices the change before its next job and exits.`,
	RunE: signalRestart,
}

func init() {
	restartCmd.Flags().String("nats-url", "", "NATS server URL")
	restartCmd.Flags().String("marker", "", "restart marker backend (sqlite, nats)")
}

func signalRestart(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.Marker.Backend == config.MarkerMemory {
		return fmt.Errorf("marker backend %q is private to one process", config.MarkerMemory)
	}

	marker, err := a.marker()
	if err != nil {
		return err
	}

	now := time.Now()
	if err := monitor.SignalRestart(commandContext(cmd), marker, now); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "restart requested at %s\n", now.Format(time.RFC3339))
	return nil
}
