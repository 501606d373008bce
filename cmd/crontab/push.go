package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/t77yq/crontab/internal/scheduler"
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Add a recurring job",
	Long: `Add a recurring job that becomes due on the next poll cycle.

The handler is "[module/]Class[@method]", for example "index/Report@send"
or "HttpRequest". The payload is a JSON object handed to the handler.`,
	RunE: pushJob,
}

func init() {
	pushCmd.Flags().String("name", "", "job name")
	pushCmd.Flags().String("handler", "", "handler declaration")
	pushCmd.Flags().String("payload", "{}", "JSON payload")
	pushCmd.Flags().Int64("interval", scheduler.DefaultIntervalSec, "seconds between runs")
	_ = pushCmd.MarkFlagRequired("name")
	_ = pushCmd.MarkFlagRequired("handler")
}

func pushJob(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	declaration, _ := cmd.Flags().GetString("handler")
	payload, _ := cmd.Flags().GetString("payload")
	interval, _ := cmd.Flags().GetInt64("interval")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := a.store.Enqueue(commandContext(cmd), name, declaration, json.RawMessage(payload), interval)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}
