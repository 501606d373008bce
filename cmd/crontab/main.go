package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "crontab",
	Short: "Polling daemon for recurring jobs stored in SQLite",
	Long: `crontab runs jobs stored in a database table at a fixed interval.

Available commands:
  run     - Start the poll loop
  push    - Add a recurring job
  restart - Ask every running daemon to recycle itself
  list    - Show the job table
  runs    - Show recent job runs

Examples:
  crontab run --sleep 30
  crontab push --name report --handler index/Report@send --payload '{"to":"ops"}'
  crontab restart`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default ./config/config.yaml or ./config.yaml)")
	rootCmd.PersistentFlags().String("db", "", "path of the SQLite database")
	rootCmd.PersistentFlags().String("table", "", "name of the job table")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(restartCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(runsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
