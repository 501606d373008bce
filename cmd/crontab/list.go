package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/t77yq/crontab/internal/model"
	"github.com/t77yq/crontab/internal/storage"
)

const listTimeLayout = "2006-01-02 15:04:05"

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the job table",
	RunE:  listJobs,
}

var runsCmd = &cobra.Command{
	Use:   "runs [job-id]",
	Short: "Show recent job runs, newest first",
	Args:  cobra.MaximumNArgs(1),
	RunE:  listRuns,
}

func init() {
	runsCmd.Flags().Int("limit", 20, "number of runs to show")
	runsCmd.Flags().Int("offset", 0, "number of runs to skip")
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	jobs, err := a.store.List(commandContext(cmd))
	if err != nil {
		return err
	}
	return writeJobs(cmd.OutOrStdout(), jobs)
}

func listRuns(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")

	var jobID string
	if len(args) > 0 {
		jobID = args[0]
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	history, err := storage.NewSQLiteRunHistory(a.logger, a.db, a.cfg.Crontab.Table)
	if err != nil {
		return err
	}

	runs, err := history.List(commandContext(cmd), jobID, offset, limit)
	if err != nil {
		return err
	}
	return writeRuns(cmd.OutOrStdout(), runs)
}

func writeJobs(out io.Writer, jobs []*model.Job) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tHANDLER\tINTERVAL\tSTATUS\tNEXT\tLAST")
	for _, job := range jobs {
		last := "-"
		if job.LastExecuteTime != nil {
			last = job.LastExecuteTime.Local().Format(listTimeLayout)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			job.ID,
			job.Name,
			job.Handler,
			job.Interval(),
			job.Status,
			job.NextExecuteTime.Local().Format(listTimeLayout),
			last)
	}
	return w.Flush()
}

func writeRuns(out io.Writer, runs []*model.Run) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tJOB\tHANDLER\tSTATUS\tDURATION\tERROR")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			run.StartedAt.Local().Format(listTimeLayout),
			run.JobName,
			run.Handler,
			run.Status,
			run.Duration.Round(time.Millisecond),
			run.Error)
	}
	return w.Flush()
}
