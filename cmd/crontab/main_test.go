package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t77yq/crontab/internal/config"
	"github.com/t77yq/crontab/internal/model"
)

func TestBindFlagsOnlyOverridesSetFlags(t *testing.T) {
	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.Int("sleep", 0, "")
	flags.Float64("memory", 0, "")
	flags.String("table", "", "")
	require.NoError(t, flags.Parse([]string{"--sleep", "30", "--table", "jobs"}))

	v, err := config.New(t.TempDir() + "/none.yaml")
	require.Error(t, err)
	assert.Nil(t, v)

	v, err = config.New("")
	require.NoError(t, err)
	require.NoError(t, bindFlags(v, flags))

	cfg, err := config.Load(v)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Crontab.Sleep)
	assert.Equal(t, "jobs", cfg.Crontab.Table)
	assert.Equal(t, float64(32), cfg.Crontab.Memory)
}

func TestWriteJobs(t *testing.T) {
	last := time.Date(2026, 10, 19, 8, 0, 0, 0, time.Local)
	jobs := []*model.Job{
		{
			ID:              "a1",
			Name:            "report",
			Handler:         "index/Report@send",
			IntervalSec:     60,
			Status:          model.JobStatusActive,
			NextExecuteTime: last.Add(time.Minute),
			LastExecuteTime: &last,
		},
		{
			ID:              "b2",
			Name:            "cleanup",
			Handler:         "Cleanup",
			IntervalSec:     86400,
			Status:          model.JobStatusInactive,
			NextExecuteTime: last,
		},
	}

	var out bytes.Buffer
	require.NoError(t, writeJobs(&out, jobs))

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[0]), "HANDLER")
	assert.Contains(t, string(lines[1]), "index/Report@send")
	assert.Contains(t, string(lines[1]), "2026-10-19 08:01:00")
	assert.Contains(t, string(lines[1]), "2026-10-19 08:00:00")
	assert.Contains(t, string(lines[2]), "24h0m0s")
	assert.Contains(t, string(lines[2]), model.JobStatusInactive.String())
}
