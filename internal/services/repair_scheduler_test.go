package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairScheduler_Run(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.advisor(t, "asesor1", "Grupo A")
	res := env.activate(t, env.fx.Course)
	late := env.advisor(t, "asesor_tarde", "Grupo A")

	scheduler, err := NewRepairScheduler("@every 1h", env.activationService(), env.logger, time.UTC)
	require.NoError(t, err)

	scheduler.run()

	enrolled, err := env.repo.Enrollment().Exists(ctx, res.Activation.ID, late.ID)
	require.NoError(t, err)
	assert.True(t, enrolled)

	scheduler.Start()
	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	scheduler.Stop(stopCtx)
	assert.NoError(t, stopCtx.Err())
}

func TestNewRepairScheduler_InvalidSpec(t *testing.T) {
	_, err := NewRepairScheduler("not a schedule", nil, discardLogger(), time.UTC)
	assert.Error(t, err)
}

func TestCronLogger(t *testing.T) {
	var buf bytes.Buffer
	cl := cronLogger{logger: slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}

	release := make(chan struct{})
	started := make(chan struct{})
	job := cron.NewChain(cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(func() {
		close(started)
		<-release
	}))

	go job.Run()
	<-started
	job.Run() // overlapping run is skipped
	close(release)

	cl.Error(errors.New("boom"), "panic", "entry", 1)

	var lines []map[string]any
	for _, raw := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var line map[string]any
		require.NoError(t, json.Unmarshal([]byte(raw), &line))
		lines = append(lines, line)
	}
	require.Len(t, lines, 2)

	assert.Equal(t, "DEBUG", lines[0]["level"])
	assert.Equal(t, "cron: skip", lines[0]["msg"])

	assert.Equal(t, "ERROR", lines[1]["level"])
	assert.Equal(t, "cron: panic", lines[1]["msg"])
	assert.Equal(t, "boom", lines[1]["error"])
	assert.Equal(t, float64(1), lines[1]["entry"])
}
