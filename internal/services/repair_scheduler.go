package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const repairRunTimeout = 4 * time.Minute

// RepairScheduler periodically reconciles today's enrollments with the current advisors
type RepairScheduler struct {
	cron       *cron.Cron
	activation ActivationService
	logger     *slog.Logger
}

// NewRepairScheduler registers the repair job on spec. Overlapping runs are skipped.
func NewRepairScheduler(spec string, activation ActivationService, logger *slog.Logger, loc *time.Location) (*RepairScheduler, error) {
	cl := cronLogger{logger: logger}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	s := &RepairScheduler{cron: c, activation: activation, logger: logger}

	if _, err := c.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("invalid repair schedule %q: %w", spec, err)
	}
	return s, nil
}

// cronLogger routes cron's own messages through slog. Its Info chatter
// (wake, run, skip) goes to Debug.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}

func (s *RepairScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), repairRunTimeout)
	defer cancel()

	summary, err := s.activation.RepairAll(ctx, "")
	if err != nil {
		s.logger.Error("Enrollment repair run failed", "error", err)
		return
	}
	if summary.Added > 0 || summary.Failed > 0 {
		s.logger.Info("Enrollment repair run finished",
			"fecha", summary.Fecha,
			"activations", summary.Activations,
			"added", summary.Added,
			"failed", summary.Failed)
	}
}

func (s *RepairScheduler) Start() {
	s.cron.Start()
	s.logger.Info("Enrollment repair scheduler started", "entries", len(s.cron.Entries()))
}

// Stop waits for a running job to finish or ctx to expire
func (s *RepairScheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("Enrollment repair still running at shutdown")
	}
}
