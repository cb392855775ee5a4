// Package scheduler runs periodic library rescans on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// RescanFunc triggers one library scan pass.
type RescanFunc func(ctx context.Context)

// Scheduler owns the cron runner for periodic rescans.
type Scheduler struct {
	cron   *cron.Cron
	spec   string
	rescan RescanFunc
	logger *slog.Logger
}

// New creates a Scheduler for a 6-field cron expression (with seconds).
// An empty spec returns a scheduler that does nothing.
func New(spec string, rescan RescanFunc, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		spec:   spec,
		rescan: rescan,
		logger: logger.With(slog.String("component", "scheduler")),
	}
	if spec == "" {
		return s, nil
	}

	parser := cron.NewParser(
		cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
	)
	if _, err := parser.Parse(spec); err != nil {
		return nil, fmt.Errorf("invalid rescan schedule %q: %w", spec, err)
	}
	s.cron = cron.New(cron.WithParser(parser))
	return s, nil
}

// Start begins firing the schedule. Scans run with the given context so
// shutdown interrupts a pass in flight.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	_, err := s.cron.AddFunc(s.spec, func() {
		if ctx.Err() != nil {
			return
		}
		s.logger.Info("scheduled rescan starting", slog.String("schedule", s.spec))
		s.rescan(ctx)
	})
	if err != nil {
		return fmt.Errorf("registering rescan schedule: %w", err)
	}
	s.cron.Start()
	s.logger.Info("rescan schedule active", slog.String("schedule", s.spec))
	return nil
}

// Stop halts the schedule and waits for a running pass to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}
