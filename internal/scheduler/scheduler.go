// Package scheduler runs the periodic drift check of saved portfolios.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/fund-advisor/internal/service"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DriftChecker compares saved portfolios with current recommendations.
type DriftChecker interface {
	DriftCheck(ctx context.Context) ([]service.DriftReport, error)
}

// Scheduler manages the cron tasks.
type Scheduler struct {
	cron    *cron.Cron
	checker DriftChecker
	log     *logrus.Logger
	ctx     context.Context
	timeout time.Duration
}

// NewScheduler creates a scheduler. Jobs run with ctx and stop when it is
// cancelled.
func NewScheduler(ctx context.Context, checker DriftChecker, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		checker: checker,
		log:     log,
		ctx:     ctx,
		timeout: 5 * time.Minute,
	}
}

// Register adds the drift check with a standard five-field cron spec.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() { s.driftTask() }); err != nil {
		return fmt.Errorf("register drift task: %w", err)
	}
	s.log.Infof("Drift check scheduled: %s", spec)
	return nil
}

// Every adds a housekeeping job. spec accepts the cron descriptors, e.g.
// "@every 10m".
func (s *Scheduler) Every(spec, name string, fn func()) error {
	if _, err := s.cron.AddFunc(spec, fn); err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	s.log.Infof("%s scheduled: %s", name, spec)
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("Scheduler started")
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("Scheduler stopped")
}

// RunNow executes the drift check immediately and returns the stale count.
func (s *Scheduler) RunNow() int {
	return s.driftTask()
}

func (s *Scheduler) driftTask() int {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	reports, err := s.checker.DriftCheck(ctx)
	if err != nil {
		s.log.Errorf("Drift check failed: %v", err)
	}
	for _, r := range reports {
		s.log.WithFields(logrus.Fields{
			"investor_id":  r.InvestorID,
			"portfolio_id": r.PortfolioID,
			"saved":        len(r.Saved),
			"recommended":  len(r.Recommended),
		}).Warn("Portfolio is out of date with current recommendations")
	}
	s.log.WithField("duration", time.Since(start).String()).Infof("Drift check finished: %d stale portfolios", len(reports))
	return len(reports)
}
