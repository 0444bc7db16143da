package scheduler

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/Dan9191/fund-advisor/internal/service"
	"github.com/sirupsen/logrus"
)

type fakeChecker struct {
	reports []service.DriftReport
	err     error
	calls   int
}

func (f *fakeChecker) DriftCheck(ctx context.Context) ([]service.DriftReport, error) {
	f.calls++
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("drift check ran without a deadline")
	}
	return f.reports, f.err
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestRunNow(t *testing.T) {
	checker := &fakeChecker{reports: []service.DriftReport{{InvestorID: 1, PortfolioID: 4}, {InvestorID: 2, PortfolioID: 5}}}
	s := NewScheduler(context.Background(), checker, quietLogger())
	if got := s.RunNow(); got != 2 {
		t.Errorf("RunNow = %d, want 2", got)
	}
	if checker.calls != 1 {
		t.Errorf("checker called %d times", checker.calls)
	}

	checker.reports, checker.err = nil, errors.New("db down")
	if got := s.RunNow(); got != 0 {
		t.Errorf("RunNow after failure = %d, want 0", got)
	}
}

func TestRegister(t *testing.T) {
	s := NewScheduler(context.Background(), &fakeChecker{}, quietLogger())
	if err := s.Register("0 6 * * *"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := s.Register("every day"); err == nil {
		t.Error("expected error for an invalid spec")
	}
	s.Start()
	s.Stop()
}

func TestEvery(t *testing.T) {
	s := NewScheduler(context.Background(), &fakeChecker{}, quietLogger())
	if err := s.Every("@every 10m", "session sweep", func() {}); err != nil {
		t.Errorf("Every: %v", err)
	}
	if err := s.Every("@sometimes", "session sweep", func() {}); err == nil {
		t.Error("expected an error for an invalid descriptor")
	}
}
