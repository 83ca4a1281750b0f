package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/smartgate/pkg/config"
	"github.com/diagnosis/smartgate/pkg/logger"
	"github.com/diagnosis/smartgate/services/summary/internal/domain"
	"github.com/robfig/cron/v3"
)

const jobTimeout = 2 * time.Minute

type Sender interface {
	Send(ctx context.Context, period domain.Period) (*domain.Report, error)
}

// Scheduler posts the periodic summaries on cron schedules evaluated in
// the gate timezone.
type Scheduler struct {
	cron   *cron.Cron
	sender Sender
	loc    *time.Location
	now    func() time.Time
}

func New(sender Sender, loc *time.Location) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		sender: sender,
		loc:    loc,
		now:    time.Now,
	}
}

// Register adds the three summary jobs.
func (s *Scheduler) Register(cfg config.SummaryConfig) error {
	jobs := []struct {
		period domain.Period
		spec   string
	}{
		{domain.PeriodDaily, cfg.DailyCron},
		{domain.PeriodWeekly, cfg.WeeklyCron},
		{domain.PeriodMonthly, cfg.MonthlyCron},
	}
	for _, j := range jobs {
		period := j.period
		if _, err := s.cron.AddFunc(j.spec, func() { s.run(period) }); err != nil {
			return fmt.Errorf("schedule %s summary %q: %w", period, j.spec, err)
		}
		logger.Info("Summary scheduled", "period", period, "cron", j.spec, "timezone", s.loc.String())
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// run returns whether a summary was actually sent.
func (s *Scheduler) run(period domain.Period) bool {
	if period == domain.PeriodMonthly && !domain.IsLastDayOfMonth(s.now(), s.loc) {
		logger.Debug("Skipping monthly summary, not the last day of the month")
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.sender.Send(ctx, period); err != nil {
		logger.Error("Scheduled summary failed", "period", period, "error", err)
		return false
	}
	return true
}
