package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diagnosis/smartgate/pkg/config"
	"github.com/diagnosis/smartgate/services/summary/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	periods []domain.Period
	err     error
}

func (r *recordingSender) Send(_ context.Context, p domain.Period) (*domain.Report, error) {
	r.periods = append(r.periods, p)
	if r.err != nil {
		return nil, r.err
	}
	return &domain.Report{Period: p}, nil
}

func TestMonthlyRunsOnlyOnLastDay(t *testing.T) {
	sender := &recordingSender{}
	s := New(sender, time.UTC)

	s.now = func() time.Time { return time.Date(2025, 4, 29, 23, 55, 0, 0, time.UTC) }
	assert.False(t, s.run(domain.PeriodMonthly))

	s.now = func() time.Time { return time.Date(2025, 4, 30, 23, 55, 0, 0, time.UTC) }
	assert.True(t, s.run(domain.PeriodMonthly))

	assert.Equal(t, []domain.Period{domain.PeriodMonthly}, sender.periods)
}

func TestDailyAndWeeklyAlwaysRun(t *testing.T) {
	sender := &recordingSender{}
	s := New(sender, time.UTC)

	assert.True(t, s.run(domain.PeriodDaily))
	assert.True(t, s.run(domain.PeriodWeekly))
	assert.Equal(t, []domain.Period{domain.PeriodDaily, domain.PeriodWeekly}, sender.periods)
}

func TestRunReportsFailure(t *testing.T) {
	s := New(&recordingSender{err: errors.New("chat down")}, time.UTC)
	assert.False(t, s.run(domain.PeriodDaily))
}

func TestRegister(t *testing.T) {
	s := New(&recordingSender{}, time.UTC)

	require.NoError(t, s.Register(config.SummaryConfig{
		DailyCron:   "59 23 * * *",
		WeeklyCron:  "0 21 * * 0",
		MonthlyCron: "55 23 28-31 * *",
	}))
	assert.Len(t, s.cron.Entries(), 3)

	err := New(&recordingSender{}, time.UTC).Register(config.SummaryConfig{DailyCron: "not a cron"})
	assert.Error(t, err)
}
