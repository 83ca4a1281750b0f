package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diagnosis/smartgate/pkg/logger"
	"github.com/diagnosis/smartgate/pkg/mailer"
	"github.com/diagnosis/smartgate/pkg/metrics"
	"github.com/diagnosis/smartgate/services/summary/internal/domain"
	"github.com/diagnosis/smartgate/services/summary/internal/repository"
)

var ErrChatNotConfigured = errors.New("telegram configuration missing")

// Chat posts a summary message.
type Chat interface {
	Configured() bool
	SendMessage(ctx context.Context, html string) error
}

type SummaryService interface {
	// Build counts the period's entries without sending anything.
	Build(ctx context.Context, period domain.Period) (*domain.Report, error)
	// Send builds the report, posts it to the chat and e-mails a copy.
	Send(ctx context.Context, period domain.Period) (*domain.Report, error)
}

type summaryService struct {
	entries repository.EntryRepository
	chat    Chat
	mailer  mailer.Mailer
	loc     *time.Location
	now     func() time.Time
}

func NewSummaryService(entries repository.EntryRepository, chat Chat, m mailer.Mailer, loc *time.Location) SummaryService {
	return &summaryService{
		entries: entries,
		chat:    chat,
		mailer:  m,
		loc:     loc,
		now:     time.Now,
	}
}

func (s *summaryService) Build(ctx context.Context, period domain.Period) (*domain.Report, error) {
	window := domain.WindowFor(period, s.now(), s.loc)
	kinds, err := s.entries.KindsBetween(ctx, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("%s summary: %w", period, err)
	}
	return &domain.Report{Period: period, Window: window, Counts: domain.Tally(kinds)}, nil
}

func (s *summaryService) Send(ctx context.Context, period domain.Period) (report *domain.Report, err error) {
	defer func() { metrics.RecordSummary(string(period), err) }()

	if !s.chat.Configured() {
		return nil, ErrChatNotConfigured
	}

	report, err = s.Build(ctx, period)
	if err != nil {
		return nil, err
	}

	if err := s.chat.SendMessage(ctx, report.HTML()); err != nil {
		return nil, fmt.Errorf("send %s summary: %w", period, err)
	}

	if err := s.mailer.SendSummary(ctx, report.Subject(), report.Text(), report.HTML()); err != nil {
		logger.WarnContext(ctx, "Summary e-mail copy failed", "period", period, "error", err)
	}

	logger.InfoContext(ctx, "Summary sent", "period", period, "total", report.Counts.Total())
	return report, nil
}
