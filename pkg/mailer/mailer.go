package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/diagnosis/smartgate/pkg/config"
	"github.com/diagnosis/smartgate/pkg/logger"
	"github.com/mailersend/mailersend-go"
)

// Mailer sends a copy of a periodic summary to the estate office.
type Mailer interface {
	SendSummary(ctx context.Context, subject, text, html string) error
}

// New returns a MailerSend mailer when an API key, sender and recipients are
// configured, and a log-only mailer otherwise.
func New(cfg config.EmailConfig) Mailer {
	if cfg.MailerSendKey == "" || cfg.FromEmail == "" || len(cfg.SummaryRecipients) == 0 {
		return DevMailer{}
	}
	return NewMailerSend(cfg)
}

type MailerSendClient struct {
	client     *mailersend.Mailersend
	from       mailersend.From
	recipients []mailersend.Recipient
}

func NewMailerSend(cfg config.EmailConfig) *MailerSendClient {
	recipients := make([]mailersend.Recipient, 0, len(cfg.SummaryRecipients))
	for _, email := range cfg.SummaryRecipients {
		recipients = append(recipients, mailersend.Recipient{Email: email})
	}
	return &MailerSendClient{
		client:     mailersend.NewMailersend(cfg.MailerSendKey),
		from:       mailersend.From{Name: cfg.FromName, Email: cfg.FromEmail},
		recipients: recipients,
	}
}

func (m *MailerSendClient) SendSummary(ctx context.Context, subject, text, html string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients(m.recipients)
	msg.SetSubject(subject)

	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}

	if _, err := m.client.Email.Send(ctx, msg); err != nil {
		return fmt.Errorf("mailersend: %w", err)
	}
	return nil
}

type DevMailer struct{}

func (DevMailer) SendSummary(ctx context.Context, subject, text, _ string) error {
	logger.InfoContext(ctx, "[DEV MAIL] summary e-mail not configured, logging instead",
		"subject", subject,
		"text", text,
	)
	return nil
}
