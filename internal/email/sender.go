// Package email delivers outbound client mail. Delivery failures are returned
// to the caller so state transitions that depend on them can compensate.
package email

import (
	"context"

	"hvac_dispatch_backend/platform/config"
	"hvac_dispatch_backend/platform/logger"
)

// JobReport is the data rendered into the client report email.
type JobReport struct {
	ClientName     string
	ServiceLabel   string
	Address        string
	TechnicianName string
	ReportURL      string
	ExpiresOn      string
}

// Sender delivers transactional email.
type Sender interface {
	SendJobReportEmail(ctx context.Context, toEmail string, report JobReport) error
	SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error
}

// NoopSender accepts every message without delivering it.
type NoopSender struct{}

func (NoopSender) SendJobReportEmail(ctx context.Context, toEmail string, report JobReport) error {
	return nil
}

func (NoopSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return nil
}

// NewSender returns the SMTP sender wrapped in a circuit breaker, or a
// NoopSender when email is disabled.
func NewSender(cfg config.EmailConfig, log *logger.Logger) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}

	smtp := NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
	return NewBreakerSender(smtp, cfg.GetEmailBreakerTimeout(), log), nil
}
