// Package email delivers outbound complaint notifications over SMTP.
package email

import (
	"context"
	"time"

	"complaints_backend/platform/config"
)

// Sender delivers complaint notification emails.
type Sender interface {
	SendDeadlineReminderEmail(ctx context.Context, toEmail, complaintID, departmentName string, deadline time.Time) error
	SendDeadlineExpiredEmail(ctx context.Context, toEmail, complaintID, departmentName string, deadline time.Time) error
	SendStatusChangeEmail(ctx context.Context, toEmail, complaintID, newStatus, response string) error
}

// NoopSender drops every email. Used when EMAIL_ENABLED is false so the rest
// of the notification pipeline behaves identically in development.
type NoopSender struct{}

func (NoopSender) SendDeadlineReminderEmail(context.Context, string, string, string, time.Time) error {
	return nil
}

func (NoopSender) SendDeadlineExpiredEmail(context.Context, string, string, string, time.Time) error {
	return nil
}

func (NoopSender) SendStatusChangeEmail(context.Context, string, string, string, string) error {
	return nil
}

// NewSender builds the configured Sender implementation.
func NewSender(cfg config.NotifierConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	), nil
}
