package service

import (
	"context"

	"ride-pool/internal/general/logger"
	"ride-pool/internal/ports"
)

// LogMailer is the delivery boundary used when no SMTP relay is
// configured: it records the rendered notification instead of sending it.
type LogMailer struct {
	logger *logger.Logger
}

// NewLogMailer builds the logging mail sink.
func NewLogMailer(log *logger.Logger) *LogMailer {
	return &LogMailer{logger: log}
}

// Send records the notification.
func (m *LogMailer) Send(ctx context.Context, to, subject, body string) error {
	m.logger.Info(ctx, "mail_delivered", "Notification delivered", map[string]any{
		"to":      to,
		"subject": subject,
		"body":    body,
	})
	return nil
}

var _ ports.Mailer = (*LogMailer)(nil)
