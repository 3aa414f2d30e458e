package providers

import (
	"context"
	"fmt"

	"emergency-service/internal/config"
	"emergency-service/pkg/email"
)

// SendEmail delivers an alert to all recipients over SMTP. The transport
// addresses every recipient in a single request; there is no per-recipient
// retry here.
func SendEmail(ctx context.Context, cfg config.Config, recipients []string, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cfg.Email.SMTPServer == "" || cfg.Email.SMTPPort == 0 || cfg.Email.Username == "" || cfg.Email.Password == "" {
		return fmt.Errorf("missing Email configuration: SMTPServer, SMTPPort, Username, or Password is empty")
	}

	if err := email.Send(
		cfg.Email.SMTPServer,
		cfg.Email.SMTPPort,
		cfg.Email.Username,
		cfg.Email.Password,
		cfg.Email.FromName,
		recipients,
		subject,
		body,
	); err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}
	return nil
}
