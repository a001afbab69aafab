package service

import (
	"context"
	"log/slog"
)

// LogMailer is the default Mailer. It records deliveries on the structured
// log instead of speaking SMTP, which is what development and test
// deployments want. Production installs swap in a real delivery
// implementation behind the same interface.
type LogMailer struct {
	Logger *slog.Logger
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, email, token, language string) error {
	m.Logger.Info("password reset mail dispatched",
		slog.String("to", email),
		slog.String("language", language),
		slog.Int("token_len", len(token)),
	)
	return nil
}

func (m *LogMailer) SendEmailVerification(ctx context.Context, email, token, language string) error {
	m.Logger.Info("email verification mail dispatched",
		slog.String("to", email),
		slog.String("language", language),
		slog.Int("token_len", len(token)),
	)
	return nil
}
