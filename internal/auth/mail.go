package auth

import (
	"context"

	"github.com/scanningworld/scanningworld-backend/pkg/logger"
)

// logMailSender writes reset notifications to the log instead of delivering
// mail. Used in dev and test environments.
type logMailSender struct {
	logg *logger.Logger
}

// NewLogMailSender returns a MailSender that only logs.
func NewLogMailSender(logg *logger.Logger) MailSender {
	return &logMailSender{logg: logg}
}

func (s *logMailSender) SendPasswordReset(ctx context.Context, email, token string) error {
	// The token itself stays out of the log.
	s.logg.Info(s.logg.WithField(ctx, "email", email), "password reset email queued")
	return nil
}
