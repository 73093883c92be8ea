package notifier

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// Mailer delivers customer notifications.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogMailer simulates an email provider. It sleeps for a realistic delivery
// latency and logs the message instead of sending it.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, to, subject, body string) error {
	delay := time.Duration(50+rand.Intn(151)) * time.Millisecond
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return ctx.Err()
	}

	m.logger.Info("email sent", "to", to, "subject", subject)
	return nil
}
