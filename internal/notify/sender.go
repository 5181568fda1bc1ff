package notify

import (
	"context"
	"log/slog"
)

// Sender delivers a buyer-facing notification.
type Sender interface {
	Send(ctx context.Context, buyerID, subject, body string) error
}

// LogSender writes notifications to the log. Stands in for a mail or push
// provider in dev runs.
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, buyerID, subject, body string) error {
	s.log.Info("notification sent", "buyer_id", buyerID, "subject", subject, "body", body)
	return nil
}
