package mail

import (
	"context"
	"log/slog"
)

// LogSender writes messages to the log instead of delivering them. It is the
// default backend for development.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(ctx context.Context, msg Message) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "mail", "to", msg.To, "subject", msg.Subject, "body", msg.Body)
	return nil
}
