package notify

import (
	"context"

	"github.com/dmitrijs2005/jazzyauth/internal/logging"
)

// LogSender writes messages to the log instead of sending them. Used when
// no SMTP host is configured.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(logger logging.Logger) *LogSender {
	return &LogSender{logger: logger.With("sender", "log")}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.Info(ctx, "outbound email", "to", msg.To, "subject", msg.Subject, "body", msg.Body)
	return nil
}
