package email

import (
	"context"

	"github.com/angelmondragon/pricesheets-backend/pkg/logger"
)

type logSender struct {
	logg *logger.Logger
}

// NewLogSender returns a Sender that only logs. Used in dev when no provider key is set.
func NewLogSender(logg *logger.Logger) Sender {
	return &logSender{logg: logg}
}

func (s *logSender) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{"to": msg.To, "subject": msg.Subject})
		s.logg.Info(ctx, "email delivery skipped (log sender)")
	}
	return nil
}
