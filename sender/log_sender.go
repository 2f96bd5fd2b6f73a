package sender

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogSMSSender writes messages to the log instead of sending them. Used for
// local development when Twilio is not configured.
type LogSMSSender struct {
	logger *zap.Logger
}

func NewLogSMSSender(logger *zap.Logger) *LogSMSSender {
	return &LogSMSSender{logger: logger}
}

func (s *LogSMSSender) SendSMS(_ context.Context, to, msg string) (SendResult, error) {
	id := "log-" + uuid.NewString()
	s.logger.Info("sms not sent (log driver)", zap.String("to", to), zap.String("body", msg), zap.String("message_id", id))
	return SendResult{MessageID: id, SentAt: time.Now()}, nil
}
