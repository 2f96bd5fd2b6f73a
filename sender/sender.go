package sender

import (
	"context"
	"time"
)

type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// EmailSender delivers one HTML message to one recipient.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) (SendResult, error)
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, msg string) (SendResult, error)
}
