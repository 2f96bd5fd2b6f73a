package sender

import (
	"context"
	"time"

	aws_pkg "github.com/akshay-since1987/kineticev-sub002/pkg/aws"
)

// SESSender sends transactional mail through Amazon SES v2.
type SESSender struct {
	api  aws_pkg.SESAPI
	from string
}

func NewSESSender(api aws_pkg.SESAPI, from string) *SESSender {
	return &SESSender{api: api, from: from}
}

func (s *SESSender) SendEmail(ctx context.Context, to, subject, htmlBody string) (SendResult, error) {
	id, err := aws_pkg.SendHTMLEmail(ctx, s.api, s.from, to, subject, htmlBody)
	if err != nil {
		return SendResult{}, err
	}
	return SendResult{MessageID: id, SentAt: time.Now()}, nil
}
