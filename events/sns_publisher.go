package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/akshay-since1987/kineticev-sub002/models"
	aws_pkg "github.com/akshay-since1987/kineticev-sub002/pkg/aws"
)

// SNSPublisher fans events out through an SNS topic. The event type is
// attached as a message attribute for subscription filters.
type SNSPublisher struct {
	client   aws_pkg.SNSPublisher
	topicArn string
}

func NewSNSPublisher(client aws_pkg.SNSPublisher, topicArn string) *SNSPublisher {
	return &SNSPublisher{client: client, topicArn: topicArn}
}

func (p *SNSPublisher) Publish(ctx context.Context, event models.PaymentEvent) error {
	if p.client == nil || p.topicArn == "" {
		return fmt.Errorf("sns publisher not configured")
	}
	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.EventType, err)
	}
	return p.client.Publish(ctx, p.topicArn, b, map[string]string{"event_type": event.EventType})
}

func (p *SNSPublisher) Close() error { return nil }
