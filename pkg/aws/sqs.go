package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
)

// MessageHandler processes one message body. A non-nil error leaves the
// message on the queue so it is redelivered after the visibility timeout.
type MessageHandler func(ctx context.Context, body string) error

// QueueSender is the producer half of the queue client.
type QueueSender interface {
	SendMessage(ctx context.Context, body string) error
}

// SQSClient sends to and long-polls a single queue.
type SQSClient struct {
	client   *sqs.Client
	queueURL string
	logger   *zap.Logger

	// VisibilityTimeout in seconds applied to received messages.
	VisibilityTimeout int32
}

func NewSQSClient(cfg aws.Config, queueURL string, logger *zap.Logger) *SQSClient {
	return &SQSClient{
		client:            sqs.NewFromConfig(cfg),
		queueURL:          queueURL,
		logger:            logger,
		VisibilityTimeout: 60,
	}
}

// StartPolling runs until ctx is cancelled.
func (c *SQSClient) StartPolling(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("starting sqs polling", zap.String("queue_url", c.queueURL))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("sqs polling stopped")
			return ctx.Err()
		default:
			if err := c.pollOnce(ctx, handler); err != nil && ctx.Err() == nil {
				c.logger.Error("sqs poll failed", zap.Error(err))
			}
		}
	}
}

func (c *SQSClient) pollOnce(ctx context.Context, handler MessageHandler) error {
	result, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            &c.queueURL,
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     20,
		VisibilityTimeout:   c.VisibilityTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to receive messages: %w", err)
	}

	for _, msg := range result.Messages {
		if msg.Body == nil {
			continue
		}

		if err := handler(ctx, *msg.Body); err != nil {
			c.logger.Warn("message handler failed, leaving for redelivery",
				zap.String("message_id", aws.ToString(msg.MessageId)),
				zap.Error(err),
			)
			continue
		}

		if _, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      &c.queueURL,
			ReceiptHandle: msg.ReceiptHandle,
		}); err != nil {
			c.logger.Error("failed to delete message",
				zap.String("message_id", aws.ToString(msg.MessageId)),
				zap.Error(err),
			)
		}
	}

	return nil
}

// SendMessage sends a single message to the queue.
func (c *SQSClient) SendMessage(ctx context.Context, body string) error {
	_, err := c.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    &c.queueURL,
		MessageBody: &body,
	})
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
