package services

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/akshay-since1987/kineticev-sub002/models"
	aws_pkg "github.com/akshay-since1987/kineticev-sub002/pkg/aws"
)

// MaxJobAttempts bounds how often a side effect is retried from the queue.
const MaxJobAttempts = 5

// RetryQueue puts failed side effects on SQS for the worker. With no queue
// configured enqueueing only logs.
type RetryQueue struct {
	sender aws_pkg.QueueSender
	logger *zap.Logger
}

func NewRetryQueue(sender aws_pkg.QueueSender, logger *zap.Logger) *RetryQueue {
	return &RetryQueue{sender: sender, logger: logger}
}

func (q *RetryQueue) Enqueue(ctx context.Context, job models.SideEffectJob) error {
	if q == nil || q.sender == nil {
		if q != nil {
			q.logger.Warn("retry queue not configured, dropping job",
				zap.String("kind", job.Kind),
				zap.String("txn_id", job.TxnID),
			)
		}
		return nil
	}
	if job.Attempt > MaxJobAttempts {
		q.logger.Error("side effect exhausted retries",
			zap.String("kind", job.Kind),
			zap.String("txn_id", job.TxnID),
			zap.Int("attempt", job.Attempt),
		)
		return nil
	}

	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.sender.SendMessage(ctx, string(body)); err != nil {
		q.logger.Error("failed to enqueue side effect retry",
			zap.String("kind", job.Kind),
			zap.String("txn_id", job.TxnID),
			zap.Error(err),
		)
		return err
	}

	sideEffects.WithLabelValues(job.Kind, "enqueued").Inc()
	q.logger.Info("side effect queued for retry",
		zap.String("kind", job.Kind),
		zap.String("txn_id", job.TxnID),
		zap.Int("attempt", job.Attempt),
	)
	return nil
}
