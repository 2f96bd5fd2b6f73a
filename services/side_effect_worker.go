package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/akshay-since1987/kineticev-sub002/models"
	aws_pkg "github.com/akshay-since1987/kineticev-sub002/pkg/aws"
	"github.com/akshay-since1987/kineticev-sub002/repository"
)

// SideEffectWorker replays queued CRM pushes and emails. A failed replay is
// queued again with the attempt bumped; the original message is only kept
// for redelivery when that re-enqueue fails.
type SideEffectWorker struct {
	txns      repository.TransactionRepository
	testRides *TestRideService
	crm       *CRMForwarder
	notifier  *Notifier
	queue     *RetryQueue
	metrics   aws_pkg.MetricsRecorder
	logger    *zap.Logger
}

func NewSideEffectWorker(
	txns repository.TransactionRepository,
	testRides *TestRideService,
	crm *CRMForwarder,
	notifier *Notifier,
	queue *RetryQueue,
	metrics aws_pkg.MetricsRecorder,
	logger *zap.Logger,
) *SideEffectWorker {
	return &SideEffectWorker{
		txns:      txns,
		testRides: testRides,
		crm:       crm,
		notifier:  notifier,
		queue:     queue,
		metrics:   metrics,
		logger:    logger,
	}
}

// Handle is an aws_pkg.MessageHandler.
func (w *SideEffectWorker) Handle(ctx context.Context, body string) error {
	var job models.SideEffectJob
	if err := json.Unmarshal([]byte(body), &job); err != nil {
		w.logger.Error("dropping malformed side effect job", zap.Error(err))
		return nil
	}
	log := w.logger.With(
		zap.String("kind", job.Kind),
		zap.String("txn_id", job.TxnID),
		zap.Int("attempt", job.Attempt),
	)

	if job.Attempt > MaxJobAttempts {
		log.Error("dropping side effect after max attempts")
		return nil
	}
	if job.Kind != models.JobKindCRM && job.Kind != models.JobKindEmail {
		log.Error("dropping side effect of unknown kind")
		return nil
	}
	recordCount(ctx, w.metrics, aws_pkg.MetricSideEffectRetries, map[string]string{"Kind": job.Kind})

	err := w.replay(ctx, job)
	switch {
	case err == nil:
		log.Info("side effect replayed")
		return nil
	case errors.Is(err, ErrSkipped):
		log.Info("side effect no longer needed")
		return nil
	case errors.Is(err, repository.ErrNotFound):
		log.Error("dropping side effect for unknown record", zap.Error(err))
		return nil
	}

	log.Warn("side effect replay failed", zap.Error(err))
	next := job
	next.Attempt++
	if next.Attempt > MaxJobAttempts {
		log.Error("side effect exhausted retries", zap.Error(err))
		return nil
	}
	if qErr := w.queue.Enqueue(ctx, next); qErr != nil {
		return fmt.Errorf("requeue side effect: %w", qErr)
	}
	return nil
}

func (w *SideEffectWorker) replay(ctx context.Context, job models.SideEffectJob) error {
	if strings.HasPrefix(job.TxnID, "TR-") {
		ride, err := w.testRides.FindByKey(ctx, job.TxnID)
		if err != nil {
			return err
		}
		switch job.Kind {
		case models.JobKindCRM:
			_, err = w.crm.ForwardAttempt(ctx, job.TxnID, LeadFromTestRide(ride), models.FormTypeTestRide, StatusSubmitted)
			return err
		case models.JobKindEmail:
			return w.notifier.RetryTestRide(ctx, ride, job.Recipient)
		}
		return fmt.Errorf("unknown job kind %q", job.Kind)
	}

	txn, err := w.txns.FindByTxnID(ctx, job.TxnID)
	if err != nil {
		return err
	}
	switch job.Kind {
	case models.JobKindCRM:
		_, err = w.crm.ForwardAttempt(ctx, txn.TxnID, LeadFromTransaction(txn, job.Status), job.FormType, job.Status)
		return err
	case models.JobKindEmail:
		return w.notifier.RetryPayment(ctx, txn, job.Outcome, job.Recipient)
	}
	return fmt.Errorf("unknown job kind %q", job.Kind)
}
