package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/akshay-since1987/kineticev-sub002/models"
	aws_pkg "github.com/akshay-since1987/kineticev-sub002/pkg/aws"
	"github.com/akshay-since1987/kineticev-sub002/providers"
	"github.com/akshay-since1987/kineticev-sub002/repository"
)

// StatusSubmitted is the CRM status used for test-ride leads.
const StatusSubmitted = "SUBMITTED"

// CRMForwarder pushes leads to the CRM at most once per
// (key, status, form type).
type CRMForwarder struct {
	crm             providers.CRM
	submissions     repository.SubmissionRepository
	queue           *RetryQueue
	sendAllPayments bool
	metrics         aws_pkg.MetricsRecorder
	logger          *zap.Logger
}

func NewCRMForwarder(
	crm providers.CRM,
	submissions repository.SubmissionRepository,
	queue *RetryQueue,
	sendAllPayments bool,
	metrics aws_pkg.MetricsRecorder,
	logger *zap.Logger,
) *CRMForwarder {
	return &CRMForwarder{
		crm:             crm,
		submissions:     submissions,
		queue:           queue,
		sendAllPayments: sendAllPayments,
		metrics:         metrics,
		logger:          logger,
	}
}

// ShouldForward applies the payment-status policy. Non-booking forms are
// always forwarded.
func (f *CRMForwarder) ShouldForward(formType, status string) bool {
	if formType != models.FormTypeBooking {
		return true
	}
	return status == models.StatusCompleted || f.sendAllPayments
}

// Forward pushes the lead and queues a retry when the push fails. It returns
// the CRM record id, or ErrSkipped when policy or a prior submission means
// nothing was sent.
func (f *CRMForwarder) Forward(ctx context.Context, key string, lead providers.Lead, formType, status string) (string, error) {
	id, err := f.ForwardAttempt(ctx, key, lead, formType, status)
	if err != nil && !errors.Is(err, ErrSkipped) {
		_ = f.queue.Enqueue(ctx, models.SideEffectJob{
			Kind:     models.JobKindCRM,
			TxnID:    key,
			Status:   status,
			FormType: formType,
			Attempt:  1,
		})
	}
	return id, err
}

// ForwardAttempt is Forward without the retry enqueue.
func (f *CRMForwarder) ForwardAttempt(ctx context.Context, key string, lead providers.Lead, formType, status string) (string, error) {
	log := f.logger.With(
		zap.String("txn_id", key),
		zap.String("status", status),
		zap.String("form_type", formType),
	)

	if !f.ShouldForward(formType, status) {
		log.Debug("crm push skipped by policy")
		return "", ErrSkipped
	}
	if f.crm == nil {
		log.Warn("crm not configured, skipping push")
		return "", ErrSkipped
	}

	if err := f.submissions.Claim(ctx, key, status, formType); err != nil {
		if errors.Is(err, repository.ErrAlreadyClaimed) {
			log.Info("crm submission already handled")
			sideEffects.WithLabelValues(models.JobKindCRM, "duplicate").Inc()
			return "", ErrSkipped
		}
		return "", fmt.Errorf("claim crm submission: %w", err)
	}

	recordID, err := f.crm.Push(ctx, lead)
	if err != nil {
		if relErr := f.submissions.Release(ctx, key, status, formType); relErr != nil {
			log.Error("failed to release crm claim", zap.Error(relErr))
		}
		sideEffects.WithLabelValues(models.JobKindCRM, "failed").Inc()
		log.Error("crm push failed", zap.Error(err))
		return "", fmt.Errorf("crm push: %w", err)
	}

	if err := f.submissions.MarkSent(ctx, key, status, formType, recordID); err != nil {
		log.Error("failed to mark crm submission sent", zap.Error(err))
	}
	sideEffects.WithLabelValues(models.JobKindCRM, "sent").Inc()
	recordCount(ctx, f.metrics, aws_pkg.MetricCRMPushes, map[string]string{"FormType": formType})
	log.Info("crm lead created", zap.String("crm_record_id", recordID))
	return recordID, nil
}

// LeadFromTransaction maps a booking to a CRM lead.
func LeadFromTransaction(txn *models.Transaction, status string) providers.Lead {
	return providers.Lead{
		LastName:      txn.FirstName,
		Phone:         txn.Phone,
		Email:         txn.Email,
		Street:        txn.Address,
		City:          txn.City,
		State:         txn.State,
		PostalCode:    txn.Pincode,
		Company:       "Individual",
		LeadSource:    "Website",
		FormType:      models.FormTypeBooking,
		Variant:       txn.Variant,
		Color:         txn.Color,
		TransactionID: txn.TxnID,
		PaymentStatus: status,
		Amount:        txn.Amount.StringFixed(2),
	}
}

// TestRideKey is the synthetic CRM key for a test-ride submission.
func TestRideKey(ride *models.TestRide) string {
	return "TR-" + ride.ID.String()
}

// LeadFromTestRide maps a test-ride request to a CRM lead.
func LeadFromTestRide(ride *models.TestRide) providers.Lead {
	lead := providers.Lead{
		LastName:      ride.Name,
		Phone:         ride.Phone,
		Email:         ride.Email,
		City:          ride.City,
		PostalCode:    ride.Pincode,
		Company:       "Individual",
		LeadSource:    "Website",
		FormType:      models.FormTypeTestRide,
		TransactionID: TestRideKey(ride),
		Description:   ride.Message,
	}
	if ride.PreferredDate != nil {
		lead.PreferredDate = ride.PreferredDate.Format("2006-01-02")
	}
	return lead
}
