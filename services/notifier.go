package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/akshay-since1987/kineticev-sub002/cache"
	"github.com/akshay-since1987/kineticev-sub002/models"
	aws_pkg "github.com/akshay-since1987/kineticev-sub002/pkg/aws"
	"github.com/akshay-since1987/kineticev-sub002/repository"
	"github.com/akshay-since1987/kineticev-sub002/sender"
	"github.com/akshay-since1987/kineticev-sub002/templates"
)

const defaultEmailDedupTTL = 30 * time.Minute

type NotifierConfig struct {
	AdminEmails []string
	DedupTTL    time.Duration
	// RetryURL is linked from the customer failure email.
	RetryURL string
}

// Notifier sends payment and lead emails, at most once per
// (txn, outcome, recipient).
type Notifier struct {
	emails   sender.EmailSender
	logs     repository.EmailLogRepository
	cache    cache.Cache
	renderer *templates.Renderer
	queue    *RetryQueue
	cfg      NotifierConfig
	metrics  aws_pkg.MetricsRecorder
	logger   *zap.Logger
}

func NewNotifier(
	emails sender.EmailSender,
	logs repository.EmailLogRepository,
	c cache.Cache,
	renderer *templates.Renderer,
	queue *RetryQueue,
	cfg NotifierConfig,
	metrics aws_pkg.MetricsRecorder,
	logger *zap.Logger,
) *Notifier {
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = defaultEmailDedupTTL
	}
	return &Notifier{
		emails:   emails,
		logs:     logs,
		cache:    c,
		renderer: renderer,
		queue:    queue,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
	}
}

// EmailSentKey is the session cache key guarding one email.
func EmailSentKey(txnID, outcome, recipient string) string {
	return fmt.Sprintf("email_sent_%s_%s_%s", txnID, outcome, recipient)
}

type emailJob struct {
	txnID     string
	outcome   string
	recipient string
	kind      string
	template  string
	data      templates.EmailData
	// unguarded sends even when the claim cannot be written.
	unguarded bool
}

// NotifyPayment emails every admin and then the customer about a resolved
// payment. Failures are logged and queued; they never reach the caller.
func (n *Notifier) NotifyPayment(ctx context.Context, txn *models.Transaction, outcome string) {
	for _, job := range n.paymentJobs(txn, outcome) {
		n.deliverOrQueue(ctx, job)
	}
}

// RetryPayment re-sends one payment email for the retry worker.
func (n *Notifier) RetryPayment(ctx context.Context, txn *models.Transaction, outcome, recipient string) error {
	for _, job := range n.paymentJobs(txn, outcome) {
		if job.recipient == normalizeEmail(recipient) {
			return n.deliver(ctx, job)
		}
	}
	return fmt.Errorf("recipient %s not addressed for %s", recipient, outcome)
}

func (n *Notifier) paymentJobs(txn *models.Transaction, outcome string) []emailJob {
	adminTmpl, customerTmpl := templates.EmailPaymentSuccessAdmin, templates.EmailPaymentSuccessCustomer
	if outcome == models.OutcomeFailure {
		adminTmpl, customerTmpl = templates.EmailPaymentFailureAdmin, templates.EmailPaymentFailureCustomer
	}
	data := n.transactionData(txn)

	jobs := make([]emailJob, 0, len(n.cfg.AdminEmails)+1)
	for _, admin := range n.cfg.AdminEmails {
		jobs = append(jobs, emailJob{
			txnID: txn.TxnID, outcome: outcome, recipient: normalizeEmail(admin),
			kind: models.RecipientKindAdmin, template: adminTmpl, data: data,
		})
	}
	if txn.Email != "" {
		jobs = append(jobs, emailJob{
			txnID: txn.TxnID, outcome: outcome, recipient: normalizeEmail(txn.Email),
			kind: models.RecipientKindCustomer, template: customerTmpl, data: data,
		})
	}
	return jobs
}

// NotifyDBFailure alerts admins that a booking could not be persisted. The
// database may be down, so the send does not depend on the email log.
func (n *Notifier) NotifyDBFailure(ctx context.Context, txn *models.Transaction, cause error) {
	data := n.transactionData(txn)
	if cause != nil {
		data.Reason = cause.Error()
	}
	for _, admin := range n.cfg.AdminEmails {
		err := n.deliver(ctx, emailJob{
			txnID: txn.TxnID, outcome: models.OutcomeDBFailure, recipient: normalizeEmail(admin),
			kind: models.RecipientKindAdmin, template: templates.EmailBookingDBFailureAdmin,
			data: data, unguarded: true,
		})
		if err != nil && !errors.Is(err, ErrSkipped) {
			n.logger.Error("db failure alert not sent", zap.String("txn_id", txn.TxnID), zap.Error(err))
		}
	}
}

// NotifyTestRide emails admins about a new test-ride request.
func (n *Notifier) NotifyTestRide(ctx context.Context, ride *models.TestRide) {
	for _, job := range n.testRideJobs(ride) {
		n.deliverOrQueue(ctx, job)
	}
}

// RetryTestRide re-sends one test-ride email for the retry worker.
func (n *Notifier) RetryTestRide(ctx context.Context, ride *models.TestRide, recipient string) error {
	for _, job := range n.testRideJobs(ride) {
		if job.recipient == normalizeEmail(recipient) {
			return n.deliver(ctx, job)
		}
	}
	return fmt.Errorf("recipient %s not addressed for test ride", recipient)
}

func (n *Notifier) testRideJobs(ride *models.TestRide) []emailJob {
	data := templates.EmailData{
		TxnID:       TestRideKey(ride),
		Name:        ride.Name,
		Phone:       ride.Phone,
		Email:       ride.Email,
		Pincode:     ride.Pincode,
		City:        ride.City,
		Message:     ride.Message,
		OTPVerified: ride.OTPVerified,
	}
	if ride.PreferredDate != nil {
		data.Date = ride.PreferredDate.Format("02 Jan 2006")
	}

	jobs := make([]emailJob, 0, len(n.cfg.AdminEmails))
	for _, admin := range n.cfg.AdminEmails {
		jobs = append(jobs, emailJob{
			txnID: data.TxnID, outcome: models.OutcomeTestRide, recipient: normalizeEmail(admin),
			kind: models.RecipientKindAdmin, template: templates.EmailTestRideAdmin, data: data,
		})
	}
	return jobs
}

func (n *Notifier) transactionData(txn *models.Transaction) templates.EmailData {
	return templates.EmailData{
		TxnID:    txn.TxnID,
		Name:     txn.FirstName,
		Phone:    txn.Phone,
		Email:    txn.Email,
		Address:  txn.Address,
		City:     txn.City,
		State:    txn.State,
		Pincode:  txn.Pincode,
		Variant:  txn.Variant,
		Color:    txn.Color,
		Amount:   models.FormatINR(txn.Amount),
		Status:   txn.Status,
		RetryURL: n.cfg.RetryURL,
	}
}

func (n *Notifier) deliverOrQueue(ctx context.Context, job emailJob) {
	err := n.deliver(ctx, job)
	if err == nil || errors.Is(err, ErrSkipped) {
		return
	}
	_ = n.queue.Enqueue(ctx, models.SideEffectJob{
		Kind:      models.JobKindEmail,
		TxnID:     job.txnID,
		Outcome:   job.outcome,
		Recipient: job.recipient,
		Attempt:   1,
	})
}

// deliver runs the guarded send for one recipient: session cache, then the
// persisted claim, then the send itself.
func (n *Notifier) deliver(ctx context.Context, job emailJob) error {
	log := n.logger.With(
		zap.String("txn_id", job.txnID),
		zap.String("outcome", job.outcome),
		zap.String("recipient", job.recipient),
	)
	key := EmailSentKey(job.txnID, job.outcome, job.recipient)

	if _, err := n.cache.Get(ctx, key); err == nil {
		log.Debug("email already sent in this session")
		return ErrSkipped
	}

	claimed := true
	if err := n.logs.Claim(ctx, job.txnID, job.outcome, job.recipient, job.kind); err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyClaimed):
			log.Info("email already handled")
			sideEffects.WithLabelValues(models.JobKindEmail, "duplicate").Inc()
			n.remember(ctx, key, log)
			return ErrSkipped
		case job.unguarded:
			log.Warn("email log unavailable, sending without claim", zap.Error(err))
			claimed = false
		default:
			return fmt.Errorf("claim email: %w", err)
		}
	}

	subject, body, err := n.renderer.Email(job.template, job.data)
	if err == nil {
		var res sender.SendResult
		res, err = n.emails.SendEmail(ctx, job.recipient, subject, body)
		if err == nil {
			if claimed {
				if markErr := n.logs.MarkSent(ctx, job.txnID, job.outcome, job.recipient, res.MessageID); markErr != nil {
					log.Error("failed to mark email sent", zap.Error(markErr))
				}
			}
			n.remember(ctx, key, log)
			sideEffects.WithLabelValues(models.JobKindEmail, "sent").Inc()
			recordCount(ctx, n.metrics, aws_pkg.MetricEmailsSent, map[string]string{"Outcome": job.outcome})
			log.Info("email sent", zap.String("message_id", res.MessageID))
			return nil
		}
	}

	if claimed {
		if relErr := n.logs.Release(ctx, job.txnID, job.outcome, job.recipient); relErr != nil {
			log.Error("failed to release email claim", zap.Error(relErr))
		}
	}
	sideEffects.WithLabelValues(models.JobKindEmail, "failed").Inc()
	log.Error("email send failed", zap.Error(err))
	return err
}

func (n *Notifier) remember(ctx context.Context, key string, log *zap.Logger) {
	if err := n.cache.Set(ctx, key, "1", n.cfg.DedupTTL); err != nil {
		log.Warn("failed to cache email marker", zap.Error(err))
	}
}

func normalizeEmail(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
