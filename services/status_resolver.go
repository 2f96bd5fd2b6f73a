package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/akshay-since1987/kineticev-sub002/events"
	"github.com/akshay-since1987/kineticev-sub002/models"
	aws_pkg "github.com/akshay-since1987/kineticev-sub002/pkg/aws"
	"github.com/akshay-since1987/kineticev-sub002/providers"
	"github.com/akshay-since1987/kineticev-sub002/repository"
	"github.com/akshay-since1987/kineticev-sub002/templates"
)

var (
	// ErrTransactionNotFound means no booking row exists for the txn id.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrPersistence wraps database failures during resolution.
	ErrPersistence = errors.New("transaction store unavailable")
)

var gatewayStates = map[string]string{
	"COMPLETED":                models.StatusCompleted,
	"SUCCESS":                  models.StatusCompleted,
	"PAYMENT_SUCCESS":          models.StatusCompleted,
	"CHECKOUT_ORDER_COMPLETED": models.StatusCompleted,
	"FAILED":                   models.StatusFailed,
	"FAILURE":                  models.StatusFailed,
	"PAYMENT_ERROR":            models.StatusFailed,
	"PAYMENT_DECLINED":         models.StatusFailed,
	"DECLINED":                 models.StatusFailed,
	"CANCELLED":                models.StatusFailed,
	"EXPIRED":                  models.StatusFailed,
}

var stateFields = []string{"state", "status", "transaction_status"}

// MapGatewayState reads the payment state from a gateway status document.
// It returns the internal status, the raw value found, and whether that
// value was recognised. Unrecognised or absent values map to PENDING.
func MapGatewayState(raw []byte) (string, string, bool, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", "", false, err
	}

	value := findState(doc)
	if nested, ok := doc["data"].(map[string]interface{}); ok && value == "" {
		value = findState(nested)
	}

	if status, ok := gatewayStates[strings.ToUpper(value)]; ok {
		return status, value, true, nil
	}
	return models.StatusPending, value, false, nil
}

func findState(doc map[string]interface{}) string {
	for _, field := range stateFields {
		if v, ok := doc[field].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Resolution is the outcome of one status check.
type Resolution struct {
	TxnID       string
	State       string
	GatewayRaw  string
	Changed     bool
	Transaction *models.Transaction
}

// StatusResolver asks the gateway for a payment's state, persists it and
// runs the side effects for that state.
type StatusResolver struct {
	repo      repository.TransactionRepository
	gateway   providers.PaymentGateway
	crm       *CRMForwarder
	notifier  *Notifier
	publisher events.Publisher
	metrics   aws_pkg.MetricsRecorder
	logger    *zap.Logger
	now       func() time.Time
}

func NewStatusResolver(
	repo repository.TransactionRepository,
	gateway providers.PaymentGateway,
	crm *CRMForwarder,
	notifier *Notifier,
	publisher events.Publisher,
	metrics aws_pkg.MetricsRecorder,
	logger *zap.Logger,
) *StatusResolver {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &StatusResolver{
		repo:      repo,
		gateway:   gateway,
		crm:       crm,
		notifier:  notifier,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Resolve checks txnID with the gateway. Side-effect failures are logged
// and never returned; returned errors are the store or gateway failures
// that decide which error page the user sees (see ErrorPage).
func (r *StatusResolver) Resolve(ctx context.Context, txnID string) (*Resolution, error) {
	log := r.logger.With(zap.String("txn_id", txnID))

	txn, err := r.repo.FindByTxnID(ctx, txnID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTransactionNotFound
		}
		log.Error("failed to load transaction", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	token, err := r.gateway.FetchToken(ctx)
	if err != nil {
		log.Error("gateway authentication failed", zap.Error(err))
		statusResolutions.WithLabelValues("error").Inc()
		return nil, err
	}

	raw, err := r.gateway.OrderStatus(ctx, token, txnID)
	if err != nil {
		log.Error("gateway status check failed", zap.String("kind", providers.KindOf(err)), zap.Error(err))
		statusResolutions.WithLabelValues("error").Inc()
		return nil, err
	}

	state, rawState, mapped, err := MapGatewayState(raw)
	if err != nil {
		statusResolutions.WithLabelValues("error").Inc()
		return nil, &providers.GatewayError{Provider: "phonepe", Kind: providers.KindDecode, Err: err}
	}
	if !mapped {
		log.Warn("unmapped gateway status, treating as pending", zap.String("gateway_state", rawState))
	}

	changed, err := r.repo.UpdateStatus(ctx, txnID, state, raw)
	if err != nil {
		log.Error("failed to persist payment status", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	// A row that was already terminal keeps its stored status.
	if models.IsTerminal(txn.Status) {
		if txn.Status != state {
			log.Warn("gateway state disagrees with stored terminal status",
				zap.String("stored", txn.Status),
				zap.String("gateway", state),
			)
		}
		state = txn.Status
	}
	txn.Status = state

	// Each resolution is counted once; unmapped pending states get their own label.
	if !mapped && state == models.StatusPending {
		statusResolutions.WithLabelValues("unmapped").Inc()
	} else {
		statusResolutions.WithLabelValues(state).Inc()
	}
	log.Info("payment status resolved",
		zap.String("status", state),
		zap.String("gateway_state", rawState),
		zap.Bool("changed", changed),
	)

	r.runSideEffects(ctx, txn, state, changed)

	return &Resolution{
		TxnID:       txnID,
		State:       state,
		GatewayRaw:  rawState,
		Changed:     changed,
		Transaction: txn,
	}, nil
}

func (r *StatusResolver) runSideEffects(ctx context.Context, txn *models.Transaction, state string, changed bool) {
	if _, err := r.crm.Forward(ctx, txn.TxnID, LeadFromTransaction(txn, state), models.FormTypeBooking, state); err != nil && !errors.Is(err, ErrSkipped) {
		r.logger.Warn("crm forward failed", zap.String("txn_id", txn.TxnID), zap.Error(err))
	}

	switch state {
	case models.StatusCompleted:
		r.notifier.NotifyPayment(ctx, txn, models.OutcomeSuccess)
		recordCount(ctx, r.metrics, aws_pkg.MetricPaymentsCompleted, nil)
	case models.StatusFailed:
		r.notifier.NotifyPayment(ctx, txn, models.OutcomeFailure)
		recordCount(ctx, r.metrics, aws_pkg.MetricPaymentsFailed, nil)
	}

	if changed {
		r.publish(ctx, txn, state)
	}
}

func (r *StatusResolver) publish(ctx context.Context, txn *models.Transaction, state string) {
	eventType := models.EventPaymentFailed
	if state == models.StatusCompleted {
		eventType = models.EventPaymentCompleted
	}

	event := models.PaymentEvent{
		EventType: eventType,
		TxnID:     txn.TxnID,
		Status:    state,
		Amount:    txn.Amount.StringFixed(2),
		Variant:   txn.Variant,
		Color:     txn.Color,
		City:      txn.City,
		Timestamp: r.now().UTC(),
	}
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.logger.Warn("failed to publish payment event",
			zap.String("txn_id", txn.TxnID),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}

// ErrorPage picks the page shown for a Resolve or Initiate error.
func ErrorPage(err error) string {
	switch {
	case errors.Is(err, ErrTransactionNotFound):
		return templates.PageNotFound
	case errors.Is(err, ErrPersistence):
		return templates.PageDBError
	}

	switch providers.KindOf(err) {
	case providers.KindAuth:
		return templates.PageAuthError
	case providers.KindStatus:
		return templates.PageStatusError
	case providers.KindDecode:
		return templates.PageDecodeError
	default:
		return templates.PageGatewayError
	}
}
