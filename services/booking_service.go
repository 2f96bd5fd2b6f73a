package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jaevor/go-nanoid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/akshay-since1987/kineticev-sub002/models"
	aws_pkg "github.com/akshay-since1987/kineticev-sub002/pkg/aws"
	"github.com/akshay-since1987/kineticev-sub002/providers"
	"github.com/akshay-since1987/kineticev-sub002/repository"
)

// BookingRequest is the booking form as posted by the website.
type BookingRequest struct {
	FirstName string `form:"firstname" json:"firstname" validate:"required,max=100,alpha_space"`
	Phone     string `form:"phone" json:"phone" validate:"required,in_mobile"`
	Email     string `form:"email" json:"email" validate:"required,max=255,email"`
	Address   string `form:"address" json:"address" validate:"required,max=500"`
	City      string `form:"city" json:"city" validate:"required,max=100"`
	State     string `form:"state" json:"state" validate:"required,max=100"`
	Pincode   string `form:"pincode" json:"pincode" validate:"required,pincode"`
	Variant   string `form:"variant" json:"variant" validate:"required"`
	Color     string `form:"color" json:"color" validate:"required"`
	Terms     string `form:"terms" json:"terms"`
	TxnID     string `form:"txnid" json:"txnid"`
	Amount    string `form:"amount" json:"amount" validate:"required"`
}

var bookingLabels = map[string]string{
	"firstname": "Name",
	"phone":     "Phone",
	"email":     "Email",
	"address":   "Address",
	"city":      "City",
	"state":     "State",
	"pincode":   "Pincode",
	"variant":   "Variant",
	"color":     "Colour",
	"amount":    "Amount",
}

func (r *BookingRequest) normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.Phone = NormalizePhone(r.Phone)
	r.Email = strings.TrimSpace(r.Email)
	r.Address = strings.TrimSpace(r.Address)
	r.City = strings.TrimSpace(r.City)
	r.State = strings.TrimSpace(r.State)
	r.Pincode = strings.TrimSpace(r.Pincode)
	r.Variant = strings.ToLower(strings.TrimSpace(r.Variant))
	r.Color = strings.ToLower(strings.TrimSpace(r.Color))
	r.TxnID = strings.TrimSpace(r.TxnID)
	r.Amount = strings.TrimSpace(r.Amount)
}

// Reasons Initiate can stop before handing the user to the gateway.
const (
	FailValidation = "validation"
	FailDatabase   = "database"
	FailGateway    = "gateway"
)

// BookingError reports why a booking was not handed to the gateway.
type BookingError struct {
	Reason  string
	Message string
	TxnID   string
	Err     error
}

func (e *BookingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("booking %s failure: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("booking %s failure: %s", e.Reason, e.Message)
}

func (e *BookingError) Unwrap() error { return e.Err }

// InitiateResult carries the checkout URL the browser is sent to.
type InitiateResult struct {
	TxnID       string
	CheckoutURL string
}

// NewTxnIDGenerator returns a generator of ids shaped KEV<unix><8 random>.
func NewTxnIDGenerator() (func() string, error) {
	random, err := nanoid.Standard(8)
	if err != nil {
		return nil, err
	}
	return func() string {
		return "KEV" + strconv.FormatInt(time.Now().Unix(), 10) + random()
	}, nil
}

type BookingConfig struct {
	BaseURL  string
	Variants []string
	Colors   []string
}

// BookingService validates booking forms, records them and opens a gateway
// checkout.
type BookingService struct {
	repo      repository.TransactionRepository
	gateway   providers.PaymentGateway
	notifier  *Notifier
	validator *RequestValidator
	newTxnID  func() string
	cfg       BookingConfig
	metrics   aws_pkg.MetricsRecorder
	logger    *zap.Logger
}

func NewBookingService(
	repo repository.TransactionRepository,
	gateway providers.PaymentGateway,
	notifier *Notifier,
	validator *RequestValidator,
	newTxnID func() string,
	cfg BookingConfig,
	metrics aws_pkg.MetricsRecorder,
	logger *zap.Logger,
) *BookingService {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &BookingService{
		repo:      repo,
		gateway:   gateway,
		notifier:  notifier,
		validator: validator,
		newTxnID:  newTxnID,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger,
	}
}

// Validate normalizes req in place and returns every problem found, joined
// with "; ". The amount is returned parsed when valid.
func (s *BookingService) Validate(req *BookingRequest) (decimal.Decimal, string) {
	req.normalize()

	var msgs []string
	failed := make(map[string]bool)
	for _, fe := range s.validator.Struct(req, bookingLabels) {
		msgs = append(msgs, fe.Message)
		failed[fe.Field] = true
	}

	if !failed["variant"] && !contains(s.cfg.Variants, req.Variant) {
		msgs = append(msgs, "Variant is not available")
	}
	if !failed["color"] && !contains(s.cfg.Colors, req.Color) {
		msgs = append(msgs, "Colour is not available")
	}
	if !TermsAccepted(req.Terms) {
		msgs = append(msgs, "You must accept the terms and conditions")
	}

	amount, ok := ParseAmount(req.Amount)
	if !failed["amount"] && !ok {
		msgs = append(msgs, "Amount must be a positive number with at most two decimal places, up to "+models.FormatINR(models.MaxAmount))
	}

	return amount, strings.Join(msgs, "; ")
}

// Initiate records a PENDING booking and opens a checkout for it. The row is
// written before any gateway call.
func (s *BookingService) Initiate(ctx context.Context, req *BookingRequest) (*InitiateResult, error) {
	amount, msg := s.Validate(req)
	if msg != "" {
		paymentsInitiated.WithLabelValues(FailValidation).Inc()
		return nil, &BookingError{Reason: FailValidation, Message: msg}
	}

	paise, err := models.ToPaise(amount)
	if err != nil {
		paymentsInitiated.WithLabelValues(FailValidation).Inc()
		return nil, &BookingError{Reason: FailValidation, Message: err.Error()}
	}

	txnID := req.TxnID
	if !IsValidTxnID(txnID) {
		txnID = s.newTxnID()
	}

	txn := &models.Transaction{
		TxnID:     txnID,
		FirstName: req.FirstName,
		Phone:     req.Phone,
		Email:     req.Email,
		Address:   req.Address,
		City:      req.City,
		State:     req.State,
		Pincode:   req.Pincode,
		Variant:   req.Variant,
		Color:     req.Color,
		Amount:    amount,
		Status:    models.StatusPending,
	}

	err = s.repo.Create(ctx, txn)
	if errors.Is(err, repository.ErrDuplicateTxnID) && req.TxnID != "" {
		// A resubmitted form reuses its txn id; give the new attempt a fresh one.
		txn.TxnID = s.newTxnID()
		err = s.repo.Create(ctx, txn)
	}
	if err != nil {
		s.logger.Error("failed to save booking", zap.String("txn_id", txn.TxnID), zap.Error(err))
		paymentsInitiated.WithLabelValues(FailDatabase).Inc()
		s.notifier.NotifyDBFailure(ctx, txn, err)
		return nil, &BookingError{Reason: FailDatabase, TxnID: txn.TxnID, Err: err}
	}

	log := s.logger.With(zap.String("txn_id", txn.TxnID))
	recordCount(ctx, s.metrics, aws_pkg.MetricBookingsInitiated, map[string]string{"Variant": txn.Variant})

	token, err := s.gateway.FetchToken(ctx)
	if err != nil {
		log.Error("gateway authentication failed", zap.Error(err))
		paymentsInitiated.WithLabelValues(FailGateway).Inc()
		return nil, &BookingError{Reason: FailGateway, TxnID: txn.TxnID, Err: err}
	}

	order, err := s.gateway.CreateOrder(ctx, token, providers.CreateOrderRequest{
		MerchantOrderID: txn.TxnID,
		AmountPaise:     paise,
		RedirectURL:     s.StatusURL(txn.TxnID),
		Message:         "Kinetic EV booking " + txn.TxnID,
		MetaInfo: map[string]string{
			"udf1": txn.Variant,
			"udf2": txn.Color,
			"udf3": txn.Phone,
		},
	})
	if err != nil {
		log.Error("gateway order creation failed", zap.String("kind", providers.KindOf(err)), zap.Error(err))
		paymentsInitiated.WithLabelValues(FailGateway).Inc()
		return nil, &BookingError{Reason: FailGateway, TxnID: txn.TxnID, Err: err}
	}

	if order.OrderID != "" {
		if err := s.repo.SetGatewayOrderID(ctx, txn.TxnID, order.OrderID); err != nil {
			log.Warn("failed to store gateway order id", zap.Error(err))
		}
	}

	paymentsInitiated.WithLabelValues("redirected").Inc()
	log.Info("booking sent to gateway",
		zap.String("amount", amount.StringFixed(2)),
		zap.Int64("amount_paise", paise),
		zap.String("gateway_order_id", order.OrderID),
	)
	return &InitiateResult{TxnID: txn.TxnID, CheckoutURL: order.RedirectURL}, nil
}

// StatusURL is where the gateway sends the browser back after checkout.
func (s *BookingService) StatusURL(txnID string) string {
	return s.cfg.BaseURL + "/payment/status?txnid=" + url.QueryEscape(txnID)
}
