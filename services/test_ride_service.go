package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/akshay-since1987/kineticev-sub002/models"
	"github.com/akshay-since1987/kineticev-sub002/repository"
)

// testRideOTPWindow is how recent an OTP verification must be.
const testRideOTPWindow = 30 * time.Minute

// TestRideRequest is the test-drive form, posted as form fields or JSON.
type TestRideRequest struct {
	Name    string `form:"name" json:"name" validate:"required,max=100,alpha_space"`
	Phone   string `form:"phone" json:"phone" validate:"required,in_mobile"`
	Email   string `form:"email" json:"email" validate:"required,max=255,email"`
	Pincode string `form:"pincode" json:"pincode" validate:"required,pincode"`
	City    string `form:"city" json:"city" validate:"max=100"`
	Date    string `form:"date" json:"date"`
	Message string `form:"message" json:"message" validate:"max=1000"`
}

var testRideLabels = map[string]string{
	"name":    "Name",
	"phone":   "Phone",
	"email":   "Email",
	"pincode": "Pincode",
	"city":    "City",
	"message": "Message",
}

type TestRideService struct {
	repo       repository.TestRideRepository
	otp        *OTPService
	crm        *CRMForwarder
	notifier   *Notifier
	validator  *RequestValidator
	requireOTP bool
	logger     *zap.Logger
	now        func() time.Time
}

func NewTestRideService(
	repo repository.TestRideRepository,
	otp *OTPService,
	crm *CRMForwarder,
	notifier *Notifier,
	validator *RequestValidator,
	requireOTP bool,
	logger *zap.Logger,
) *TestRideService {
	return &TestRideService{
		repo:       repo,
		otp:        otp,
		crm:        crm,
		notifier:   notifier,
		validator:  validator,
		requireOTP: requireOTP,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *TestRideService) validate(req *TestRideRequest) (*time.Time, map[string]string) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = NormalizePhone(req.Phone)
	req.Email = strings.TrimSpace(req.Email)
	req.Pincode = strings.TrimSpace(req.Pincode)
	req.City = strings.TrimSpace(req.City)
	req.Message = strings.TrimSpace(req.Message)

	errs := make(map[string]string)
	for _, fe := range s.validator.Struct(req, testRideLabels) {
		errs[fe.Field] = fe.Message
	}

	var date *time.Time
	if d := strings.TrimSpace(req.Date); d != "" {
		parsed, err := time.Parse("2006-01-02", d)
		now := s.now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		switch {
		case err != nil:
			errs["date"] = "Date must be in YYYY-MM-DD format"
		case parsed.Before(today):
			errs["date"] = "Date cannot be in the past"
		default:
			date = &parsed
		}
	}
	return date, errs
}

// Submit records a test-ride request, forwards it to the CRM and alerts
// admins. CRM and email failures do not fail the submission.
func (s *TestRideService) Submit(ctx context.Context, req *TestRideRequest) (*models.TestRide, *ServiceError) {
	date, errs := s.validate(req)
	if len(errs) > 0 {
		return nil, &ServiceError{
			StatusCode: http.StatusUnprocessableEntity,
			Message:    "Please correct the highlighted fields",
			Errors:     errs,
		}
	}

	verified := false
	if s.otp != nil {
		ok, err := s.otp.IsVerified(ctx, req.Phone, models.OTPPurposeTestRide, testRideOTPWindow)
		if err != nil {
			s.logger.Error("failed to check otp verification", zap.String("phone", req.Phone), zap.Error(err))
			return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Could not submit your request"}
		}
		verified = ok
	}
	if s.requireOTP && !verified {
		return nil, &ServiceError{StatusCode: http.StatusForbidden, Message: "Please verify your phone number with the OTP first"}
	}

	ride := &models.TestRide{
		ID:            uuid.New(),
		Name:          req.Name,
		Phone:         req.Phone,
		Email:         req.Email,
		Pincode:       req.Pincode,
		City:          req.City,
		PreferredDate: date,
		Message:       req.Message,
		OTPVerified:   verified,
	}
	if err := s.repo.Create(ctx, ride); err != nil {
		s.logger.Error("failed to save test ride", zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Could not submit your request"}
	}

	key := TestRideKey(ride)
	recordID, err := s.crm.Forward(ctx, key, LeadFromTestRide(ride), models.FormTypeTestRide, StatusSubmitted)
	switch {
	case err == nil:
		ride.CRMRecordID = recordID
		if err := s.repo.SetCRMRecordID(ctx, ride.ID, recordID); err != nil {
			s.logger.Warn("failed to store crm id on test ride", zap.String("key", key), zap.Error(err))
		}
	case !errors.Is(err, ErrSkipped):
		s.logger.Warn("test ride crm forward failed", zap.String("key", key), zap.Error(err))
	}

	s.notifier.NotifyTestRide(ctx, ride)

	s.logger.Info("test ride submitted", zap.String("key", key), zap.Bool("otp_verified", verified))
	return ride, nil
}

// FindByKey loads a test ride from its TR-<uuid> key.
func (s *TestRideService) FindByKey(ctx context.Context, key string) (*models.TestRide, error) {
	id, err := uuid.Parse(strings.TrimPrefix(key, "TR-"))
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}
