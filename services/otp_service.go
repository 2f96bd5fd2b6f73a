package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"regexp"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/akshay-since1987/kineticev-sub002/models"
	"github.com/akshay-since1987/kineticev-sub002/repository"
	"github.com/akshay-since1987/kineticev-sub002/sender"
)

var otpCodeRe = regexp.MustCompile(`^\d{6}$`)

type OTPConfig struct {
	Cooldown    time.Duration
	TTL         time.Duration
	MaxAttempts int
	HashCost    int
}

// DefaultOTPConfig: one code per minute, valid ten minutes, five guesses.
func DefaultOTPConfig() OTPConfig {
	return OTPConfig{
		Cooldown:    60 * time.Second,
		TTL:         10 * time.Minute,
		MaxAttempts: 5,
		HashCost:    bcrypt.DefaultCost,
	}
}

// OTPIssued is returned after a code has been sent.
type OTPIssued struct {
	ExpiresIn int `json:"expires_in"`
}

// OTPService issues and checks one-time SMS codes.
type OTPService struct {
	repo   repository.OTPRepository
	sms    sender.SMSSender
	cfg    OTPConfig
	logger *zap.Logger
	now    func() time.Time
}

func NewOTPService(repo repository.OTPRepository, sms sender.SMSSender, cfg OTPConfig, logger *zap.Logger) *OTPService {
	return &OTPService{repo: repo, sms: sms, cfg: cfg, logger: logger, now: time.Now}
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func validateOTPTarget(phone, purpose string) *ServiceError {
	if !mobileRe.MatchString(phone) {
		return &ServiceError{StatusCode: http.StatusBadRequest, Message: "Please enter a valid 10-digit mobile number"}
	}
	if !models.ValidOTPPurpose(purpose) {
		return &ServiceError{StatusCode: http.StatusBadRequest, Message: "Invalid OTP purpose"}
	}
	return nil
}

// Generate sends a fresh code to phone unless one went out within the
// cooldown.
func (s *OTPService) Generate(ctx context.Context, rawPhone, purpose string) (*OTPIssued, *ServiceError) {
	phone := NormalizePhone(rawPhone)
	if svcErr := validateOTPTarget(phone, purpose); svcErr != nil {
		return nil, svcErr
	}
	now := s.now()

	latest, err := s.repo.Latest(ctx, phone, purpose)
	switch {
	case err == nil:
		if wait := s.cfg.Cooldown - now.Sub(latest.CreatedAt); wait > 0 {
			secs := int(wait.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}
			return nil, &ServiceError{
				StatusCode: http.StatusTooManyRequests,
				Message:    fmt.Sprintf("Please wait %d seconds before requesting another OTP", secs),
			}
		}
	case !errors.Is(err, repository.ErrNotFound):
		s.logger.Error("failed to load latest otp", zap.String("phone", phone), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Could not generate OTP"}
	}

	code, err := generateCode()
	if err != nil {
		s.logger.Error("otp generation failed", zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Could not generate OTP"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cfg.HashCost)
	if err != nil {
		s.logger.Error("otp hashing failed", zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Could not generate OTP"}
	}

	otp := &models.OTPVerification{
		Phone:     phone,
		Purpose:   purpose,
		CodeHash:  string(hash),
		ExpiresAt: now.Add(s.cfg.TTL),
	}
	if err := s.repo.Create(ctx, otp); err != nil {
		s.logger.Error("failed to save otp", zap.String("phone", phone), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Could not generate OTP"}
	}

	msg := fmt.Sprintf("%s is your Kinetic EV verification code. It is valid for %d minutes.", code, int(s.cfg.TTL/time.Minute))
	if _, err := s.sms.SendSMS(ctx, phone, msg); err != nil {
		s.logger.Error("failed to send otp sms", zap.String("phone", phone), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusBadGateway, Message: "Could not send OTP. Please try again."}
	}

	s.logger.Info("otp sent", zap.String("phone", phone), zap.String("purpose", purpose))
	return &OTPIssued{ExpiresIn: int(s.cfg.TTL / time.Second)}, nil
}

// Verify checks code against the newest active OTP for phone.
func (s *OTPService) Verify(ctx context.Context, rawPhone, code, purpose string) *ServiceError {
	phone := NormalizePhone(rawPhone)
	if svcErr := validateOTPTarget(phone, purpose); svcErr != nil {
		return svcErr
	}
	if !otpCodeRe.MatchString(code) {
		return &ServiceError{StatusCode: http.StatusBadRequest, Message: "OTP must be 6 digits"}
	}
	now := s.now()

	otp, err := s.repo.FindActive(ctx, phone, purpose, now)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &ServiceError{StatusCode: http.StatusBadRequest, Message: "OTP expired or not found. Please request a new one."}
		}
		s.logger.Error("failed to load otp", zap.String("phone", phone), zap.Error(err))
		return &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Could not verify OTP"}
	}

	if otp.Attempts >= s.cfg.MaxAttempts {
		return &ServiceError{StatusCode: http.StatusTooManyRequests, Message: "Too many incorrect attempts. Please request a new OTP."}
	}
	if err := s.repo.IncrementAttempts(ctx, otp.ID); err != nil {
		s.logger.Error("failed to count otp attempt", zap.Error(err))
		return &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Could not verify OTP"}
	}

	if bcrypt.CompareHashAndPassword([]byte(otp.CodeHash), []byte(code)) != nil {
		left := s.cfg.MaxAttempts - otp.Attempts - 1
		s.logger.Info("otp mismatch", zap.String("phone", phone), zap.Int("attempts_left", left))
		if left <= 0 {
			return &ServiceError{StatusCode: http.StatusTooManyRequests, Message: "Too many incorrect attempts. Please request a new OTP."}
		}
		return &ServiceError{StatusCode: http.StatusBadRequest, Message: fmt.Sprintf("Invalid OTP. %d attempts left.", left)}
	}

	if err := s.repo.MarkVerified(ctx, otp.ID, now); err != nil {
		s.logger.Error("failed to mark otp verified", zap.Error(err))
		return &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Could not verify OTP"}
	}
	s.logger.Info("otp verified", zap.String("phone", phone), zap.String("purpose", purpose))
	return nil
}

// IsVerified reports whether phone passed OTP verification within the window.
func (s *OTPService) IsVerified(ctx context.Context, rawPhone, purpose string, within time.Duration) (bool, error) {
	return s.repo.VerifiedSince(ctx, NormalizePhone(rawPhone), purpose, s.now().Add(-within))
}
