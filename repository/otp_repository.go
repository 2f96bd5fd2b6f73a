package repository

import (
	"context"
	"time"

	"github.com/akshay-since1987/kineticev-sub002/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OTPRepository interface {
	Create(ctx context.Context, otp *models.OTPVerification) error
	// Latest returns the newest OTP issued for phone and purpose.
	Latest(ctx context.Context, phone, purpose string) (*models.OTPVerification, error)
	// FindActive returns the newest unexpired, unverified OTP.
	FindActive(ctx context.Context, phone, purpose string, now time.Time) (*models.OTPVerification, error)
	IncrementAttempts(ctx context.Context, id uuid.UUID) error
	MarkVerified(ctx context.Context, id uuid.UUID, at time.Time) error
	VerifiedSince(ctx context.Context, phone, purpose string, since time.Time) (bool, error)
}

type GormOTPRepository struct {
	db *gorm.DB
}

func NewGormOTPRepository(db *gorm.DB) OTPRepository {
	return &GormOTPRepository{db: db}
}

func (r *GormOTPRepository) Create(ctx context.Context, otp *models.OTPVerification) error {
	if otp.ID == uuid.Nil {
		otp.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(otp).Error
}

func (r *GormOTPRepository) Latest(ctx context.Context, phone, purpose string) (*models.OTPVerification, error) {
	var otp models.OTPVerification
	if err := r.db.WithContext(ctx).
		Where("phone = ? AND purpose = ?", phone, purpose).
		Order("created_at DESC").
		First(&otp).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &otp, nil
}

func (r *GormOTPRepository) FindActive(ctx context.Context, phone, purpose string, now time.Time) (*models.OTPVerification, error) {
	var otp models.OTPVerification
	if err := r.db.WithContext(ctx).
		Where("phone = ? AND purpose = ? AND verified_at IS NULL AND expires_at > ?", phone, purpose, now).
		Order("created_at DESC").
		First(&otp).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &otp, nil
}

func (r *GormOTPRepository) IncrementAttempts(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.OTPVerification{}).
		Where("id = ?", id).
		Update("attempts", gorm.Expr("attempts + 1")).Error
}

func (r *GormOTPRepository) MarkVerified(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.OTPVerification{}).
		Where("id = ? AND verified_at IS NULL", id).
		Update("verified_at", at).Error
}

func (r *GormOTPRepository) VerifiedSince(ctx context.Context, phone, purpose string, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OTPVerification{}).
		Where("phone = ? AND purpose = ? AND verified_at >= ?", phone, purpose, since).
		Count(&count).Error
	return count > 0, err
}
