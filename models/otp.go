package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	OTPPurposeTestRide = "test_ride"
	OTPPurposeBooking  = "booking"
	OTPPurposeContact  = "contact"
)

// ValidOTPPurpose reports whether p is a recognised purpose.
func ValidOTPPurpose(p string) bool {
	switch p {
	case OTPPurposeTestRide, OTPPurposeBooking, OTPPurposeContact:
		return true
	}
	return false
}

type OTPVerification struct {
	ID         uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Phone      string     `json:"phone" gorm:"type:varchar(15);not null;index:idx_otp_phone_purpose"`
	Purpose    string     `json:"purpose" gorm:"type:varchar(16);not null;index:idx_otp_phone_purpose"`
	CodeHash   string     `json:"-" gorm:"type:varchar(100);not null"`
	Attempts   int        `json:"attempts" gorm:"not null;default:0"`
	ExpiresAt  time.Time  `json:"expires_at" gorm:"not null"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at" gorm:"autoCreateTime"`
}
