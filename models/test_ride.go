package models

import (
	"time"

	"github.com/google/uuid"
)

type TestRide struct {
	ID            uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Name          string     `json:"name" gorm:"type:varchar(100);not null"`
	Phone         string     `json:"phone" gorm:"type:varchar(15);not null"`
	Email         string     `json:"email" gorm:"type:varchar(255);not null"`
	Pincode       string     `json:"pincode" gorm:"type:varchar(6);not null"`
	City          string     `json:"city,omitempty" gorm:"type:varchar(100)"`
	PreferredDate *time.Time `json:"preferred_date,omitempty" gorm:"type:date"`
	Message       string     `json:"message,omitempty" gorm:"type:text"`
	OTPVerified   bool       `json:"otp_verified" gorm:"column:otp_verified;not null;default:false"`
	CRMRecordID   string     `json:"crm_record_id,omitempty" gorm:"column:crm_record_id;type:varchar(32)"`
	CreatedAt     time.Time  `json:"created_at" gorm:"autoCreateTime"`
}
