package models

import "time"

// Claim states for side-effect logs. A row is inserted as claimed before
// the external call and moved to sent once it succeeds.
const (
	ClaimStateClaimed = "claimed"
	ClaimStateSent    = "sent"
)

const (
	FormTypeBooking  = "booking"
	FormTypeTestRide = "test_ride"
)

const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeDBFailure = "db_failure"
	OutcomeTestRide  = "test_ride"
)

const (
	RecipientKindAdmin    = "admin"
	RecipientKindCustomer = "customer"
)

// SubmissionRecord is the CRM dedup log keyed by (txn_id, status, form_type).
type SubmissionRecord struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	TxnID       string    `json:"txn_id" gorm:"column:txn_id;type:varchar(64);not null;uniqueIndex:uq_crm_submissions_key"`
	Status      string    `json:"status" gorm:"type:varchar(16);not null;uniqueIndex:uq_crm_submissions_key"`
	FormType    string    `json:"form_type" gorm:"type:varchar(32);not null;uniqueIndex:uq_crm_submissions_key"`
	CRMRecordID string    `json:"crm_record_id,omitempty" gorm:"column:crm_record_id;type:varchar(32)"`
	State       string    `json:"state" gorm:"type:varchar(16);not null;default:claimed"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (SubmissionRecord) TableName() string { return "crm_submissions" }

// EmailLog is the email dedup log keyed by (txn_id, outcome, recipient).
type EmailLog struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TxnID     string    `json:"txn_id" gorm:"column:txn_id;type:varchar(64);not null;uniqueIndex:uq_email_logs_key"`
	Outcome   string    `json:"outcome" gorm:"type:varchar(16);not null;uniqueIndex:uq_email_logs_key"`
	Recipient string    `json:"recipient" gorm:"type:varchar(255);not null;uniqueIndex:uq_email_logs_key"`
	Kind      string    `json:"kind" gorm:"type:varchar(16);not null"`
	State     string    `json:"state" gorm:"type:varchar(16);not null;default:claimed"`
	MessageID string    `json:"message_id,omitempty" gorm:"type:varchar(255)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
