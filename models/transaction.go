package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// IsTerminal reports whether status can no longer change.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

type Transaction struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	TxnID           string          `json:"txn_id" gorm:"column:txn_id;type:varchar(40);uniqueIndex;not null"`
	FirstName       string          `json:"first_name" gorm:"type:varchar(100);not null"`
	Phone           string          `json:"phone" gorm:"type:varchar(15);not null"`
	Email           string          `json:"email" gorm:"type:varchar(255);not null"`
	Address         string          `json:"address" gorm:"type:text;not null"`
	City            string          `json:"city" gorm:"type:varchar(100);not null"`
	State           string          `json:"state" gorm:"type:varchar(100);not null"`
	Pincode         string          `json:"pincode" gorm:"type:varchar(6);not null"`
	Variant         string          `json:"variant" gorm:"type:varchar(32);not null"`
	Color           string          `json:"color" gorm:"type:varchar(32);not null"`
	Amount          decimal.Decimal `json:"amount" gorm:"type:numeric(10,2);not null"`
	Status          string          `json:"status" gorm:"type:varchar(16);not null;default:PENDING"`
	GatewayOrderID  string          `json:"gateway_order_id,omitempty" gorm:"type:varchar(64)"`
	GatewayResponse datatypes.JSON  `json:"gateway_response,omitempty" gorm:"type:jsonb"`
	CreatedAt       time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

// TransactionFilter narrows the admin listing.
type TransactionFilter struct {
	Status   string
	Page     int
	PageSize int
}

// Normalize clamps paging to sane bounds.
func (f *TransactionFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 100 {
		f.PageSize = 20
	}
}
