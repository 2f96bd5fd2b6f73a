package models

import "time"

const (
	EventPaymentCompleted = "payment_completed"
	EventPaymentFailed    = "payment_failed"
	EventPaymentPending   = "payment_pending"
)

// PaymentEvent is published after a status resolution persists a change.
// Amount is rupees with two decimals.
type PaymentEvent struct {
	EventType string    `json:"event_type"`
	TxnID     string    `json:"txn_id"`
	Status    string    `json:"status"`
	Amount    string    `json:"amount"`
	Variant   string    `json:"variant"`
	Color     string    `json:"color"`
	City      string    `json:"city"`
	Timestamp time.Time `json:"timestamp"`
}

// Side-effect job kinds carried on the retry queue.
const (
	JobKindCRM   = "crm"
	JobKindEmail = "email"
)

// SideEffectJob is the retry queue message body.
type SideEffectJob struct {
	Kind      string `json:"kind"`
	TxnID     string `json:"txn_id"`
	Status    string `json:"status,omitempty"`
	FormType  string `json:"form_type,omitempty"`
	Outcome   string `json:"outcome,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Attempt   int    `json:"attempt"`
}
