package models

import "time"

/************************************************
/**** MARK: TRANSACTION TYPES ****/
/************************************************/
const TRANSACTION_TYPE_PAYMENT = "payment"
const TRANSACTION_TYPE_DEBT = "debt"
const TRANSACTION_TYPE_CREDIT = "credit"
const TRANSACTION_TYPE_REFUND = "refund"

/************************************************
/**** MARK: TRANSACTION STATUS ****/
/************************************************/
const TRANSACTION_STATUS_PENDING = "pending"
const TRANSACTION_STATUS_COMPLETED = "completed"
const TRANSACTION_STATUS_CANCELLED = "cancelled"

/************************************************
/**** MARK: PAYMENT METHODS ****/
/************************************************/
const PAYMENT_METHOD_CASH = "cash"
const PAYMENT_METHOD_CREDIT_CARD = "credit_card"
const PAYMENT_METHOD_BANK_TRANSFER = "bank_transfer"
const PAYMENT_METHOD_CHECK = "check"
const PAYMENT_METHOD_OTHER = "other"

// Transaction is an append-only ledger entry. Rows are never updated;
// corrections are recorded as new entries.
type Transaction struct {
	ID              int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	UserID          int64      `gorm:"not null;index" json:"user_id"`
	SalesAgentID    *int64     `gorm:"index" json:"sales_agent_id,omitempty"`
	SalesAgent      *AgentRef  `gorm:"-" json:"sales_agent,omitempty"`
	Type            string     `gorm:"not null;index" json:"type"`
	AmountCents     int64      `gorm:"not null" json:"amount_cents"`
	Description     string     `gorm:"type:text;not null" json:"description"`
	ReferenceNumber string     `gorm:"default:''" json:"reference_number,omitempty"`
	PaymentMethod   string     `gorm:"default:''" json:"payment_method,omitempty"`
	Status          string     `gorm:"not null;default:'completed'" json:"status"`
	CreatedBy       string     `gorm:"default:''" json:"created_by,omitempty"`
	CreatedAt       *time.Time `gorm:"index" json:"created_at"`
}

// AgentRef is the resolved identity of the sales agent behind a transaction.
type AgentRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// SignedEffect is the amount this entry adds to the user's net balance.
func (t Transaction) SignedEffect() int64 {
	switch t.Type {
	case TRANSACTION_TYPE_DEBT, TRANSACTION_TYPE_REFUND:
		return -t.AmountCents
	case TRANSACTION_TYPE_PAYMENT, TRANSACTION_TYPE_CREDIT:
		return t.AmountCents
	}
	return 0
}

func IsValidPaymentMethod(method string) bool {
	switch method {
	case PAYMENT_METHOD_CASH, PAYMENT_METHOD_CREDIT_CARD, PAYMENT_METHOD_BANK_TRANSFER,
		PAYMENT_METHOD_CHECK, PAYMENT_METHOD_OTHER:
		return true
	}
	return false
}
