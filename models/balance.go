package models

import "time"

// Balance is the materialized fold of a user's transactions.
// BalanceCents is positive when the business owes the user, negative when the user owes.
type Balance struct {
	ID                int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	UserID            int64      `gorm:"not null;unique_index" json:"user_id"`
	TotalDebtCents    int64      `gorm:"not null;default:0" json:"total_debt_cents"`
	TotalCreditCents  int64      `gorm:"not null;default:0" json:"total_credit_cents"`
	BalanceCents      int64      `gorm:"not null;default:0;index" json:"balance_cents"`
	LastTransactionAt *time.Time `json:"last_transaction_at,omitempty"`
	CreatedAt         *time.Time `json:"created_at"`
	UpdatedAt         *time.Time `json:"updated_at"`
}

// Delta is the change a single transaction applies to a Balance.
type Delta struct {
	Debt    int64
	Credit  int64
	Balance int64
}

// DeltaFor returns the balance change for a transaction of the given type.
func DeltaFor(txType string, amountCents int64) Delta {
	switch txType {
	case TRANSACTION_TYPE_PAYMENT:
		return Delta{Balance: amountCents}
	case TRANSACTION_TYPE_DEBT:
		return Delta{Debt: amountCents, Balance: -amountCents}
	case TRANSACTION_TYPE_CREDIT:
		return Delta{Credit: amountCents, Balance: amountCents}
	case TRANSACTION_TYPE_REFUND:
		return Delta{Balance: -amountCents}
	}
	return Delta{}
}

// Apply folds one transaction into the in-memory snapshot.
func (b *Balance) Apply(t Transaction) {
	d := DeltaFor(t.Type, t.AmountCents)
	b.TotalDebtCents += d.Debt
	b.TotalCreditCents += d.Credit
	b.BalanceCents += d.Balance
	b.LastTransactionAt = t.CreatedAt
}

// StatusLabel is "credit" when the user is not in debt.
func (b Balance) StatusLabel() string {
	if b.BalanceCents >= 0 {
		return "credit"
	}
	return "debt"
}
