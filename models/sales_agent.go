package models

import (
	"strings"
	"time"

	"ledgerbot/tools"
)

// SalesAgent earns commission on the debts that reference them.
// The rate is in basis points and commission is kept in micro-units of the currency,
// so amount × rate never rounds.
type SalesAgent struct {
	ID                   int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	Name                 string     `gorm:"not null" json:"name" form:"name"`
	PhoneNumber          string     `gorm:"not null;unique_index" json:"phone_number" form:"phone_number"`
	Email                string     `gorm:"default:''" json:"email" form:"email"`
	CommissionRateBps    int64      `gorm:"not null" json:"commission_rate_bps"`
	TotalSalesCents      int64      `gorm:"not null;default:0" json:"total_sales_cents"`
	TotalCommissionMicro int64      `gorm:"column:total_commission_micro;not null;default:0" json:"-"`
	Active               bool       `gorm:"not null;default:true;index" json:"active"`
	CreatedAt            *time.Time `json:"created_at"`
	UpdatedAt            *time.Time `json:"updated_at"`
}

// CommissionFor returns the commission on amountCents in micro-units.
func (agent SalesAgent) CommissionFor(amountCents int64) int64 {
	return amountCents * agent.CommissionRateBps
}

func (agent SalesAgent) MissingFields() string {
	if strings.TrimSpace(agent.Name) == "" {
		return "name"
	} else if strings.TrimSpace(agent.PhoneNumber) == "" {
		return "phone_number"
	}
	return ""
}

func (agent SalesAgent) InvalidFields() string {
	if agent.CommissionRateBps < 0 || agent.CommissionRateBps > 10000 {
		return "commission_rate"
	}
	if agent.Email != "" && !tools.ValidateEmail(agent.Email) {
		return "email"
	}
	return ""
}
