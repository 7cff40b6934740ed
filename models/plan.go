package models

import (
	"strings"
	"time"
)

// Plan is a commercial plan listed by the subscribe command.
type Plan struct {
	ID           int64  `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	Name         string `gorm:"not null;unique" json:"name" form:"name"`
	Type         string `gorm:"not null;unique_index" json:"type" form:"type"` // basic|premium
	Description  string `gorm:"type:text" json:"description" form:"description"`
	PriceCents   int64  `gorm:"not null;default:0" json:"price_cents" form:"price_cents"`
	Currency     string `gorm:"not null;default:'ILS'" json:"currency" form:"currency"`
	DurationDays int    `gorm:"not null;default:30" json:"duration_days" form:"duration_days"`

	// Features is a newline separated list shown to the user.
	Features string `gorm:"type:text" json:"-"`

	// MessageLimit 0 means unlimited.
	MessageLimit    int64      `gorm:"not null;default:0" json:"message_limit" form:"message_limit"`
	ExternalPriceID string     `gorm:"column:external_price_id;default:''" json:"external_price_id"`
	IsActive        bool       `gorm:"not null;default:true" json:"is_active" form:"is_active"`
	CreatedAt       *time.Time `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at"`
}

func (plan Plan) FeatureList() []string {
	var out []string
	for _, f := range strings.Split(plan.Features, "\n") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
