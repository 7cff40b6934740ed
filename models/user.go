package models

import (
	"strings"
	"time"

	"ledgerbot/tools"
)

/************************************************
/**** MARK: SUBSCRIPTION STATUS ****/
/************************************************/
const SUBSCRIPTION_STATUS_NONE = "none"
const SUBSCRIPTION_STATUS_TRIAL = "trial"
const SUBSCRIPTION_STATUS_ACTIVE = "active"
const SUBSCRIPTION_STATUS_EXPIRED = "expired"
const SUBSCRIPTION_STATUS_CANCELLED = "cancelled"

/************************************************
/**** MARK: SUBSCRIPTION PLANS ****/
/************************************************/
const PLAN_BASIC = "basic"
const PLAN_PREMIUM = "premium"

// User is a chat contact identified by phone number. Users are never deleted.
type User struct {
	ID                   int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	PhoneNumber          string     `gorm:"not null;unique_index" json:"phone_number"`
	Name                 string     `gorm:"default:''" json:"name" form:"name"`
	Email                string     `gorm:"default:''" json:"email" form:"email"`
	SubscriptionStatus   string     `gorm:"not null;default:'none';index" json:"subscription_status"`
	SubscriptionPlan     string     `gorm:"default:''" json:"subscription_plan,omitempty"`
	SubscriptionStart    *time.Time `json:"subscription_start,omitempty"`
	SubscriptionEnd      *time.Time `gorm:"index" json:"subscription_end,omitempty"`
	ExternalCustomerID   string     `gorm:"column:external_customer_id;index" json:"-"`
	ExternalSubscription string     `gorm:"column:external_subscription_id" json:"-"`
	TrialUsed            bool       `gorm:"not null;default:false" json:"trial_used"`
	MessageCount         int64      `gorm:"not null;default:0" json:"message_count"`
	LastMessageAt        *time.Time `json:"last_message_at,omitempty"`
	CreatedAt            *time.Time `json:"created_at"`
	UpdatedAt            *time.Time `json:"updated_at"`
}

// HasActiveSubscription is true while the user is on a paid plan or a trial.
func (user User) HasActiveSubscription() bool {
	return user.SubscriptionStatus == SUBSCRIPTION_STATUS_ACTIVE ||
		user.SubscriptionStatus == SUBSCRIPTION_STATUS_TRIAL
}

// CanUseTrial is true only for users who never subscribed and never trialed.
func (user User) CanUseTrial() bool {
	return !user.TrialUsed && user.SubscriptionStatus == SUBSCRIPTION_STATUS_NONE
}

func (user User) MissingFields() string {
	if strings.TrimSpace(user.PhoneNumber) == "" {
		return "phone_number"
	}
	return ""
}

func (user User) InvalidFields() string {
	if user.Email != "" && !tools.ValidateEmail(user.Email) {
		return "email"
	}
	return ""
}

func IsValidPlan(plan string) bool {
	return plan == PLAN_BASIC || plan == PLAN_PREMIUM
}
