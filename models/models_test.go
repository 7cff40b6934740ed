package models

import (
	"testing"
	"time"

	"ledgerbot/tools"

	"github.com/stretchr/testify/assert"
)

func TestBalanceApplyMatchesSignedEffect(t *testing.T) {
	now := time.Now()
	log := []Transaction{
		{Type: TRANSACTION_TYPE_DEBT, AmountCents: 10000, CreatedAt: &now},
		{Type: TRANSACTION_TYPE_PAYMENT, AmountCents: 2500},
		{Type: TRANSACTION_TYPE_CREDIT, AmountCents: 1000},
		{Type: TRANSACTION_TYPE_REFUND, AmountCents: 300},
	}

	var b Balance
	var sum int64
	for _, txn := range log {
		b.Apply(txn)
		sum += txn.SignedEffect()
	}

	assert.Equal(t, int64(10000), b.TotalDebtCents)
	assert.Equal(t, int64(1000), b.TotalCreditCents)
	assert.Equal(t, sum, b.BalanceCents)
	assert.Equal(t, int64(-6800), b.BalanceCents)
	assert.Equal(t, "debt", b.StatusLabel())
	assert.Equal(t, "credit", Balance{}.StatusLabel())
}

func TestDeltaForUnknownType(t *testing.T) {
	assert.Equal(t, Delta{}, DeltaFor("bogus", 100))
}

func TestSalesAgentRules(t *testing.T) {
	agent := SalesAgent{Name: "Avi", PhoneNumber: "972520000000", CommissionRateBps: 1000}
	assert.Empty(t, agent.MissingFields())
	assert.Empty(t, agent.InvalidFields())
	assert.Equal(t, int64(20000*1000), agent.CommissionFor(20000))

	full := SalesAgent{CommissionRateBps: 10000}
	assert.Equal(t, tools.MAX_AMOUNT_CENTS*10000, full.CommissionFor(tools.MAX_AMOUNT_CENTS))
	assert.Positive(t, full.CommissionFor(tools.MAX_AMOUNT_CENTS))

	assert.Equal(t, "name", SalesAgent{PhoneNumber: "1"}.MissingFields())
	assert.Equal(t, "commission_rate", SalesAgent{CommissionRateBps: 10001}.InvalidFields())
	assert.Equal(t, "email", SalesAgent{Email: "nope"}.InvalidFields())
}

func TestUserSubscriptionPredicates(t *testing.T) {
	u := User{SubscriptionStatus: SUBSCRIPTION_STATUS_NONE}
	assert.True(t, u.CanUseTrial())
	assert.False(t, u.HasActiveSubscription())

	u.SubscriptionStatus = SUBSCRIPTION_STATUS_TRIAL
	u.TrialUsed = true
	assert.True(t, u.HasActiveSubscription())
	assert.False(t, u.CanUseTrial())

	u.SubscriptionStatus = SUBSCRIPTION_STATUS_EXPIRED
	assert.False(t, u.HasActiveSubscription())
	assert.False(t, u.CanUseTrial())
}

func TestPlanFeatureList(t *testing.T) {
	p := Plan{Features: "א\n\n ב \n"}
	assert.Equal(t, []string{"א", "ב"}, p.FeatureList())
}
