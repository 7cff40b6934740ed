package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"ledgerbot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartTrial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "972501234567")
	require.True(t, f.subscriptions.CanUseTrial(u))

	got, err := f.subscriptions.StartTrial(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SUBSCRIPTION_STATUS_TRIAL, got.SubscriptionStatus)
	assert.True(t, got.TrialUsed)
	require.NotNil(t, got.SubscriptionEnd)
	assert.True(t, got.SubscriptionEnd.Equal(f.now.AddDate(0, 0, 7)))
	assert.True(t, f.subscriptions.HasActiveSubscription(got))
	assert.False(t, f.subscriptions.CanUseTrial(got))
}

func TestStartTrialTwiceFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "972501234567")

	_, err := f.subscriptions.StartTrial(ctx, u.ID)
	require.NoError(t, err)

	_, err = f.subscriptions.StartTrial(ctx, u.ID)
	assert.ErrorIs(t, err, ErrAlreadyUsedTrial)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestStartTrialWhileActiveFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "972501234567")

	_, err := f.subscriptions.ActivateSubscription(ctx, u.ID, models.PLAN_BASIC, "sub_1", "cus_1")
	require.NoError(t, err)

	_, err = f.subscriptions.StartTrial(ctx, u.ID)
	assert.ErrorIs(t, err, ErrAlreadyActive)

	got, err := f.users.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.TrialUsed)
}

func TestStartTrialUnknownUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.subscriptions.StartTrial(context.Background(), 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentStartTrialOneWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "972501234567")

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.subscriptions.StartTrial(ctx, u.ID)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadyUsedTrial)
	}
	assert.Equal(t, 1, ok)

	got, err := f.users.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.TrialUsed)
}

func TestCancelSubscriptionIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "972501234567")

	got, err := f.subscriptions.CancelSubscription(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SUBSCRIPTION_STATUS_CANCELLED, got.SubscriptionStatus)

	got, err = f.subscriptions.CancelSubscription(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SUBSCRIPTION_STATUS_CANCELLED, got.SubscriptionStatus)

	_, err = f.subscriptions.CancelSubscription(ctx, 12345)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestActivateAndRenew(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "972501234567")

	_, err := f.subscriptions.ActivateSubscription(ctx, u.ID, "gold", "", "")
	assert.ErrorIs(t, err, ErrValidation)

	got, err := f.subscriptions.ActivateSubscription(ctx, u.ID, models.PLAN_PREMIUM, "sub_1", "cus_1")
	require.NoError(t, err)
	assert.Equal(t, models.SUBSCRIPTION_STATUS_ACTIVE, got.SubscriptionStatus)
	assert.Equal(t, models.PLAN_PREMIUM, got.SubscriptionPlan)
	assert.Equal(t, "sub_1", got.ExternalSubscription)
	assert.Equal(t, "cus_1", got.ExternalCustomerID)

	_, err = f.subscriptions.CancelSubscription(ctx, u.ID)
	require.NoError(t, err)

	f.now = f.now.Add(48 * time.Hour)
	got, err = f.subscriptions.RenewSubscription(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SUBSCRIPTION_STATUS_ACTIVE, got.SubscriptionStatus)
	assert.Equal(t, models.PLAN_PREMIUM, got.SubscriptionPlan)
	require.NotNil(t, got.SubscriptionEnd)
	assert.True(t, got.SubscriptionEnd.Equal(f.now.AddDate(0, 0, 30)))
}

func TestSweepExpiredBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	due := f.user(t, "972501111111")
	notDue := f.user(t, "972502222222")
	paid := f.user(t, "972503333333")
	none := f.user(t, "972504444444")

	for _, id := range []int64{due.ID, notDue.ID} {
		_, err := f.subscriptions.StartTrial(ctx, id)
		require.NoError(t, err)
	}
	_, err := f.subscriptions.ActivateSubscription(ctx, paid.ID, models.PLAN_BASIC, "", "")
	require.NoError(t, err)

	now := f.now.AddDate(0, 0, 7)
	db := f.store.DB()
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", due.ID).Update("subscription_end", now.Add(-time.Second)).Error)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", notDue.ID).Update("subscription_end", now.Add(time.Second)).Error)

	n, err := f.subscriptions.SweepExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	status := func(id int64) string {
		u, err := f.users.Get(ctx, id)
		require.NoError(t, err)
		return u.SubscriptionStatus
	}
	assert.Equal(t, models.SUBSCRIPTION_STATUS_EXPIRED, status(due.ID))
	assert.Equal(t, models.SUBSCRIPTION_STATUS_TRIAL, status(notDue.ID))
	assert.Equal(t, models.SUBSCRIPTION_STATUS_ACTIVE, status(paid.ID))
	assert.Equal(t, models.SUBSCRIPTION_STATUS_NONE, status(none.ID))

	// a second pass finds nothing left to do
	n, err = f.subscriptions.SweepExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestExpiredUserCanResubscribe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "972501234567")

	_, err := f.subscriptions.StartTrial(ctx, u.ID)
	require.NoError(t, err)
	n, err := f.subscriptions.SweepExpired(ctx, f.now.AddDate(0, 0, 8))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err := f.subscriptions.ActivateSubscription(ctx, u.ID, models.PLAN_BASIC, "", "")
	require.NoError(t, err)
	assert.Equal(t, models.SUBSCRIPTION_STATUS_ACTIVE, got.SubscriptionStatus)
	assert.True(t, got.TrialUsed)
}

func TestSubscriptionReadAndStatistics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "972501111111")
	b := f.user(t, "972502222222")
	f.user(t, "972503333333")

	_, err := f.subscriptions.StartTrial(ctx, a.ID)
	require.NoError(t, err)
	_, err = f.subscriptions.ActivateSubscription(ctx, b.ID, models.PLAN_BASIC, "", "")
	require.NoError(t, err)

	info, err := f.subscriptions.GetUserSubscription(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SUBSCRIPTION_STATUS_TRIAL, info.Status)
	assert.True(t, info.TrialUsed)
	assert.True(t, info.HasActiveSubscription)

	stats, err := f.subscriptions.GetStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, SubscriptionStats{Total: 3, Active: 1, Trial: 1, None: 1}, stats)
}
