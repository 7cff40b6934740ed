package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledgerbot/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jinzhu/gorm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordIncomingCreatesAndCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.users.RecordIncoming(ctx, Incoming{Phone: "972501234567@c.us", Name: "Noa", Text: "hi", MessageID: "m1"})
	require.NoError(t, err)
	assert.Equal(t, "972501234567", u.PhoneNumber)
	assert.Equal(t, models.SUBSCRIPTION_STATUS_NONE, u.SubscriptionStatus)
	assert.Equal(t, int64(1), u.MessageCount)
	require.NotNil(t, u.LastMessageAt)

	u, err = f.users.RecordIncoming(ctx, Incoming{Phone: "972501234567", Text: "again", MessageID: "m2"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), u.MessageCount)
	assert.Equal(t, "Noa", u.Name)

	_, err = f.users.RecordIncoming(ctx, Incoming{Phone: "972501234567", Text: "again", MessageID: "m2"})
	assert.ErrorIs(t, err, ErrDuplicateMessage)

	var msgs []models.Message
	require.NoError(t, f.store.DB().Where("user_id = ?", u.ID).Find(&msgs).Error)
	assert.Len(t, msgs, 2)
	assert.Equal(t, models.MESSAGE_DIRECTION_INCOMING, msgs[0].Direction)
}

func TestRecordOutgoing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "972501234567")

	require.NoError(t, f.users.RecordOutgoing(ctx, "972501234567", "שלום"))
	require.NoError(t, f.users.RecordOutgoing(ctx, "972501234567", "שוב"))

	var msgs []models.Message
	require.NoError(t, f.store.DB().Where("direction = ?", models.MESSAGE_DIRECTION_OUTGOING).Find(&msgs).Error)
	require.Len(t, msgs, 2)
	assert.Equal(t, u.ID, msgs[0].UserID)
	assert.NotEqual(t, msgs[0].MessageID, msgs[1].MessageID)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "972501234567")

	bad := "not-an-email"
	_, err := f.users.UpdateProfile(ctx, u.ID, nil, &bad)
	assert.ErrorIs(t, err, ErrValidation)

	name, email := "Noa", "noa@example.com"
	got, err := f.users.UpdateProfile(ctx, u.ID, &name, &email)
	require.NoError(t, err)
	assert.Equal(t, "Noa", got.Name)
	assert.Equal(t, "noa@example.com", got.Email)

	_, err = f.users.UpdateProfile(ctx, 999, &name, nil)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestFindOrCreateRejectsBadPhone(t *testing.T) {
	f := newFixture(t)
	_, err := f.users.FindOrCreate(context.Background(), "abc", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGroupMessagesSearchAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	msgs := []models.GroupMessage{
		{GroupID: "g1@g.us", GroupName: "Sea", SenderNumber: "1", Content: "ים סוף", MessageID: "a", Timestamp: base},
		{GroupID: "g1@g.us", GroupName: "Sea", SenderNumber: "2", Content: "Yam boat", MessageID: "b", Timestamp: base.Add(time.Hour)},
		{GroupID: "g2@g.us", GroupName: "Land", SenderNumber: "3", Content: "ים המלח", MessageID: "c", Timestamp: base.Add(2 * time.Hour)},
		{GroupID: "g2@g.us", GroupName: "Land", SenderNumber: "4", Content: "לא ים", MessageID: "d", Timestamp: base.Add(3 * time.Hour)},
		{GroupID: "g2@g.us", GroupName: "Land", SenderNumber: "5", Content: "100% off", MessageID: "e", Timestamp: base.Add(4 * time.Hour)},
	}
	for _, m := range msgs {
		require.NoError(t, f.groups.SaveGroupMessage(ctx, m))
	}
	// redelivery is ignored
	require.NoError(t, f.groups.SaveGroupMessage(ctx, msgs[0]))

	found, err := f.groups.SearchGroupMessages(ctx, "ים", 0)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "ים המלח", found[0].Content)
	assert.Equal(t, "ים סוף", found[1].Content)

	found, err = f.groups.SearchGroupMessages(ctx, "yAM", 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Yam boat", found[0].Content)

	found, err = f.groups.SearchGroupMessages(ctx, "1%", 0)
	require.NoError(t, err)
	assert.Len(t, found, 0)

	_, err = f.groups.SearchGroupMessages(ctx, " ", 0)
	assert.ErrorIs(t, err, ErrValidation)

	groups, err := f.groups.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "g2@g.us", groups[0].GroupID)
	assert.Equal(t, "Land", groups[0].GroupName)
	assert.Equal(t, int64(3), groups[0].MessageCount)
	assert.Equal(t, int64(2), groups[1].MessageCount)
}

func TestSeedPlansOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prices := PlanPrices{BasicCents: 999, PremiumCents: 1999, Currency: "ILS", DurationDays: 30}

	require.NoError(t, f.plans.SeedPlans(ctx, prices))
	prices.BasicCents = 1
	require.NoError(t, f.plans.SeedPlans(ctx, prices))

	plans, err := f.plans.ActivePlans(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, models.PLAN_BASIC, plans[0].Type)
	assert.Equal(t, int64(999), plans[0].PriceCents)
	assert.Len(t, plans[1].FeatureList(), 3)
}

func TestStoreUnavailable(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectPing()
	gdb, err := gorm.Open("postgres", sqlDB)
	require.NoError(t, err)

	store := NewStore(gdb, time.Second)
	mock.ExpectPing().WillReturnError(errors.New("dial tcp: connection refused"))
	assert.ErrorIs(t, store.Available(context.Background()), ErrUnavailable)

	mock.ExpectBegin().WillReturnError(errors.New("dial tcp 127.0.0.1:5432: connection refused"))
	ledger := NewLedgerService(store, testLog())
	_, err = ledger.AddDebt(context.Background(), Entry{UserID: 1, AmountCents: 100, Description: "x"})
	assert.ErrorIs(t, err, ErrUnavailable)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKind(t *testing.T) {
	assert.Equal(t, ErrConflict, Kind(ErrDuplicateAgent))
	assert.Equal(t, ErrValidation, Kind(Validation("name")))
	assert.Equal(t, ErrInternal, Kind(errors.New("boom")))
	assert.Nil(t, Kind(nil))
}
