package services

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"ledgerbot/db"
	"ledgerbot/models"

	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store         *Store
	users         *UserService
	subscriptions *SubscriptionService
	ledger        *LedgerService
	groups        *GroupService
	plans         *PlanService
	now           time.Time
}

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	database.DB().SetMaxOpenConns(1)
	require.NoError(t, db.Migrate(database))
	t.Cleanup(func() { database.Close() })
	return database
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := NewStore(openTestDB(t), 5*time.Second)
	f := &fixture{store: store, now: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	store.SetClock(func() time.Time { return f.now })

	log := testLog()
	f.users = NewUserService(store, log)
	f.subscriptions = NewSubscriptionService(store, 7, 30, log)
	f.ledger = NewLedgerService(store, log)
	f.groups = NewGroupService(store, log)
	f.plans = NewPlanService(store, log)
	return f
}

func (f *fixture) user(t *testing.T, phone string) models.User {
	t.Helper()
	u, err := f.users.FindOrCreate(context.Background(), phone, "")
	require.NoError(t, err)
	return u
}
