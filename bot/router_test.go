package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"ledgerbot/db"
	"ledgerbot/metrics"
	"ledgerbot/models"
	"ledgerbot/services"

	"github.com/jinzhu/gorm"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const admin = "972501234567"
const stranger = "972509999999"

type sent struct {
	To   string
	Text string
}

type fakeSender struct {
	mu   sync.Mutex
	msgs []sent
	err  error
}

func (f *fakeSender) SendText(_ context.Context, to, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, sent{To: to, Text: text})
	return nil
}

func (f *fakeSender) all() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.msgs...)
}

func (f *fakeSender) last(t *testing.T) sent {
	t.Helper()
	all := f.all()
	require.NotEmpty(t, all)
	return all[len(all)-1]
}

type switchableHealth struct {
	store *services.Store
	down  bool
}

func (h *switchableHealth) Available(ctx context.Context) error {
	if h.down {
		return services.ErrUnavailable
	}
	return h.store.Available(ctx)
}

type echoResponder struct{}

func (echoResponder) Reply(_ context.Context, _ string, text string) (string, error) {
	return "echo: " + text, nil
}

type harness struct {
	router  *Router
	sender  *fakeSender
	health  *switchableHealth
	db      *gorm.DB
	subs    *services.SubscriptionService
	ledger  *services.LedgerService
	users   *services.UserService
	metrics *metrics.Metrics
	seq     int
}

func newHarness(t *testing.T, responder Responder) *harness {
	t.Helper()
	database, err := gorm.Open("sqlite3", filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	database.DB().SetMaxOpenConns(1)
	require.NoError(t, db.Migrate(database))
	t.Cleanup(func() { database.Close() })

	l := logrus.New()
	l.SetOutput(io.Discard)
	log := logrus.NewEntry(l)

	store := services.NewStore(database, 5*time.Second)
	h := &harness{
		sender:  &fakeSender{},
		health:  &switchableHealth{store: store},
		db:      database,
		subs:    services.NewSubscriptionService(store, 7, 30, log),
		ledger:  services.NewLedgerService(store, log),
		users:   services.NewUserService(store, log),
		metrics: metrics.New(),
	}
	plans := services.NewPlanService(store, log)
	require.NoError(t, plans.SeedPlans(context.Background(), services.PlanPrices{BasicCents: 999, PremiumCents: 1999, Currency: "ILS", DurationDays: 30}))

	h.router = NewRouter(Deps{
		Health:        h.health,
		Users:         h.users,
		Subscriptions: h.subs,
		Ledger:        h.ledger,
		Groups:        services.NewGroupService(store, log),
		Plans:         plans,
		Sender:        h.sender,
		Responder:     responder,
		Admins:        []string{"+972-50-123-4567"},
		Currency:      "ILS",
		Metrics:       h.metrics,
		Log:           log,
	})
	return h
}

func (h *harness) direct(from, text string) {
	h.seq++
	h.router.Handle(context.Background(), Event{
		SenderID:  from + "@c.us",
		Text:      text,
		Timestamp: time.Now(),
		MessageID: fmt.Sprintf("direct-%d", h.seq),
	})
}

func (h *harness) group(text string) {
	h.seq++
	h.router.Handle(context.Background(), Event{
		SenderID:   "972505555555@c.us",
		SenderName: "Avi",
		IsGroup:    true,
		GroupID:    "120363@g.us",
		GroupName:  "Boats",
		Text:       text,
		Timestamp:  time.Now(),
		MessageID:  fmt.Sprintf("group-%d", h.seq),
	})
}

func (h *harness) user(t *testing.T) models.User {
	t.Helper()
	u, err := h.users.GetByPhone(context.Background(), admin)
	require.NoError(t, err)
	return u
}

func TestHelpCommandResolves(t *testing.T) {
	h := newHarness(t, nil)
	h.direct(admin, "!help")

	got := h.sender.last(t)
	assert.Equal(t, admin, got.To)
	assert.Contains(t, got.Text, "/subscribe")
	assert.Contains(t, got.Text, "פ <מילה>")

	h.direct(admin, "/START")
	assert.Contains(t, h.sender.last(t).Text, "/balance")
}

func TestRegularMessageWithoutSubscriptionGetsOnboarding(t *testing.T) {
	h := newHarness(t, nil)
	h.direct(admin, "hello")

	assert.Equal(t, TEXT_ONBOARDING, h.sender.last(t).Text)
	u := h.user(t)
	assert.Equal(t, int64(1), u.MessageCount)

	var msgs []models.Message
	require.NoError(t, h.db.Order("id asc").Find(&msgs).Error)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.MESSAGE_DIRECTION_INCOMING, msgs[0].Direction)
	assert.Equal(t, models.MESSAGE_DIRECTION_OUTGOING, msgs[1].Direction)
}

func TestRegularMessageWithSubscriptionUsesResponder(t *testing.T) {
	h := newHarness(t, echoResponder{})
	h.direct(admin, "/trial")
	assert.Contains(t, h.sender.last(t).Text, "7 ימים")

	h.direct(admin, "what's up")
	assert.Equal(t, "echo: what's up", h.sender.last(t).Text)
}

func TestSearchPrefixStartsActiveSearch(t *testing.T) {
	h := newHarness(t, nil)
	h.group("ים סוף נפתח")

	h.direct(admin, "פ ים")
	term, ok := h.router.Searches().Term(admin)
	require.True(t, ok)
	assert.Equal(t, "ים", term)
	reply := h.sender.last(t).Text
	assert.Contains(t, reply, "נמצאו 1 תוצאות")
	assert.Contains(t, reply, STOP_TOKEN)

	before := len(h.sender.all())
	h.group("ים המלח היום")
	h.group("לא קשור")
	all := h.sender.all()
	require.Len(t, all, before+1)
	note := all[len(all)-1]
	assert.Equal(t, admin, note.To)
	assert.Contains(t, note.Text, "Boats")
	assert.Contains(t, note.Text, "Avi")
	assert.Contains(t, note.Text, "ים המלח היום")
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.SearchNotifications))

	h.direct(admin, STOP_TOKEN)
	assert.Equal(t, TEXT_SEARCH_STOPPED, h.sender.last(t).Text)
	_, ok = h.router.Searches().Term(admin)
	assert.False(t, ok)

	h.direct(admin, STOP_TOKEN)
	assert.Equal(t, TEXT_SEARCH_NONE_ACTIVE, h.sender.last(t).Text)
}

func TestSearchWithoutTermIsRejected(t *testing.T) {
	h := newHarness(t, nil)
	h.direct(admin, "פ")
	assert.Equal(t, TEXT_SEARCH_EMPTY_TERM, h.sender.last(t).Text)
	assert.Equal(t, 0, h.router.Searches().Len())
}

func TestUnauthorizedSenderGetsNothing(t *testing.T) {
	h := newHarness(t, nil)
	h.direct(stranger, "!trial")
	h.direct(stranger, "hello")

	assert.Empty(t, h.sender.all())
	var users, msgs int
	require.NoError(t, h.db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, h.db.Model(&models.Message{}).Count(&msgs).Error)
	assert.Equal(t, 0, users)
	assert.Equal(t, 0, msgs)
	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.EventsDropped.WithLabelValues(metrics.DROP_UNAUTHORIZED)))
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness(t, nil)
	h.direct(admin, "!fly")
	assert.Equal(t, TEXT_UNKNOWN_COMMAND, h.sender.last(t).Text)
	h.direct(admin, "!")
	assert.Equal(t, TEXT_UNKNOWN_COMMAND, h.sender.last(t).Text)
}

func TestCancelRequiresSubscription(t *testing.T) {
	h := newHarness(t, nil)
	h.direct(admin, "!cancel")
	assert.Equal(t, TEXT_REQUIRES_SUBSCRIPTION, h.sender.last(t).Text)

	h.direct(admin, "!trial")
	h.direct(admin, "!cancel")
	assert.Equal(t, TEXT_CANCELLED, h.sender.last(t).Text)
	assert.Equal(t, models.SUBSCRIPTION_STATUS_CANCELLED, h.user(t).SubscriptionStatus)

	h.direct(admin, "!trial")
	assert.Equal(t, TEXT_TRIAL_UNAVAILABLE, h.sender.last(t).Text)
}

func TestSubscribeListsPlans(t *testing.T) {
	h := newHarness(t, nil)
	h.direct(admin, "!subscribe")
	reply := h.sender.last(t).Text
	assert.Contains(t, reply, "₪9.99")
	assert.Contains(t, reply, "₪19.99")

	h.direct(admin, "!trial")
	h.direct(admin, "!subscribe")
	assert.Equal(t, TEXT_ALREADY_ACTIVE, h.sender.last(t).Text)
}

func TestBalanceAndTransactions(t *testing.T) {
	h := newHarness(t, nil)
	h.direct(admin, "!transactions")
	assert.Equal(t, TEXT_NO_TRANSACTIONS, h.sender.last(t).Text)

	u := h.user(t)
	_, err := h.ledger.AddDebt(context.Background(), services.Entry{UserID: u.ID, AmountCents: 10000, Description: "הזמנה", ReferenceNumber: "A-1"})
	require.NoError(t, err)

	h.direct(admin, "!balance")
	reply := h.sender.last(t).Text
	assert.Contains(t, reply, "סך חובות: ₪100.00")
	assert.Contains(t, reply, "(חוב)")

	h.direct(admin, "!transactions")
	reply = h.sender.last(t).Text
	assert.Contains(t, reply, "📉 חוב - ₪100.00")
	assert.Contains(t, reply, "אסמכתא: A-1")
}

func TestStatusAndGroups(t *testing.T) {
	h := newHarness(t, nil)
	h.direct(admin, "!groups")
	assert.Equal(t, TEXT_NO_GROUPS, h.sender.last(t).Text)

	h.group("שלום")
	h.direct(admin, "!groups")
	assert.Contains(t, h.sender.last(t).Text, "Boats (1 הודעות)")

	h.direct(admin, "!status")
	reply := h.sender.last(t).Text
	assert.Contains(t, reply, "אין מנוי")
	assert.Contains(t, reply, "מספר הודעות: 3")
}

func TestDegradedMode(t *testing.T) {
	h := newHarness(t, nil)
	h.health.down = true

	h.direct(admin, "!start")
	assert.Equal(t, TEXT_DEGRADED_HELP, h.sender.last(t).Text)
	h.direct(admin, "!status")
	assert.Equal(t, TEXT_DEGRADED_STATUS, h.sender.last(t).Text)
	h.direct(admin, "!balance")
	assert.Equal(t, TEXT_DEGRADED_NOTICE, h.sender.last(t).Text)

	h.direct(admin, "פ ים")
	assert.True(t, strings.HasPrefix(h.sender.last(t).Text, "🔔"))
	_, ok := h.router.Searches().Term(admin)
	assert.True(t, ok)

	before := len(h.sender.all())
	h.direct(admin, "just chatting")
	assert.Len(t, h.sender.all(), before)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.EventsDropped.WithLabelValues(metrics.DROP_STORE_UNAVAILABLE)))

	var users int
	require.NoError(t, h.db.Model(&models.User{}).Count(&users).Error)
	assert.Equal(t, 0, users)
}

func TestSendFailureIsSwallowed(t *testing.T) {
	h := newHarness(t, nil)
	h.sender.err = errors.New("transport down")
	assert.NotPanics(t, func() { h.direct(admin, "!help") })

	var out int
	require.NoError(t, h.db.Model(&models.Message{}).Where("direction = ?", models.MESSAGE_DIRECTION_OUTGOING).Count(&out).Error)
	assert.Equal(t, 0, out)
}

func TestGroupCommandsAreNotExecuted(t *testing.T) {
	h := newHarness(t, nil)
	h.group("!help")
	assert.Empty(t, h.sender.all())

	var count int
	require.NoError(t, h.db.Model(&models.GroupMessage{}).Count(&count).Error)
	assert.Equal(t, 1, count)
}
