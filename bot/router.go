package bot

import (
	"context"
	"errors"
	"time"

	"ledgerbot/metrics"
	"ledgerbot/models"
	"ledgerbot/services"
	"ledgerbot/tools"

	"github.com/sirupsen/logrus"
)

const DEFAULT_SEND_TIMEOUT = 15 * time.Second

// Availability reports whether the backing store can serve requests.
type Availability interface {
	Available(ctx context.Context) error
}

// Deps are the collaborators of a Router.
type Deps struct {
	Health        Availability
	Users         *services.UserService
	Subscriptions *services.SubscriptionService
	Ledger        *services.LedgerService
	Groups        *services.GroupService
	Plans         *services.PlanService
	Sender        Sender
	Responder     Responder // optional
	Registry      *Registry // DefaultRegistry when nil
	Searches      *SearchTracker
	Admins        []string
	Currency      string
	SendTimeout   time.Duration
	Metrics       *metrics.Metrics
	Log           *logrus.Entry
}

// Router turns inbound chat events into service calls and replies.
type Router struct {
	health        Availability
	users         *services.UserService
	subscriptions *services.SubscriptionService
	ledger        *services.LedgerService
	groups        *services.GroupService
	plans         *services.PlanService
	sender        Sender
	responder     Responder
	registry      *Registry
	searches      *SearchTracker
	admins        map[string]bool
	symbol        string
	sendTimeout   time.Duration
	metrics       *metrics.Metrics
	log           *logrus.Entry
}

func NewRouter(d Deps) *Router {
	r := &Router{
		health:        d.Health,
		users:         d.Users,
		subscriptions: d.Subscriptions,
		ledger:        d.Ledger,
		groups:        d.Groups,
		plans:         d.Plans,
		sender:        d.Sender,
		responder:     d.Responder,
		registry:      d.Registry,
		searches:      d.Searches,
		admins:        map[string]bool{},
		symbol:        tools.CurrencySymbol(d.Currency),
		sendTimeout:   d.SendTimeout,
		metrics:       d.Metrics,
		log:           d.Log,
	}
	if r.registry == nil {
		r.registry = DefaultRegistry()
	}
	if r.searches == nil {
		r.searches = NewSearchTracker()
	}
	if r.sendTimeout <= 0 {
		r.sendTimeout = DEFAULT_SEND_TIMEOUT
	}
	if d.Currency == "" {
		r.symbol = tools.CurrencySymbol("ILS")
	}
	for _, raw := range d.Admins {
		phone, err := tools.NormalizePhone(raw)
		if err != nil {
			r.log.WithError(err).Warnf("Ignoring invalid admin number %q", raw)
			continue
		}
		r.admins[phone] = true
	}
	if len(r.admins) == 0 {
		r.log.Warn("No admin numbers configured: every direct message will be ignored")
	}
	return r
}

// IsAdmin reports whether phone (any accepted format) is on the allow-list.
func (r *Router) IsAdmin(phone string) bool {
	normalized, err := tools.NormalizePhone(phone)
	if err != nil {
		return false
	}
	return r.admins[normalized]
}

func (r *Router) Searches() *SearchTracker {
	return r.searches
}

// Handle processes one inbound event. Failures end in a log line and, for direct
// messages, a chat reply; they never propagate to the caller.
func (r *Router) Handle(ctx context.Context, ev Event) {
	if ev.IsGroup {
		r.handleGroup(ctx, ev)
		return
	}

	phone, err := tools.NormalizePhone(ev.SenderID)
	if err != nil {
		r.log.WithField("sender", ev.SenderID).Debug("Ignoring event with invalid sender")
		return
	}
	log := r.log.WithField("sender", phone)

	if !r.admins[phone] {
		log.Info("Ignoring direct message from unauthorized sender")
		r.metrics.Dropped(metrics.DROP_UNAUTHORIZED)
		return
	}

	if err := r.health.Available(ctx); err != nil {
		log.WithError(err).Warn("Database not available, working in limited mode")
		r.handleDegraded(ctx, phone, ev)
		return
	}

	user, err := r.users.RecordIncoming(ctx, services.Incoming{
		Phone:     phone,
		Name:      ev.SenderName,
		Text:      ev.Text,
		MessageID: ev.MessageID,
		Timestamp: ev.Timestamp,
	})
	if errors.Is(err, services.ErrDuplicateMessage) {
		log.WithField("message_id", ev.MessageID).Debug("Duplicate message ignored")
		return
	}
	if errors.Is(err, services.ErrUnavailable) {
		log.WithError(err).Warn("Database not available, working in limited mode")
		r.handleDegraded(ctx, phone, ev)
		return
	}
	if err != nil {
		log.WithError(err).Error("Error handling message")
		r.reply(ctx, phone, TEXT_GENERIC_ERROR, false)
		return
	}

	parsed := Classify(ev.Text)
	if parsed.Kind == KIND_REGULAR {
		r.handleRegular(ctx, phone, user, ev)
		return
	}
	r.runCommand(ctx, parsed, &Call{Event: ev, Phone: phone, User: user, Args: parsed.Args, router: r})
}

func (r *Router) runCommand(ctx context.Context, parsed Parsed, call *Call) {
	log := r.log.WithFields(logrus.Fields{"sender": call.Phone, "command": parsed.Name})
	persist := !call.Degraded

	cmd, ok := r.registry.Lookup(parsed.Name)
	if !ok || parsed.Name == "" {
		r.metrics.Command("unknown", "unknown")
		r.reply(ctx, call.Phone, TEXT_UNKNOWN_COMMAND, persist)
		return
	}
	if cmd.RequiresSubscription() && !call.User.HasActiveSubscription() {
		r.metrics.Command(cmd.Name(), "refused")
		r.reply(ctx, call.Phone, TEXT_REQUIRES_SUBSCRIPTION, persist)
		return
	}

	text, err := cmd.Execute(ctx, call)
	if err != nil {
		log.WithError(err).Error("Command failed")
		r.metrics.Command(cmd.Name(), "error")
		text = errorReply(err)
	} else {
		r.metrics.Command(cmd.Name(), "ok")
	}
	r.reply(ctx, call.Phone, text, persist)
}

// degradedCommands are served while the store is down.
var degradedCommands = map[string]bool{
	"help":         true,
	"status":       true,
	SEARCH_COMMAND: true,
	STOP_TOKEN:     true,
}

func (r *Router) handleDegraded(ctx context.Context, phone string, ev Event) {
	parsed := Classify(ev.Text)
	if parsed.Kind == KIND_REGULAR {
		r.metrics.Dropped(metrics.DROP_STORE_UNAVAILABLE)
		return
	}
	cmd, ok := r.registry.Lookup(parsed.Name)
	if !ok || !degradedCommands[cmd.Name()] {
		r.reply(ctx, phone, TEXT_DEGRADED_NOTICE, false)
		return
	}
	r.runCommand(ctx, parsed, &Call{Event: ev, Phone: phone, Args: parsed.Args, Degraded: true, router: r})
}

func (r *Router) handleRegular(ctx context.Context, phone string, user models.User, ev Event) {
	if !user.HasActiveSubscription() {
		r.reply(ctx, phone, TEXT_ONBOARDING, true)
		return
	}
	if r.responder == nil {
		r.reply(ctx, phone, TEXT_MESSAGE_RECEIVED, true)
		return
	}
	answer, err := r.responder.Reply(ctx, phone, ev.Text)
	if err != nil {
		r.log.WithError(err).WithField("sender", phone).Warn("Responder failed")
		answer = TEXT_MESSAGE_RECEIVED
	}
	r.reply(ctx, phone, answer, true)
}

func (r *Router) handleGroup(ctx context.Context, ev Event) {
	log := r.log.WithField("group", ev.GroupID)

	sender := ev.SenderID
	if phone, err := tools.NormalizePhone(ev.SenderID); err == nil {
		sender = phone
	}
	err := r.groups.SaveGroupMessage(ctx, models.GroupMessage{
		GroupID:      ev.GroupID,
		GroupName:    ev.GroupName,
		SenderNumber: sender,
		SenderName:   ev.SenderName,
		Content:      ev.Text,
		MessageID:    ev.MessageID,
		Timestamp:    ev.Timestamp,
	})
	if err != nil {
		log.WithError(err).Warn("Error saving group message")
		r.metrics.Dropped(metrics.DROP_GROUP_INGEST_FAILED)
	}

	for _, m := range r.searches.Match(ev.Text) {
		r.reply(ctx, m.Sender, searchNotificationText(m.Term, ev), err == nil)
		if r.metrics != nil {
			r.metrics.SearchNotifications.Inc()
		}
	}
}

// reply sends text and, when persist is set, records it as an outgoing message.
// Both steps are best effort.
func (r *Router) reply(ctx context.Context, phone, text string, persist bool) {
	sendCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
	defer cancel()
	if err := r.sender.SendText(sendCtx, phone, text); err != nil {
		r.log.WithError(err).WithField("sender", phone).Warn("Error sending message")
		return
	}
	if !persist {
		return
	}
	if err := r.users.RecordOutgoing(ctx, phone, text); err != nil {
		r.log.WithError(err).WithField("sender", phone).Warn("Error saving outgoing message")
	}
}

func errorReply(err error) string {
	if errors.Is(err, services.ErrUnavailable) {
		return TEXT_STORE_BUSY
	}
	return TEXT_GENERIC_ERROR
}
