package bot

import (
	"context"
	"errors"
	"strings"

	"ledgerbot/models"
	"ledgerbot/services"
)

// Call carries one command invocation.
type Call struct {
	Event    Event
	Phone    string
	User     models.User
	Args     []string
	Degraded bool

	router *Router
}

type helpCommand struct{}

func (helpCommand) Name() string               { return "help" }
func (helpCommand) Aliases() []string          { return []string{"start"} }
func (helpCommand) Description() string        { return "הצג רשימת פקודות זמינות" }
func (helpCommand) RequiresSubscription() bool { return false }

func (helpCommand) Execute(_ context.Context, call *Call) (string, error) {
	if call.Degraded {
		return TEXT_DEGRADED_HELP, nil
	}
	return helpText(call.router.registry), nil
}

type subscribeCommand struct{}

func (subscribeCommand) Name() string               { return "subscribe" }
func (subscribeCommand) Aliases() []string          { return nil }
func (subscribeCommand) Description() string        { return "התחל מנוי חדש" }
func (subscribeCommand) RequiresSubscription() bool { return false }

func (subscribeCommand) Execute(ctx context.Context, call *Call) (string, error) {
	if call.User.HasActiveSubscription() {
		return TEXT_ALREADY_ACTIVE, nil
	}
	plans, err := call.router.plans.ActivePlans(ctx)
	if err != nil {
		return "", err
	}
	return plansText(plans), nil
}

type statusCommand struct{}

func (statusCommand) Name() string               { return "status" }
func (statusCommand) Aliases() []string          { return nil }
func (statusCommand) Description() string        { return "בדוק את סטטוס המנוי שלך" }
func (statusCommand) RequiresSubscription() bool { return false }

func (statusCommand) Execute(_ context.Context, call *Call) (string, error) {
	if call.Degraded {
		return TEXT_DEGRADED_STATUS, nil
	}
	return userStatusText(call.User), nil
}

type trialCommand struct{}

func (trialCommand) Name() string               { return "trial" }
func (trialCommand) Aliases() []string          { return nil }
func (trialCommand) Description() string        { return "התחל תקופת ניסיון חינם" }
func (trialCommand) RequiresSubscription() bool { return false }

func (trialCommand) Execute(ctx context.Context, call *Call) (string, error) {
	_, err := call.router.subscriptions.StartTrial(ctx, call.User.ID)
	if errors.Is(err, services.ErrAlreadyUsedTrial) || errors.Is(err, services.ErrAlreadyActive) {
		return TEXT_TRIAL_UNAVAILABLE, nil
	}
	if err != nil {
		return "", err
	}
	return trialStartedText(call.router.subscriptions.TrialDays()), nil
}

type cancelCommand struct{}

func (cancelCommand) Name() string               { return "cancel" }
func (cancelCommand) Aliases() []string          { return nil }
func (cancelCommand) Description() string        { return "בטל מנוי" }
func (cancelCommand) RequiresSubscription() bool { return true }

func (cancelCommand) Execute(ctx context.Context, call *Call) (string, error) {
	if _, err := call.router.subscriptions.CancelSubscription(ctx, call.User.ID); err != nil {
		return "", err
	}
	return TEXT_CANCELLED, nil
}

type balanceCommand struct{}

func (balanceCommand) Name() string               { return "balance" }
func (balanceCommand) Aliases() []string          { return nil }
func (balanceCommand) Description() string        { return "הצג יתרה וחובות" }
func (balanceCommand) RequiresSubscription() bool { return false }

func (balanceCommand) Execute(ctx context.Context, call *Call) (string, error) {
	b, err := call.router.ledger.GetUserBalance(ctx, call.User.ID)
	if err != nil {
		return "", err
	}
	return balanceText(b, call.router.symbol), nil
}

type transactionsCommand struct{}

func (transactionsCommand) Name() string               { return "transactions" }
func (transactionsCommand) Aliases() []string          { return nil }
func (transactionsCommand) Description() string        { return "הצג היסטוריית תנועות" }
func (transactionsCommand) RequiresSubscription() bool { return false }

func (transactionsCommand) Execute(ctx context.Context, call *Call) (string, error) {
	list, err := call.router.ledger.GetTransactionHistory(ctx, call.User.ID, 5)
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return TEXT_NO_TRANSACTIONS, nil
	}
	return transactionsText(list, call.router.symbol), nil
}

type searchStartCommand struct{}

func (searchStartCommand) Name() string      { return SEARCH_COMMAND }
func (searchStartCommand) Aliases() []string { return []string{"search"} }
func (searchStartCommand) Description() string {
	return "חפש הודעות בקבוצות וקבל התראות - דוגמה: פ ים"
}
func (searchStartCommand) RequiresSubscription() bool { return false }

func (searchStartCommand) Execute(ctx context.Context, call *Call) (string, error) {
	term := strings.Join(call.Args, " ")
	if err := call.router.searches.Start(call.Phone, term); err != nil {
		return TEXT_SEARCH_EMPTY_TERM, nil
	}
	term = strings.TrimSpace(term)
	started := searchStartedText(term)
	if call.Degraded {
		return started + "\n\n⚠️ היסטוריית ההודעות אינה זמינה כרגע.", nil
	}

	results, err := call.router.groups.SearchGroupMessages(ctx, term, services.SEARCH_RESULTS_LIMIT)
	if err != nil {
		call.router.log.WithError(err).WithField("sender", call.Phone).Warn("Search history unavailable")
		return started, nil
	}
	return searchResultsText(term, results) + "\n" + started, nil
}

type searchStopCommand struct{}

func (searchStopCommand) Name() string               { return STOP_TOKEN }
func (searchStopCommand) Aliases() []string          { return []string{"stop"} }
func (searchStopCommand) Description() string        { return "הפסק חיפוש פעיל" }
func (searchStopCommand) RequiresSubscription() bool { return false }

func (searchStopCommand) Execute(_ context.Context, call *Call) (string, error) {
	if call.router.searches.Stop(call.Phone) {
		return TEXT_SEARCH_STOPPED, nil
	}
	return TEXT_SEARCH_NONE_ACTIVE, nil
}

type listGroupsCommand struct{}

func (listGroupsCommand) Name() string               { return "groups" }
func (listGroupsCommand) Aliases() []string          { return []string{"list-groups"} }
func (listGroupsCommand) Description() string        { return "הצג את הקבוצות המוכרות" }
func (listGroupsCommand) RequiresSubscription() bool { return false }

func (listGroupsCommand) Execute(ctx context.Context, call *Call) (string, error) {
	groups, err := call.router.groups.ListGroups(ctx)
	if err != nil {
		return "", err
	}
	if len(groups) == 0 {
		return TEXT_NO_GROUPS, nil
	}
	return groupsText(groups), nil
}
