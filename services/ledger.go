package services

import (
	"context"
	"strings"
	"time"

	"ledgerbot/models"
	"ledgerbot/tools"

	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const DEFAULT_HISTORY_LIMIT = 10
const MAX_HISTORY_LIMIT = 100

// LedgerService appends transactions and keeps each user's Balance in lockstep:
// the insert and the balance increment share one database transaction.
type LedgerService struct {
	store *Store
	log   *logrus.Entry
}

func NewLedgerService(store *Store, log *logrus.Entry) *LedgerService {
	return &LedgerService{store: store, log: log}
}

// Entry is the caller-supplied part of a ledger operation.
type Entry struct {
	UserID          int64
	AmountCents     int64
	Description     string
	SalesAgentID    *int64
	ReferenceNumber string
	PaymentMethod   string
	CreatedBy       string
}

// BalanceView is the answer of GetUserBalance.
type BalanceView struct {
	TotalDebtCents   int64      `json:"total_debt_cents"`
	TotalCreditCents int64      `json:"total_credit_cents"`
	BalanceCents     int64      `json:"balance_cents"`
	Status           string     `json:"status"`
	LastTransaction  *time.Time `json:"last_transaction,omitempty"`
}

// AgentReport summarizes an agent and its completed debts.
type AgentReport struct {
	Agent                models.SalesAgent    `json:"agent"`
	TotalSalesCents      int64                `json:"total_sales_cents"`
	TotalCommissionMicro int64                `json:"total_commission_micro"`
	TotalSales           string               `json:"total_sales"`
	TotalCommission      string               `json:"total_commission"`
	Transactions         []models.Transaction `json:"transactions"`
}

// LedgerStats aggregates every balance and agent.
type LedgerStats struct {
	TotalDebtCents   int64 `json:"total_debt_cents"`
	TotalCreditCents int64 `json:"total_credit_cents"`
	NetBalanceCents  int64 `json:"net_balance_cents"`
	TotalAgents      int64 `json:"total_agents"`
	ActiveAgents     int64 `json:"active_agents"`
}

// AddDebt records a debt. A referenced agent that resolves is credited with the
// sale and its commission in the same transaction.
func (s *LedgerService) AddDebt(ctx context.Context, e Entry) (models.Transaction, error) {
	return s.append(ctx, models.TRANSACTION_TYPE_DEBT, e)
}

// RecordPayment records money received from the user.
func (s *LedgerService) RecordPayment(ctx context.Context, e Entry) (models.Transaction, error) {
	if e.PaymentMethod == "" {
		e.PaymentMethod = models.PAYMENT_METHOD_CASH
	}
	if !models.IsValidPaymentMethod(e.PaymentMethod) {
		return models.Transaction{}, Validation("payment_method")
	}
	e.SalesAgentID = nil
	return s.append(ctx, models.TRANSACTION_TYPE_PAYMENT, e)
}

// AddCredit records an amount owed to the user.
func (s *LedgerService) AddCredit(ctx context.Context, e Entry) (models.Transaction, error) {
	e.SalesAgentID = nil
	e.PaymentMethod = ""
	return s.append(ctx, models.TRANSACTION_TYPE_CREDIT, e)
}

// AddRefund records money returned to the user.
func (s *LedgerService) AddRefund(ctx context.Context, e Entry) (models.Transaction, error) {
	e.SalesAgentID = nil
	return s.append(ctx, models.TRANSACTION_TYPE_REFUND, e)
}

func (s *LedgerService) append(ctx context.Context, txType string, e Entry) (models.Transaction, error) {
	if e.AmountCents <= 0 || e.AmountCents > tools.MAX_AMOUNT_CENTS {
		return models.Transaction{}, ErrInvalidAmount
	}
	e.Description = strings.TrimSpace(e.Description)
	if e.Description == "" {
		return models.Transaction{}, Validation("description")
	}

	unlock := s.store.lockUser(e.UserID)
	defer unlock()

	now := s.store.Now()
	entry := models.Transaction{
		UserID:          e.UserID,
		Type:            txType,
		AmountCents:     e.AmountCents,
		Description:     e.Description,
		ReferenceNumber: e.ReferenceNumber,
		PaymentMethod:   e.PaymentMethod,
		Status:          models.TRANSACTION_STATUS_COMPLETED,
		CreatedBy:       e.CreatedBy,
		CreatedAt:       &now,
	}

	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if err := requireUser(tx, e.UserID); err != nil {
			return err
		}

		var agent *models.SalesAgent
		if txType == models.TRANSACTION_TYPE_DEBT && e.SalesAgentID != nil {
			var a models.SalesAgent
			err := tx.First(&a, *e.SalesAgentID).Error
			switch {
			case err == nil:
				agent = &a
				entry.SalesAgentID = &a.ID
				entry.SalesAgent = &models.AgentRef{ID: a.ID, Name: a.Name}
			case !isNotFound(err):
				return err
			}
		}

		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		if err := applyToBalance(tx, e.UserID, models.DeltaFor(txType, e.AmountCents), now); err != nil {
			return err
		}
		if agent != nil {
			return tx.Model(&models.SalesAgent{}).Where("id = ?", agent.ID).Updates(map[string]interface{}{
				"total_sales_cents":      gorm.Expr("total_sales_cents + ?", e.AmountCents),
				"total_commission_micro": gorm.Expr("total_commission_micro + ?", agent.CommissionFor(e.AmountCents)),
			}).Error
		}
		return nil
	})
	if err != nil {
		return models.Transaction{}, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id": e.UserID,
		"type":    txType,
		"amount":  e.AmountCents,
	}).Info("Ledger entry recorded")
	return entry, nil
}

func requireUser(tx *gorm.DB, userID int64) error {
	var count int
	if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}

// loadBalance returns the user's balance row, creating a zeroed one on first touch.
func loadBalance(tx *gorm.DB, userID int64) (models.Balance, error) {
	var balance models.Balance
	err := tx.Where("user_id = ?", userID).First(&balance).Error
	if err == nil {
		return balance, nil
	}
	if !isNotFound(err) {
		return balance, err
	}
	balance = models.Balance{UserID: userID}
	if err := tx.Create(&balance).Error; err != nil {
		return balance, err
	}
	return balance, nil
}

func applyToBalance(tx *gorm.DB, userID int64, d models.Delta, at time.Time) error {
	if _, err := loadBalance(tx, userID); err != nil {
		return err
	}
	return tx.Model(&models.Balance{}).Where("user_id = ?", userID).Updates(map[string]interface{}{
		"total_debt_cents":    gorm.Expr("total_debt_cents + ?", d.Debt),
		"total_credit_cents":  gorm.Expr("total_credit_cents + ?", d.Credit),
		"balance_cents":       gorm.Expr("balance_cents + ?", d.Balance),
		"last_transaction_at": at,
	}).Error
}

// GetUserBalance returns the user's balance. The first call for a user creates
// the zeroed snapshot, so this is a write on first touch.
func (s *LedgerService) GetUserBalance(ctx context.Context, userID int64) (BalanceView, error) {
	unlock := s.store.lockUser(userID)
	defer unlock()

	var balance models.Balance
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if err := requireUser(tx, userID); err != nil {
			return err
		}
		var err error
		balance, err = loadBalance(tx, userID)
		return err
	})
	if err != nil {
		return BalanceView{}, err
	}
	return BalanceView{
		TotalDebtCents:   balance.TotalDebtCents,
		TotalCreditCents: balance.TotalCreditCents,
		BalanceCents:     balance.BalanceCents,
		Status:           balance.StatusLabel(),
		LastTransaction:  balance.LastTransactionAt,
	}, nil
}

// GetTransactionHistory returns the newest limit entries, agents resolved.
func (s *LedgerService) GetTransactionHistory(ctx context.Context, userID int64, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = DEFAULT_HISTORY_LIMIT
	}
	if limit > MAX_HISTORY_LIMIT {
		limit = MAX_HISTORY_LIMIT
	}

	var list []models.Transaction
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Order("created_at desc, id desc").Limit(limit).Find(&list).Error; err != nil {
			return err
		}
		return resolveAgents(tx, list)
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

func resolveAgents(tx *gorm.DB, list []models.Transaction) error {
	var ids []int64
	seen := map[int64]bool{}
	for _, t := range list {
		if t.SalesAgentID != nil && !seen[*t.SalesAgentID] {
			seen[*t.SalesAgentID] = true
			ids = append(ids, *t.SalesAgentID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	var agents []models.SalesAgent
	if err := tx.Where("id IN (?)", ids).Find(&agents).Error; err != nil {
		return err
	}
	byID := make(map[int64]models.SalesAgent, len(agents))
	for _, a := range agents {
		byID[a.ID] = a
	}
	for i := range list {
		if list[i].SalesAgentID == nil {
			continue
		}
		if a, ok := byID[*list[i].SalesAgentID]; ok {
			list[i].SalesAgent = &models.AgentRef{ID: a.ID, Name: a.Name}
		}
	}
	return nil
}

// CreateSalesAgent registers an agent. ratePercent must lie in [0,100] with at most two decimals.
func (s *LedgerService) CreateSalesAgent(ctx context.Context, name, phone string, ratePercent decimal.Decimal, email string) (models.SalesAgent, error) {
	bps := ratePercent.Shift(2)
	if ratePercent.IsNegative() || ratePercent.GreaterThan(decimal.NewFromInt(100)) || !bps.Equal(bps.Truncate(0)) {
		return models.SalesAgent{}, ErrInvalidRate
	}
	normalized, err := tools.NormalizePhone(phone)
	if err != nil {
		return models.SalesAgent{}, Validation("phone_number")
	}

	agent := models.SalesAgent{
		Name:              strings.TrimSpace(name),
		PhoneNumber:       normalized,
		Email:             strings.TrimSpace(email),
		CommissionRateBps: bps.IntPart(),
		Active:            true,
	}
	if field := agent.MissingFields(); field != "" {
		return models.SalesAgent{}, Validation(field)
	}
	if field := agent.InvalidFields(); field != "" {
		return models.SalesAgent{}, Validation(field)
	}

	err = s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var count int
		if err := tx.Model(&models.SalesAgent{}).Where("phone_number = ?", normalized).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateAgent
		}
		if err := tx.Create(&agent).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateAgent
			}
			return err
		}
		return nil
	})
	if err != nil {
		return models.SalesAgent{}, err
	}

	s.log.WithField("agent_id", agent.ID).Infof("Sales agent created: %s", agent.Name)
	return agent, nil
}

// GetAgentSalesReport returns the agent and its completed debts, newest first.
func (s *LedgerService) GetAgentSalesReport(ctx context.Context, agentID int64) (AgentReport, error) {
	var report AgentReport
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&report.Agent, agentID).Error; err != nil {
			if isNotFound(err) {
				return ErrAgentNotFound
			}
			return err
		}
		return tx.Where("sales_agent_id = ? AND type = ? AND status = ?",
			agentID, models.TRANSACTION_TYPE_DEBT, models.TRANSACTION_STATUS_COMPLETED).
			Order("created_at desc, id desc").
			Find(&report.Transactions).Error
	})
	if err != nil {
		return AgentReport{}, err
	}
	ref := &models.AgentRef{ID: report.Agent.ID, Name: report.Agent.Name}
	for i := range report.Transactions {
		report.Transactions[i].SalesAgent = ref
	}
	report.TotalSalesCents = report.Agent.TotalSalesCents
	report.TotalCommissionMicro = report.Agent.TotalCommissionMicro
	report.TotalSales = tools.FormatMoney(report.TotalSalesCents, "")
	report.TotalCommission = tools.FormatMicro(report.TotalCommissionMicro, "")
	return report, nil
}

type sums struct {
	Debt   int64
	Credit int64
}

// GetStatistics sums every balance and counts agents.
func (s *LedgerService) GetStatistics(ctx context.Context) (LedgerStats, error) {
	var stats LedgerStats
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var totals sums
		if err := tx.Model(&models.Balance{}).
			Select("COALESCE(SUM(total_debt_cents), 0) as debt, COALESCE(SUM(total_credit_cents), 0) as credit").
			Scan(&totals).Error; err != nil {
			return err
		}
		stats.TotalDebtCents = totals.Debt
		stats.TotalCreditCents = totals.Credit

		if err := tx.Model(&models.SalesAgent{}).Count(&stats.TotalAgents).Error; err != nil {
			return err
		}
		return tx.Model(&models.SalesAgent{}).Where("active = ?", true).Count(&stats.ActiveAgents).Error
	})
	if err != nil {
		return LedgerStats{}, err
	}
	stats.NetBalanceCents = stats.TotalCreditCents - stats.TotalDebtCents
	return stats, nil
}
