package controllers

import (
	"context"
	"net/http"

	"ledgerbot/models"
	"ledgerbot/services"
	"ledgerbot/tools"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// LedgerRequest is the body shared by the four ledger operations.
// UserID targets another user and is only honoured for admins.
type LedgerRequest struct {
	UserID          int64           `json:"userId"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description"`
	SalesAgentID    *int64          `json:"salesAgentId"`
	ReferenceNumber string          `json:"referenceNumber"`
	PaymentMethod   string          `json:"paymentMethod"`
}

type ledgerOp func(ctx context.Context, e services.Entry) (models.Transaction, error)

func ledgerHandler(pick func(l *services.LedgerService) ledgerOp) gin.HandlerFunc {
	return func(c *gin.Context) {
		env := EnvInstance(c)
		user, _ := GetUserLogged(c)

		var req LedgerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, err.Error(), http.StatusBadRequest)
			return
		}

		target := user.ID
		if req.UserID != 0 && req.UserID != user.ID {
			if env.IsAdmin == nil || !env.IsAdmin(user.PhoneNumber) {
				RespondError(c, "admin required", http.StatusForbidden)
				return
			}
			target = req.UserID
		}

		cents, err := tools.ParseAmount(req.Amount)
		if err != nil {
			RespondError(c, err.Error(), http.StatusBadRequest)
			return
		}

		txn, err := pick(env.Ledger)(requestContext(c), services.Entry{
			UserID:          target,
			AmountCents:     cents,
			Description:     req.Description,
			SalesAgentID:    req.SalesAgentID,
			ReferenceNumber: req.ReferenceNumber,
			PaymentMethod:   req.PaymentMethod,
			CreatedBy:       user.PhoneNumber,
		})
		if err != nil {
			RespondServiceError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"transaction": txn})
	}
}

// POST /api/payments/debt
var AddDebt = ledgerHandler(func(l *services.LedgerService) ledgerOp { return l.AddDebt })

// POST /api/payments/payment
var RecordPayment = ledgerHandler(func(l *services.LedgerService) ledgerOp { return l.RecordPayment })

// POST /api/payments/credit
var AddCredit = ledgerHandler(func(l *services.LedgerService) ledgerOp { return l.AddCredit })

// POST /api/payments/refund
var AddRefund = ledgerHandler(func(l *services.LedgerService) ledgerOp { return l.AddRefund })

// GET /api/payments/balance
func GetBalance(c *gin.Context) {
	user, _ := GetUserLogged(c)

	view, err := EnvInstance(c).Ledger.GetUserBalance(requestContext(c), user.ID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondSuccess(c, view)
}

// GET /api/payments/transactions?limit=
func GetTransactions(c *gin.Context) {
	user, _ := GetUserLogged(c)

	list, err := EnvInstance(c).Ledger.GetTransactionHistory(requestContext(c), user.ID, QueryLimit(c, services.DEFAULT_HISTORY_LIMIT))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	if list == nil {
		list = []models.Transaction{}
	}
	RespondSuccess(c, gin.H{"transactions": list})
}

// GET /api/payments/statistics (admin)
func LedgerStatistics(c *gin.Context) {
	stats, err := EnvInstance(c).Ledger.GetStatistics(requestContext(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondSuccess(c, stats)
}
