package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type CreateAgentRequest struct {
	Name           string          `json:"name"`
	PhoneNumber    string          `json:"phoneNumber"`
	CommissionRate decimal.Decimal `json:"commissionRate"` // percent, 0..100
	Email          string          `json:"email"`
}

// POST /api/agents (admin)
func CreateSalesAgent(c *gin.Context) {
	var req CreateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.PhoneNumber) == "" {
		RespondError(c, "name and phoneNumber are required", http.StatusBadRequest)
		return
	}

	agent, err := EnvInstance(c).Ledger.CreateSalesAgent(requestContext(c), req.Name, req.PhoneNumber, req.CommissionRate, req.Email)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"agent": agent})
}

// GET /api/agents/:id/report (admin)
func GetAgentReport(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}

	report, err := EnvInstance(c).Ledger.GetAgentSalesReport(requestContext(c), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondSuccess(c, report)
}
