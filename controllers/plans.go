package controllers

import (
	"ledgerbot/models"

	"github.com/gin-gonic/gin"
)

// GET /api/plans
func GetPlans(c *gin.Context) {
	plans, err := EnvInstance(c).Plans.ActivePlans(requestContext(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	if plans == nil {
		plans = []models.Plan{}
	}
	RespondSuccess(c, gin.H{"plans": plans})
}
