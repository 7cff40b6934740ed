package controllers

import (
	"github.com/gin-gonic/gin"
)

// POST /api/subscriptions/trial
func StartTrial(c *gin.Context) {
	user, _ := GetUserLogged(c)

	updated, err := EnvInstance(c).Subscriptions.StartTrial(requestContext(c), user.ID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"message": "Trial started successfully", "subscriptionEnd": updated.SubscriptionEnd})
}

// POST /api/subscriptions/cancel
func CancelSubscription(c *gin.Context) {
	user, _ := GetUserLogged(c)

	if _, err := EnvInstance(c).Subscriptions.CancelSubscription(requestContext(c), user.ID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"message": "Subscription cancelled successfully"})
}

// GET /api/subscriptions/statistics (admin)
func SubscriptionStatistics(c *gin.Context) {
	stats, err := EnvInstance(c).Subscriptions.GetStatistics(requestContext(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondSuccess(c, stats)
}
