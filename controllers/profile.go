package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type UpdateProfileRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

// GET /api/users/profile
func GetProfile(c *gin.Context) {
	user, _ := GetUserLogged(c)
	RespondSuccess(c, user)
}

// PUT /api/users/profile
func UpdateProfile(c *gin.Context) {
	user, _ := GetUserLogged(c)

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := EnvInstance(c).Users.UpdateProfile(requestContext(c), user.ID, req.Name, req.Email)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"message": "Profile updated successfully", "user": updated})
}

// GET /api/users/subscription
func GetSubscription(c *gin.Context) {
	user, _ := GetUserLogged(c)

	info, err := EnvInstance(c).Subscriptions.GetUserSubscription(requestContext(c), user.ID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondSuccess(c, info)
}
