package controllers

import (
	"net/http"
	"strings"

	"ledgerbot/models"

	"github.com/gin-gonic/gin"
)

type LoginRequest struct {
	PhoneNumber string `json:"phoneNumber" form:"phoneNumber"`
	Name        string `json:"name" form:"name"`
	Email       string `json:"email" form:"email"`
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// POST /api/users/login
// Login or create: the phone number is the identity.
func Login(c *gin.Context) {
	env := EnvInstance(c)

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.PhoneNumber) == "" {
		RespondError(c, "phoneNumber is required", http.StatusBadRequest)
		return
	}

	ctx := requestContext(c)
	user, err := env.Users.FindOrCreate(ctx, req.PhoneNumber, req.Name)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	if user.Email == "" && req.Email != "" {
		if user, err = env.Users.UpdateProfile(ctx, user.ID, nil, &req.Email); err != nil {
			RespondServiceError(c, err)
			return
		}
	}

	signed, err := IssueToken(env.JwtSecret, user.ID, user.PhoneNumber, env.JwtExpire)
	if err != nil {
		RespondError(c, "error signing token", http.StatusInternalServerError)
		return
	}

	RespondSuccess(c, LoginResponse{Token: signed, User: user})
}
