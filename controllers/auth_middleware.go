package controllers

import (
	"errors"
	"net/http"
	"strings"

	"ledgerbot/models"
	"ledgerbot/services"

	"github.com/gin-gonic/gin"
)

const ctxUserKey = "auth_user"

// AuthRequired validates the Bearer token and loads the user into context.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		env := EnvInstance(c)
		if env == nil {
			RespondError(c, "env not configured", http.StatusInternalServerError)
			c.Abort()
			return
		}

		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(strings.ToLower(h), "bearer ") {
			RespondError(c, "authentication required", http.StatusUnauthorized)
			c.Abort()
			return
		}
		token := strings.TrimSpace(h[len("Bearer "):])
		userID, err := ParseToken(env.JwtSecret, token)
		if err != nil {
			RespondError(c, "invalid token", http.StatusUnauthorized)
			c.Abort()
			return
		}

		user, err := env.Users.Get(requestContext(c), userID)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				RespondError(c, "user not found", http.StatusUnauthorized)
			} else {
				RespondServiceError(c, err)
			}
			c.Abort()
			return
		}

		c.Set(ctxUserKey, user)
		c.Next()
	}
}

// GetUserLogged returns the user loaded by AuthRequired.
func GetUserLogged(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}
