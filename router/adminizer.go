package router

import (
	"net/http"

	"ledgerbot/controllers"

	"github.com/gin-gonic/gin"
)

// Adminizer blocks access when the logged user is not in the admin allow-list.
func Adminizer() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := controllers.GetUserLogged(c)
		if !ok {
			controllers.RespondError(c, "unauthorized", http.StatusUnauthorized)
			c.Abort()
			return
		}
		env := controllers.EnvInstance(c)
		if env == nil || env.IsAdmin == nil || !env.IsAdmin(user.PhoneNumber) {
			controllers.RespondError(c, "admin required", http.StatusForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
