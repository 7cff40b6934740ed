package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GET /api/health
// 503 while the database cannot be reached; the bot keeps answering in degraded mode.
func Health(c *gin.Context) {
	env := EnvInstance(c)
	if err := env.Store.Available(requestContext(c)); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "ok"})
}
