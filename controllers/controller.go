package controllers

import (
	"net/http"

	"ledgerbot/services"

	"github.com/gin-gonic/gin"
)

func RespondError(c *gin.Context, msg string, code int) {
	c.JSON(code, gin.H{"error": msg})
}

func RespondSuccess(c *gin.Context, payload any) {
	c.JSON(200, payload)
}

// RespondServiceError maps a service failure to its HTTP status.
func RespondServiceError(c *gin.Context, err error) {
	switch services.Kind(err) {
	case services.ErrValidation:
		RespondError(c, err.Error(), http.StatusBadRequest)
	case services.ErrUnauthorized:
		RespondError(c, err.Error(), http.StatusUnauthorized)
	case services.ErrNotFound:
		RespondError(c, err.Error(), http.StatusNotFound)
	case services.ErrConflict:
		RespondError(c, err.Error(), http.StatusConflict)
	case services.ErrUnavailable:
		RespondError(c, "database unavailable, try again", http.StatusServiceUnavailable)
	default:
		if env := EnvInstance(c); env != nil && env.Log != nil {
			env.Log.WithError(err).WithField("path", c.FullPath()).Error("Unexpected error")
		}
		RespondError(c, "server error", http.StatusInternalServerError)
	}
}
