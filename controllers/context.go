package controllers

import (
	"context"
	"time"

	"ledgerbot/bot"
	"ledgerbot/metrics"
	"ledgerbot/middleware"
	"ledgerbot/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const envKey = "env"

// Dispatcher accepts chat events for asynchronous handling.
type Dispatcher interface {
	Dispatch(ev bot.Event) bool
}

// Env is everything the HTTP handlers need.
type Env struct {
	Store         *services.Store
	Users         *services.UserService
	Subscriptions *services.SubscriptionService
	Ledger        *services.LedgerService
	Plans         *services.PlanService
	Dispatcher    Dispatcher
	Limiter       *middleware.SenderLimiter
	IsAdmin       func(phone string) bool
	Metrics       *metrics.Metrics

	JwtSecret          string
	JwtExpire          time.Duration
	WebhookVerifyToken string
	WebhookAppSecret   string

	Log *logrus.Entry
}

// SetEnvToContext is installed once on the gin engine.
func SetEnvToContext(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(envKey, env)
		c.Next()
	}
}

func EnvInstance(c *gin.Context) *Env {
	v, ok := c.Get(envKey)
	if !ok {
		return nil
	}
	env, _ := v.(*Env)
	return env
}

// requestContext is the request context, which gin cancels when the client goes away.
func requestContext(c *gin.Context) context.Context {
	return c.Request.Context()
}
