package router

import (
	"ledgerbot/config"
	"ledgerbot/controllers"
	"ledgerbot/metrics"
	"ledgerbot/middleware"

	"github.com/gin-gonic/gin"
)

// Initialize wires all routes and middlewares: public routes, authenticated
// routes and admin routes (Adminizer).
func Initialize(r *gin.Engine, cfg config.Configuration, env *controllers.Env, m *metrics.Metrics) {
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware(cfg.CorsOrigins...))
	r.Use(Logger(env.Log.WithField("component", "http")))
	r.Use(controllers.SetEnvToContext(env))

	r.GET("/metrics", gin.WrapH(m.Handler()))

	api := r.Group("/api")

	// Webhook (WhatsApp Cloud API + group bridge)
	api.GET("/webhook", controllers.WebhookVerify)
	api.POST("/webhook", controllers.WebhookUpdate)

	// Public (no auth)
	api.GET("/health", controllers.Health)
	api.POST("/users/login", middleware.RateLimitByIP(env.Limiter), controllers.Login)

	// Authenticated routes (token required)
	auth := api.Group("")
	auth.Use(controllers.AuthRequired())

	auth.GET("/plans", controllers.GetPlans)

	auth.GET("/users/profile", controllers.GetProfile)
	auth.PUT("/users/profile", controllers.UpdateProfile)
	auth.GET("/users/subscription", controllers.GetSubscription)

	auth.POST("/subscriptions/trial", controllers.StartTrial)
	auth.POST("/subscriptions/cancel", controllers.CancelSubscription)

	auth.POST("/payments/debt", controllers.AddDebt)
	auth.POST("/payments/payment", controllers.RecordPayment)
	auth.POST("/payments/credit", controllers.AddCredit)
	auth.POST("/payments/refund", controllers.AddRefund)
	auth.GET("/payments/balance", controllers.GetBalance)
	auth.GET("/payments/transactions", controllers.GetTransactions)

	// Admin routes
	admin := auth.Group("")
	admin.Use(Adminizer())

	admin.GET("/subscriptions/statistics", controllers.SubscriptionStatistics)
	admin.GET("/payments/statistics", controllers.LedgerStatistics)
	admin.POST("/agents", controllers.CreateSalesAgent)
	admin.GET("/agents/:id/report", controllers.GetAgentReport)

	env.Log.Info("Routes initialized")
}
