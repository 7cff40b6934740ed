package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ledgerbot/bot"
	"ledgerbot/config"
	"ledgerbot/controllers"
	"ledgerbot/db"
	"ledgerbot/metrics"
	"ledgerbot/middleware"
	"ledgerbot/router"
	"ledgerbot/services"
	"ledgerbot/tools"
	"ledgerbot/workers"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "config.json", "optional JSON configuration file")
	flag.Parse()

	cfg := config.Get(*configPath)
	log := newLogger(cfg)

	database, err := db.Connect(cfg, log.WithField("component", "db"))
	if err != nil {
		log.WithError(err).Fatal("Could not connect to the database")
	}
	defer database.Close()

	m := metrics.New()
	store := services.NewStore(database, cfg.StoreTimeout)

	users := services.NewUserService(store, log.WithField("component", "users"))
	subscriptions := services.NewSubscriptionService(store, cfg.Subscription.TrialDays, cfg.Subscription.SubscriptionDays,
		log.WithField("component", "subscriptions"))
	ledger := services.NewLedgerService(store, log.WithField("component", "ledger"))
	groups := services.NewGroupService(store, log.WithField("component", "groups"))
	plans := services.NewPlanService(store, log.WithField("component", "plans"))

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), cfg.StoreTimeout)
	if err := plans.SeedPlans(seedCtx, services.PlanPrices{
		BasicCents:   cfg.Subscription.BasicPriceCents,
		PremiumCents: cfg.Subscription.PremiumPriceCents,
		Currency:     cfg.Subscription.Currency,
		DurationDays: cfg.Subscription.SubscriptionDays,
	}); err != nil {
		// without plans subscribe lists nothing; everything else keeps working
		log.WithError(err).Warn("Could not seed plans")
	}
	cancelSeed()

	// WhatsApp Cloud API: without credentials it runs dry (log only)
	sender := tools.WhatsAppClient{
		AccessToken:   cfg.WhatsApp.AccessToken,
		ApiVersion:    cfg.WhatsApp.ApiVersion,
		PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
		DryRun:        cfg.WhatsApp.AccessToken == "" || cfg.WhatsApp.PhoneNumberID == "",
		Log:           log.WithField("component", "whatsapp"),
	}
	if sender.DryRun {
		log.Warn("WHATSAPP_ACCESS_TOKEN/WHATSAPP_PHONE_NUMBER_ID not set, replies will only be logged")
	}

	var responder bot.Responder
	if cfg.OpenAI.ApiKey != "" {
		responder = tools.AIResponder{ApiKey: cfg.OpenAI.ApiKey, Model: cfg.OpenAI.Model}
	}

	chat := bot.NewRouter(bot.Deps{
		Health:        store,
		Users:         users,
		Subscriptions: subscriptions,
		Ledger:        ledger,
		Groups:        groups,
		Plans:         plans,
		Sender:        sender,
		Responder:     responder,
		Searches:      bot.NewSearchTracker(),
		Admins:        cfg.Bot.AdminPhoneNumbers,
		Currency:      cfg.Subscription.Currency,
		Metrics:       m,
		Log:           log.WithField("component", "bot"),
	})
	dispatcher := bot.NewDispatcher(chat.Handle, log.WithField("component", "dispatcher"), m)

	sweep := workers.NewExpirySweep(subscriptions, time.Minute, m, log.WithField("component", "expiry_sweep"))
	scheduler, err := workers.StartExpirySweep(cfg.Subscription.SweepSchedule, sweep)
	if err != nil {
		log.WithError(err).Fatalf("Invalid SWEEP_SCHEDULE %q", cfg.Subscription.SweepSchedule)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	router.Initialize(engine, cfg, &controllers.Env{
		Store:              store,
		Users:              users,
		Subscriptions:      subscriptions,
		Ledger:             ledger,
		Plans:              plans,
		Dispatcher:         dispatcher,
		Limiter:            middleware.NewSenderLimiter(cfg.Bot.SenderRatePerSec, cfg.Bot.SenderBurst),
		IsAdmin:            chat.IsAdmin,
		Metrics:            m,
		JwtSecret:          cfg.Security.JwtSecret,
		JwtExpire:          cfg.Security.JwtExpire,
		WebhookVerifyToken: cfg.WhatsApp.VerifyToken,
		WebhookAppSecret:   cfg.WhatsApp.AppSecret,
		Log:                log,
	}, m)

	srv := &http.Server{
		Addr:              ":" + cfg.ApiPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Listening on :%s", cfg.ApiPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server stopped")
		}
	}()

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP shutdown")
	}
	<-scheduler.Stop().Done()
	dispatcher.Close()
}

func newLogger(cfg config.Configuration) *logrus.Entry {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	if cfg.IsProduction() {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	return logrus.NewEntry(l).WithField("service", "ledgerbot")
}
