package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"ledgerbot/tools"

	"github.com/joho/godotenv"
)

type Configuration struct {
	ApiPort  string `json:"api_port"`
	Env      string `json:"env"`
	LogPath  string `json:"log_path"`
	LogLevel string `json:"log_level"`

	CorsOrigins []string `json:"cors_origins"`

	Database    string `json:"database"` // "sqlite3" ou "postgres"
	DatabaseURL string `json:"database_url"`
	SqlitePath  string `json:"sqlite_path"`
	DbHost      string `json:"db_host"`
	DbPort      string `json:"db_port"`
	DbUser      string `json:"db_user"`
	DbName      string `json:"db_name"`
	DbPass      string `json:"db_pass"`
	AutoMigrate bool   `json:"automigrate"`

	// StoreTimeout bounds every unit of work against the database.
	StoreTimeout time.Duration `json:"-"`

	Bot struct {
		AdminPhoneNumbers []string `json:"admin_phone_numbers"`
		SenderRatePerSec  float64  `json:"sender_rate_per_sec"`
		SenderBurst       int      `json:"sender_burst"`
	} `json:"bot"`

	Subscription struct {
		TrialDays         int    `json:"trial_days"`
		SubscriptionDays  int    `json:"subscription_days"`
		BasicPriceCents   int64  `json:"-"`
		PremiumPriceCents int64  `json:"-"`
		Currency          string `json:"currency"`
		SweepSchedule     string `json:"sweep_schedule"`
	} `json:"subscription"`

	Security struct {
		JwtSecret string        `json:"jwt_secret"`
		JwtExpire time.Duration `json:"-"`
	} `json:"security"`

	WhatsApp struct {
		AccessToken   string `json:"access_token"`
		PhoneNumberID string `json:"phone_number_id"`
		ApiVersion    string `json:"api_version"`
		VerifyToken   string `json:"verify_token"`
		AppSecret     string `json:"app_secret"`
	} `json:"whatsapp"`

	OpenAI struct {
		ApiKey string `json:"api_key"`
		Model  string `json:"model"`
	} `json:"openai"`
}

// Get reads the optional JSON file at path, then .env, then the process environment.
// Later sources win.
func Get(path string) Configuration {
	var c Configuration
	c.AutoMigrate = true

	if path != "" {
		b, err := os.ReadFile(path)
		if err == nil {
			if err := json.Unmarshal(b, &c); err != nil {
				log.Fatal(err)
			}
		} else if !os.IsNotExist(err) {
			log.Fatal(err)
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env ignorado: %v", err)
	}

	applyEnv(&c)
	applyDefaults(&c)
	return c
}

func applyEnv(c *Configuration) {
	c.ApiPort = getenv("PORT", c.ApiPort)
	c.Env = getenv("ENV", c.Env)
	c.LogLevel = getenv("LOG_LEVEL", c.LogLevel)
	if v := getenv("CORS_ORIGINS", ""); v != "" {
		c.CorsOrigins = SplitList(v)
	}
	c.Database = getenv("DATABASE", c.Database)
	c.DatabaseURL = getenv("DATABASE_URL", c.DatabaseURL)
	c.SqlitePath = getenv("SQLITE_PATH", c.SqlitePath)
	if v := getenv("AUTOMIGRATE", ""); v != "" {
		c.AutoMigrate = v == "1" || strings.EqualFold(v, "true")
	}
	c.StoreTimeout = getenvDuration("STORE_TIMEOUT", c.StoreTimeout)

	if v := getenv("ADMIN_PHONE_NUMBERS", ""); v != "" {
		c.Bot.AdminPhoneNumbers = SplitList(v)
	}
	if v := getenv("SENDER_RATE_PER_SEC", ""); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.Bot.SenderRatePerSec = f
		}
	}
	c.Bot.SenderBurst = getenvInt("SENDER_BURST", c.Bot.SenderBurst)

	c.Subscription.TrialDays = getenvInt("TRIAL_DAYS", c.Subscription.TrialDays)
	c.Subscription.SubscriptionDays = getenvInt("SUBSCRIPTION_DAYS", c.Subscription.SubscriptionDays)
	c.Subscription.Currency = getenv("CURRENCY", c.Subscription.Currency)
	c.Subscription.SweepSchedule = getenv("SWEEP_SCHEDULE", c.Subscription.SweepSchedule)
	if cents, ok := parsePrice(getenv("BASIC_PLAN_PRICE", "")); ok {
		c.Subscription.BasicPriceCents = cents
	}
	if cents, ok := parsePrice(getenv("PREMIUM_PLAN_PRICE", "")); ok {
		c.Subscription.PremiumPriceCents = cents
	}

	c.Security.JwtSecret = getenv("JWT_SECRET", c.Security.JwtSecret)
	c.Security.JwtExpire = getenvDuration("JWT_EXPIRE", c.Security.JwtExpire)

	c.WhatsApp.AccessToken = getenv("WHATSAPP_ACCESS_TOKEN", c.WhatsApp.AccessToken)
	c.WhatsApp.PhoneNumberID = getenv("WHATSAPP_PHONE_NUMBER_ID", c.WhatsApp.PhoneNumberID)
	c.WhatsApp.ApiVersion = getenv("WHATSAPP_API_VERSION", c.WhatsApp.ApiVersion)
	c.WhatsApp.VerifyToken = getenv("WEBHOOK_VERIFY_TOKEN", c.WhatsApp.VerifyToken)
	c.WhatsApp.AppSecret = getenv("WEBHOOK_APP_SECRET", c.WhatsApp.AppSecret)

	c.OpenAI.ApiKey = getenv("OPENAI_API_KEY", c.OpenAI.ApiKey)
	c.OpenAI.Model = getenv("OPENAI_MODEL", c.OpenAI.Model)
}

// applyDefaults fills every zero value left after file and env.
func applyDefaults(c *Configuration) {
	if c.ApiPort == "" {
		c.ApiPort = "8080"
	}
	if c.Env == "" {
		c.Env = "development"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Database == "" {
		c.Database = "sqlite3"
	}
	if c.SqlitePath == "" {
		c.SqlitePath = "db/database.db"
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = 5 * time.Second
	}
	if c.Bot.SenderRatePerSec <= 0 {
		c.Bot.SenderRatePerSec = 2
	}
	if c.Bot.SenderBurst <= 0 {
		c.Bot.SenderBurst = 5
	}
	if c.Subscription.TrialDays <= 0 {
		c.Subscription.TrialDays = 7
	}
	if c.Subscription.SubscriptionDays <= 0 {
		c.Subscription.SubscriptionDays = 30
	}
	if c.Subscription.BasicPriceCents <= 0 {
		c.Subscription.BasicPriceCents = 999
	}
	if c.Subscription.PremiumPriceCents <= 0 {
		c.Subscription.PremiumPriceCents = 1999
	}
	if c.Subscription.Currency == "" {
		c.Subscription.Currency = "ILS"
	}
	if c.Subscription.SweepSchedule == "" {
		c.Subscription.SweepSchedule = "0 * * * *"
	}
	if c.Security.JwtSecret == "" {
		c.Security.JwtSecret = "CHANGE_ME"
	}
	if c.Security.JwtExpire <= 0 {
		c.Security.JwtExpire = 7 * 24 * time.Hour
	}
	if c.WhatsApp.ApiVersion == "" {
		c.WhatsApp.ApiVersion = "v24.0"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4.1-mini"
	}
}

// IsProduction reports whether ENV asks for production behaviour (JSON logs, gin release mode).
func (c Configuration) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// SplitList splits a comma-separated env value, dropping blanks.
func SplitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parsePrice(v string) (int64, bool) {
	if v == "" {
		return 0, false
	}
	cents, err := tools.ParseAmountString(v)
	if err != nil {
		log.Printf("config: ignoring invalid price %q: %v", v, err)
		return 0, false
	}
	return cents, true
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	s := getenv(key, "")
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func getenvDuration(key string, def time.Duration) time.Duration {
	s := getenv(key, "")
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
