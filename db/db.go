package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ledgerbot/config"
	"ledgerbot/models"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	"github.com/sirupsen/logrus"
)

// Connect opens the database (sqlite3 by default) and runs AutoMigrate when configured.
func Connect(conf config.Configuration, log *logrus.Entry) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)

	switch strings.ToLower(conf.Database) {
	case "postgres", "postgresql":
		log.Info("Using postgresql connection...")
		db, err = gorm.Open("postgres", postgresDSN(conf))
	default:
		log.Info("Using sqlite3 connection...")
		if dir := filepath.Dir(conf.SqlitePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		db, err = gorm.Open("sqlite3", conf.SqlitePath)
		if err == nil {
			// sqlite allows a single writer; one connection avoids "database is locked".
			db.DB().SetMaxOpenConns(1)
		}
	}
	if err != nil {
		log.WithError(err).Error("Got error when connect database")
		return nil, err
	}

	db.LogMode(!conf.IsProduction())
	db.SetLogger(gormLogger{log: log.WithField("component", "gorm")})

	if conf.AutoMigrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// Migrate creates or updates every table the bot owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Plan{},
		&models.Message{},
		&models.GroupMessage{},
		&models.Transaction{},
		&models.Balance{},
		&models.SalesAgent{},
	).Error
}

// Ping reports whether the store answers within ctx.
func Ping(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("db not configured")
	}
	return db.DB().PingContext(ctx)
}

func postgresDSN(conf config.Configuration) string {
	if conf.DatabaseURL != "" {
		return conf.DatabaseURL
	}
	path := "host=" + conf.DbHost + " port=" + conf.DbPort
	path += " user=" + conf.DbUser + " dbname=" + conf.DbName
	path += " password=" + conf.DbPass
	return path
}

type gormLogger struct {
	log *logrus.Entry
}

func (l gormLogger) Print(v ...interface{}) {
	l.log.Debug(v...)
}
