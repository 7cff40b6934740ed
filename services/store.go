package services

import (
	"context"
	"strconv"
	"time"

	dbpkg "ledgerbot/db"
	"ledgerbot/tools"

	"github.com/jinzhu/gorm"
)

// Store bounds every unit of work against the database and serializes writes per user.
type Store struct {
	db      *gorm.DB
	timeout time.Duration
	locks   *tools.KeyMutex
	now     func() time.Time
}

func NewStore(db *gorm.DB, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Store{
		db:      db,
		timeout: timeout,
		locks:   tools.NewKeyMutex(),
		now:     time.Now,
	}
}

// SetClock replaces the time source (tests).
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Now is the store clock in UTC.
func (s *Store) Now() time.Time {
	return s.now().UTC()
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

// Available pings the database within the store timeout.
func (s *Store) Available(ctx context.Context) error {
	if s == nil || s.db == nil {
		return ErrUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := dbpkg.Ping(ctx, s.db); err != nil {
		return classifyPing(ctx, err)
	}
	return nil
}

func classifyPing(ctx context.Context, err error) error {
	err = classify(ctx, err)
	if Kind(err) == ErrInternal {
		// ping only fails when the database cannot be reached
		return ErrUnavailable
	}
	return err
}

// Transaction runs fn inside one database transaction bound by the store timeout.
// fn must only use the tx it receives.
func (s *Store) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return ErrUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx := s.db.BeginTx(ctx, nil)
	if tx.Error != nil {
		return classify(ctx, tx.Error)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return classify(ctx, err)
	}
	if err := tx.Commit().Error; err != nil {
		return classify(ctx, err)
	}
	return nil
}

// lockUser serializes writers of the same user inside this process.
func (s *Store) lockUser(userID int64) func() {
	return s.locks.Lock("user:" + strconv.FormatInt(userID, 10))
}
