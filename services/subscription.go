package services

import (
	"context"
	"time"

	"ledgerbot/models"

	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

var nonTerminalStatuses = []string{models.SUBSCRIPTION_STATUS_ACTIVE, models.SUBSCRIPTION_STATUS_TRIAL}

// SubscriptionService owns the subscription lifecycle of users.
type SubscriptionService struct {
	store            *Store
	trialDays        int
	subscriptionDays int
	log              *logrus.Entry
}

func NewSubscriptionService(store *Store, trialDays, subscriptionDays int, log *logrus.Entry) *SubscriptionService {
	if trialDays <= 0 {
		trialDays = 7
	}
	if subscriptionDays <= 0 {
		subscriptionDays = 30
	}
	return &SubscriptionService{
		store:            store,
		trialDays:        trialDays,
		subscriptionDays: subscriptionDays,
		log:              log,
	}
}

func (s *SubscriptionService) TrialDays() int {
	return s.trialDays
}

// SubscriptionInfo is the read model of a user's subscription.
type SubscriptionInfo struct {
	Status                string     `json:"status"`
	Plan                  string     `json:"plan,omitempty"`
	Start                 *time.Time `json:"start,omitempty"`
	End                   *time.Time `json:"end,omitempty"`
	TrialUsed             bool       `json:"trial_used"`
	HasActiveSubscription bool       `json:"has_active_subscription"`
}

// SubscriptionStats counts users per subscription status.
type SubscriptionStats struct {
	Total     int64 `json:"total"`
	Active    int64 `json:"active"`
	Trial     int64 `json:"trial"`
	Expired   int64 `json:"expired"`
	Cancelled int64 `json:"cancelled"`
	None      int64 `json:"none"`
}

// HasActiveSubscription is true iff the status is active or trial.
func (s *SubscriptionService) HasActiveSubscription(user models.User) bool {
	return user.HasActiveSubscription()
}

// CanUseTrial is true iff the trial was never used and the user never subscribed.
func (s *SubscriptionService) CanUseTrial(user models.User) bool {
	return user.CanUseTrial()
}

// StartTrial moves the user into a trial window. The check and the write are a
// single conditional update, so concurrent requests cannot both succeed.
func (s *SubscriptionService) StartTrial(ctx context.Context, userID int64) (models.User, error) {
	unlock := s.store.lockUser(userID)
	defer unlock()

	var user models.User
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		now := s.store.Now()
		end := now.AddDate(0, 0, s.trialDays)

		res := tx.Model(&models.User{}).
			Where("id = ? AND trial_used = ? AND subscription_status NOT IN (?)", userID, false, nonTerminalStatuses).
			Updates(map[string]interface{}{
				"subscription_status": models.SUBSCRIPTION_STATUS_TRIAL,
				"subscription_start":  now,
				"subscription_end":    end,
				"trial_used":          true,
			})
		if res.Error != nil {
			return res.Error
		}

		if err := tx.First(&user, userID).Error; err != nil {
			if isNotFound(err) {
				return ErrUserNotFound
			}
			return err
		}
		if res.RowsAffected == 0 {
			if user.TrialUsed {
				return ErrAlreadyUsedTrial
			}
			return ErrAlreadyActive
		}
		return nil
	})
	if err != nil {
		return models.User{}, err
	}

	s.log.WithField("user_id", userID).Info("Trial started")
	return user, nil
}

// ActivateSubscription unconditionally opens a paid window for plan.
func (s *SubscriptionService) ActivateSubscription(ctx context.Context, userID int64, plan, externalSubscription, externalCustomer string) (models.User, error) {
	if !models.IsValidPlan(plan) {
		return models.User{}, ErrInvalidPlan
	}
	now := s.store.Now()
	end := now.AddDate(0, 0, s.subscriptionDays)
	user, err := s.updateUser(ctx, userID, map[string]interface{}{
		"subscription_status":      models.SUBSCRIPTION_STATUS_ACTIVE,
		"subscription_plan":        plan,
		"subscription_start":       now,
		"subscription_end":         end,
		"external_subscription_id": externalSubscription,
		"external_customer_id":     externalCustomer,
	})
	if err != nil {
		return user, err
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "plan": plan}).Info("Subscription activated")
	return user, nil
}

// CancelSubscription is idempotent: the status becomes cancelled whatever it was.
func (s *SubscriptionService) CancelSubscription(ctx context.Context, userID int64) (models.User, error) {
	user, err := s.updateUser(ctx, userID, map[string]interface{}{
		"subscription_status": models.SUBSCRIPTION_STATUS_CANCELLED,
	})
	if err != nil {
		return user, err
	}
	s.log.WithField("user_id", userID).Info("Subscription cancelled")
	return user, nil
}

// RenewSubscription reopens a paid window from now, keeping the plan.
func (s *SubscriptionService) RenewSubscription(ctx context.Context, userID int64) (models.User, error) {
	end := s.store.Now().AddDate(0, 0, s.subscriptionDays)
	user, err := s.updateUser(ctx, userID, map[string]interface{}{
		"subscription_status": models.SUBSCRIPTION_STATUS_ACTIVE,
		"subscription_end":    end,
	})
	if err != nil {
		return user, err
	}
	s.log.WithField("user_id", userID).Info("Subscription renewed")
	return user, nil
}

func (s *SubscriptionService) updateUser(ctx context.Context, userID int64, fields map[string]interface{}) (models.User, error) {
	unlock := s.store.lockUser(userID)
	defer unlock()

	var user models.User
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&user, userID).Error; err != nil {
			if isNotFound(err) {
				return ErrUserNotFound
			}
			return err
		}
		if err := tx.Model(&user).Updates(fields).Error; err != nil {
			return err
		}
		return tx.First(&user, userID).Error
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// SweepExpired moves every active or trial user whose window ended at or before now
// to expired and returns how many were moved. Each user is updated on its own and
// only if still due, so a renewal that lands mid-sweep is kept.
func (s *SubscriptionService) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()

	var ids []int64
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		return tx.Model(&models.User{}).
			Where("subscription_status IN (?) AND subscription_end <= ?", nonTerminalStatuses, now).
			Pluck("id", &ids).Error
	})
	if err != nil {
		return 0, err
	}

	expired := 0
	var lastErr error
	for _, id := range ids {
		ok, err := s.expireOne(ctx, id, now)
		if err != nil {
			s.log.WithError(err).WithField("user_id", id).Warn("Failed to expire subscription")
			lastErr = err
			continue
		}
		if ok {
			expired++
			s.log.WithField("user_id", id).Info("Subscription expired")
		}
	}
	return expired, lastErr
}

func (s *SubscriptionService) expireOne(ctx context.Context, userID int64, now time.Time) (bool, error) {
	unlock := s.store.lockUser(userID)
	defer unlock()

	var affected int64
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ? AND subscription_status IN (?) AND subscription_end <= ?", userID, nonTerminalStatuses, now).
			Update("subscription_status", models.SUBSCRIPTION_STATUS_EXPIRED)
		affected = res.RowsAffected
		return res.Error
	})
	return affected > 0, err
}

// GetUserSubscription reads the subscription fields of a user.
func (s *SubscriptionService) GetUserSubscription(ctx context.Context, userID int64) (SubscriptionInfo, error) {
	var user models.User
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&user, userID).Error; err != nil {
			if isNotFound(err) {
				return ErrUserNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return SubscriptionInfo{}, err
	}
	return SubscriptionInfo{
		Status:                user.SubscriptionStatus,
		Plan:                  user.SubscriptionPlan,
		Start:                 user.SubscriptionStart,
		End:                   user.SubscriptionEnd,
		TrialUsed:             user.TrialUsed,
		HasActiveSubscription: user.HasActiveSubscription(),
	}, nil
}

type statusCount struct {
	SubscriptionStatus string
	Total              int64
}

// GetStatistics counts users per status.
func (s *SubscriptionService) GetStatistics(ctx context.Context) (SubscriptionStats, error) {
	var rows []statusCount
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		return tx.Model(&models.User{}).
			Select("subscription_status, count(*) as total").
			Group("subscription_status").
			Scan(&rows).Error
	})
	if err != nil {
		return SubscriptionStats{}, err
	}

	var stats SubscriptionStats
	for _, r := range rows {
		stats.Total += r.Total
		switch r.SubscriptionStatus {
		case models.SUBSCRIPTION_STATUS_ACTIVE:
			stats.Active = r.Total
		case models.SUBSCRIPTION_STATUS_TRIAL:
			stats.Trial = r.Total
		case models.SUBSCRIPTION_STATUS_EXPIRED:
			stats.Expired = r.Total
		case models.SUBSCRIPTION_STATUS_CANCELLED:
			stats.Cancelled = r.Total
		case models.SUBSCRIPTION_STATUS_NONE:
			stats.None = r.Total
		}
	}
	return stats, nil
}
