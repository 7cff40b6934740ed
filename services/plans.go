package services

import (
	"context"

	"ledgerbot/models"

	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

// PlanService holds the plans offered to users.
type PlanService struct {
	store *Store
	log   *logrus.Entry
}

func NewPlanService(store *Store, log *logrus.Entry) *PlanService {
	return &PlanService{store: store, log: log}
}

// PlanPrices are the configured prices used when seeding.
type PlanPrices struct {
	BasicCents   int64
	PremiumCents int64
	Currency     string
	DurationDays int
}

// SeedPlans creates the basic and premium plans when missing. Existing plans keep
// whatever price an operator gave them.
func (s *PlanService) SeedPlans(ctx context.Context, prices PlanPrices) error {
	defaults := []models.Plan{
		{
			Name:         "בסיסית",
			Type:         models.PLAN_BASIC,
			Description:  "תוכנית בסיסית",
			PriceCents:   prices.BasicCents,
			Currency:     prices.Currency,
			DurationDays: prices.DurationDays,
			Features:     "ניהול יתרה וחובות\nהיסטוריית תנועות\nחיפוש בקבוצות",
			IsActive:     true,
		},
		{
			Name:         "פרימיום",
			Type:         models.PLAN_PREMIUM,
			Description:  "תוכנית פרימיום",
			PriceCents:   prices.PremiumCents,
			Currency:     prices.Currency,
			DurationDays: prices.DurationDays,
			Features:     "כל התכונות הבסיסיות\nתשובות חכמות\nתמיכה מועדפת",
			IsActive:     true,
		},
	}

	return s.store.Transaction(ctx, func(tx *gorm.DB) error {
		for _, plan := range defaults {
			var count int
			if err := tx.Model(&models.Plan{}).Where("type = ?", plan.Type).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			if err := tx.Create(&plan).Error; err != nil {
				return err
			}
			s.log.WithField("plan", plan.Type).Info("Plan seeded")
		}
		return nil
	})
}

// ActivePlans lists the plans on sale, cheapest first.
func (s *PlanService) ActivePlans(ctx context.Context) ([]models.Plan, error) {
	var plans []models.Plan
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		return tx.Where("is_active = ?", true).Order("price_cents asc, id asc").Find(&plans).Error
	})
	if err != nil {
		return nil, err
	}
	return plans, nil
}
