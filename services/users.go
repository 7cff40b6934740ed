package services

import (
	"context"
	"strings"
	"time"

	"ledgerbot/models"
	"ledgerbot/tools"

	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

// UserService is the user registry and the direct-message audit trail.
type UserService struct {
	store *Store
	log   *logrus.Entry
}

func NewUserService(store *Store, log *logrus.Entry) *UserService {
	return &UserService{store: store, log: log}
}

// Incoming describes one direct message being recorded.
type Incoming struct {
	Phone     string
	Name      string
	Text      string
	MessageID string
	Timestamp time.Time
}

// FindOrCreate returns the user for phone, creating it on first sight.
func (s *UserService) FindOrCreate(ctx context.Context, phone, name string) (models.User, error) {
	normalized, err := tools.NormalizePhone(phone)
	if err != nil {
		return models.User{}, Validation("phone_number")
	}

	var user models.User
	err = s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		user, err = findOrCreate(tx, normalized, name)
		return err
	})
	return user, err
}

func findOrCreate(tx *gorm.DB, phone, name string) (models.User, error) {
	var user models.User
	err := tx.Where("phone_number = ?", phone).First(&user).Error
	if err == nil {
		return user, nil
	}
	if !isNotFound(err) {
		return user, err
	}
	user = models.User{
		PhoneNumber:        phone,
		Name:               strings.TrimSpace(name),
		SubscriptionStatus: models.SUBSCRIPTION_STATUS_NONE,
	}
	if err := tx.Create(&user).Error; err != nil {
		return user, err
	}
	return user, nil
}

// RecordIncoming fetches or creates the sender, bumps its message counters and stores
// the message, all in one transaction. A message id seen before yields ErrDuplicateMessage.
func (s *UserService) RecordIncoming(ctx context.Context, in Incoming) (models.User, error) {
	phone, err := tools.NormalizePhone(in.Phone)
	if err != nil {
		return models.User{}, Validation("phone_number")
	}
	if in.MessageID == "" {
		in.MessageID = uuid.NewString()
	}
	ts := in.Timestamp.UTC()
	if in.Timestamp.IsZero() {
		ts = s.store.Now()
	}

	var user models.User
	err = s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var count int
		if err := tx.Model(&models.Message{}).Where("message_id = ?", in.MessageID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateMessage
		}

		var err error
		if user, err = findOrCreate(tx, phone, in.Name); err != nil {
			return err
		}
		now := s.store.Now()
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
			"message_count":   gorm.Expr("message_count + ?", 1),
			"last_message_at": now,
		}).Error; err != nil {
			return err
		}

		msg := models.Message{
			UserID:      user.ID,
			PhoneNumber: phone,
			Content:     in.Text,
			Direction:   models.MESSAGE_DIRECTION_INCOMING,
			MessageID:   in.MessageID,
			Timestamp:   ts,
		}
		if err := tx.Create(&msg).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateMessage
			}
			return err
		}
		return tx.First(&user, user.ID).Error
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// RecordOutgoing stores a reply sent to phone under a fresh message id.
func (s *UserService) RecordOutgoing(ctx context.Context, phone, text string) error {
	normalized, err := tools.NormalizePhone(phone)
	if err != nil {
		return Validation("phone_number")
	}
	return s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var user models.User
		err := tx.Where("phone_number = ?", normalized).First(&user).Error
		if err != nil && !isNotFound(err) {
			return err
		}
		return tx.Create(&models.Message{
			UserID:      user.ID,
			PhoneNumber: normalized,
			Content:     text,
			Direction:   models.MESSAGE_DIRECTION_OUTGOING,
			MessageID:   uuid.NewString(),
			Timestamp:   s.store.Now(),
		}).Error
	})
}

// Get loads a user by id.
func (s *UserService) Get(ctx context.Context, userID int64) (models.User, error) {
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
	return user, err
}

// GetByPhone loads a user by phone number, in any accepted format.
func (s *UserService) GetByPhone(ctx context.Context, phone string) (models.User, error) {
	normalized, err := tools.NormalizePhone(phone)
	if err != nil {
		return models.User{}, Validation("phone_number")
	}
	var user models.User
	err = s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("phone_number = ?", normalized).First(&user).Error; err != nil {
			if isNotFound(err) {
				return ErrUserNotFound
			}
			return err
		}
		return nil
	})
	return user, err
}

// UpdateProfile changes name and email. Nil leaves a field untouched.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, name, email *string) (models.User, error) {
	fields := map[string]interface{}{}
	if name != nil {
		fields["name"] = strings.TrimSpace(*name)
	}
	if email != nil {
		e := strings.TrimSpace(*email)
		if e != "" && !tools.ValidateEmail(e) {
			return models.User{}, Validation("email")
		}
		fields["email"] = e
	}

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
		if len(fields) == 0 {
			return nil
		}
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Updates(fields).Error; err != nil {
			return err
		}
		return tx.First(&user, userID).Error
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}
