package services

import (
	"context"
	"strings"
	"time"

	"ledgerbot/models"

	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

const SEARCH_RESULTS_LIMIT = 20

// GroupService persists group traffic and answers prefix searches over it.
type GroupService struct {
	store *Store
	log   *logrus.Entry
}

func NewGroupService(store *Store, log *logrus.Entry) *GroupService {
	return &GroupService{store: store, log: log}
}

// GroupSummary is one known group with its message count.
type GroupSummary struct {
	GroupID       string    `json:"group_id"`
	GroupName     string    `json:"group_name"`
	MessageCount  int64     `json:"message_count"`
	LastMessageAt time.Time `json:"last_message_at"`
}

// SaveGroupMessage stores a group message. A redelivered message id is ignored.
func (s *GroupService) SaveGroupMessage(ctx context.Context, msg models.GroupMessage) error {
	if msg.MessageID == "" {
		msg.MessageID = uuid.NewString()
	}
	if msg.GroupName == "" {
		msg.GroupName = "Unknown Group"
	}
	if msg.SenderNumber == "" {
		msg.SenderNumber = "Unknown"
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.store.Now()
	}
	msg.Timestamp = msg.Timestamp.UTC()

	return s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var count int
		if err := tx.Model(&models.GroupMessage{}).Where("message_id = ?", msg.MessageID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		return tx.Create(&msg).Error
	})
}

// SearchGroupMessages returns group messages whose content starts with prefix,
// ignoring case, newest first.
func (s *GroupService) SearchGroupMessages(ctx context.Context, prefix string, limit int) ([]models.GroupMessage, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, Validation("term")
	}
	if limit <= 0 || limit > SEARCH_RESULTS_LIMIT {
		limit = SEARCH_RESULTS_LIMIT
	}

	pattern := escapeLike(strings.ToLower(prefix)) + "%"
	var list []models.GroupMessage
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		return tx.Where("LOWER(content) LIKE ? ESCAPE '\\'", pattern).
			Order("timestamp desc, id desc").
			Limit(limit).
			Find(&list).Error
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// ListGroups returns every group seen so far, most recently active first.
func (s *GroupService) ListGroups(ctx context.Context) ([]GroupSummary, error) {
	var list []GroupSummary
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		rows, err := tx.Model(&models.GroupMessage{}).
			Select("group_id, MAX(group_name), COUNT(*), MAX(timestamp)").
			Group("group_id").
			Order("MAX(timestamp) desc").
			Rows()
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var g GroupSummary
			var last interface{}
			if err := rows.Scan(&g.GroupID, &g.GroupName, &g.MessageCount, &last); err != nil {
				return err
			}
			g.LastMessageAt = scanTime(last)
			list = append(list, g)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// MAX() over a timestamp comes back as text on sqlite3 and as time.Time on postgres.
func scanTime(v interface{}) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		return parseStoredTime(t)
	case []byte:
		return parseStoredTime(string(t))
	}
	return time.Time{}
}

var storedTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

func parseStoredTime(s string) time.Time {
	for _, layout := range storedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
