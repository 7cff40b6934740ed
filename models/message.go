package models

import "time"

/************************************************
/**** MARK: MESSAGE DIRECTION ****/
/************************************************/
const MESSAGE_DIRECTION_INCOMING = "incoming"
const MESSAGE_DIRECTION_OUTGOING = "outgoing"

// Message is the audit record of a direct chat message, in or out.
type Message struct {
	ID          int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	UserID      int64      `gorm:"not null;default:0;index" json:"user_id"`
	PhoneNumber string     `gorm:"not null;index" json:"phone_number"`
	Content     string     `gorm:"type:text" json:"content"`
	Direction   string     `gorm:"not null" json:"direction"`
	MessageID   string     `gorm:"not null;unique_index" json:"message_id"`
	Timestamp   time.Time  `gorm:"not null;index" json:"timestamp"`
	CreatedAt   *time.Time `json:"created_at"`
}

// GroupMessage is a message observed in a group chat. Content is searchable by prefix.
type GroupMessage struct {
	ID           int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	GroupID      string     `gorm:"not null;index" json:"group_id"`
	GroupName    string     `gorm:"not null" json:"group_name"`
	SenderNumber string     `gorm:"not null" json:"sender_number"`
	SenderName   string     `gorm:"default:''" json:"sender_name"`
	Content      string     `gorm:"type:text;not null" json:"content"`
	MessageID    string     `gorm:"not null;unique_index" json:"message_id"`
	Timestamp    time.Time  `gorm:"not null;index" json:"timestamp"`
	CreatedAt    *time.Time `json:"created_at"`
}

// DisplaySender prefers the contact name over the raw number.
func (m GroupMessage) DisplaySender() string {
	if m.SenderName != "" {
		return m.SenderName
	}
	return m.SenderNumber
}
