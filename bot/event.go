package bot

import (
	"context"
	"time"
)

// Event is one inbound chat message as delivered by the transport.
type Event struct {
	SenderID   string
	SenderName string
	IsGroup    bool
	GroupID    string
	GroupName  string
	Text       string
	Timestamp  time.Time
	MessageID  string
}

// Sender delivers outbound text to a recipient.
type Sender interface {
	SendText(ctx context.Context, to string, text string) error
}

// Responder produces the application answer to a subscriber's free text.
type Responder interface {
	Reply(ctx context.Context, phone string, text string) (string, error)
}

// queueKey groups events that must be handled in arrival order.
func (ev Event) queueKey() string {
	if ev.IsGroup {
		return "group:" + ev.GroupID
	}
	return "direct:" + ev.SenderID
}
