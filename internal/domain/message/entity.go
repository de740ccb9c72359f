package message

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Delivery status values. Transitions only move forward:
// SENT -> DELIVERED -> SEEN.
const (
	StatusSent      = "SENT"
	StatusDelivered = "DELIVERED"
	StatusSeen      = "SEEN"
)

// Message represents the messages table. Sender, recipient and content
// are immutable after creation; only Status changes.
type Message struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SenderID    uuid.UUID      `gorm:"type:uuid;index" json:"sender_id"`
	RecipientID uuid.UUID      `gorm:"type:uuid;index" json:"recipient_id"`
	Content     sql.NullString `json:"-"`
	Status      string         `gorm:"size:16" json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Attachment represents the attachments table.
type Attachment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MessageID uuid.UUID `gorm:"type:uuid;index" json:"message_id"`
	FileType  string    `gorm:"size:64" json:"file_type"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// Removal represents message_removals: a per-user soft delete. The row's
// presence hides the message from that user without touching the other
// participant's copy.
type Removal struct {
	MessageID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	RemovedAt time.Time
}

func (Message) TableName() string {
	return "messages"
}

func (Attachment) TableName() string {
	return "attachments"
}

func (Removal) TableName() string {
	return "message_removals"
}

// Text returns the message content, empty string when null.
func (m Message) Text() string {
	if m.Content.Valid {
		return m.Content.String
	}
	return ""
}

// CanTransition reports whether the status change moves forward.
func CanTransition(from, to string) bool {
	rank := map[string]int{StatusSent: 0, StatusDelivered: 1, StatusSeen: 2}
	f, ok1 := rank[from]
	t, ok2 := rank[to]
	return ok1 && ok2 && t > f
}
