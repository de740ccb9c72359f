package user

import (
	"time"

	"github.com/google/uuid"
)

// User is the read-only directory record the messaging core enriches
// thread listings with. Account management lives elsewhere.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:64" json:"username"`
	DisplayName  string    `gorm:"size:128" json:"display_name"`
	AvatarURL    string    `json:"avatar_url"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// PushToken is a registered mobile device token for offline fan-out.
type PushToken struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Token     string    `gorm:"primaryKey;size:256"`
	Platform  string    `gorm:"size:16"`
	CreatedAt time.Time
}

func (User) TableName() string {
	return "users"
}

func (PushToken) TableName() string {
	return "push_tokens"
}
