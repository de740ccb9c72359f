package thread

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Thread is the per-pair conversation aggregate: one row per unordered
// participant pair, holding the latest-message pointer. Per-participant
// unread counters live on Participant rows.
type Thread struct {
	ID            uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	PairKey       string        `gorm:"uniqueIndex;size:80" json:"-"`
	LastMessageID uuid.NullUUID `gorm:"type:uuid" json:"-"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Participant represents thread_participants. UnreadCount is maintained
// transactionally with message writes, never recomputed from scans.
type Participant struct {
	ThreadID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"thread_id"`
	UserID      uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"user_id"`
	UnreadCount int       `json:"unread_count"`
}

func (Thread) TableName() string {
	return "threads"
}

func (Participant) TableName() string {
	return "thread_participants"
}

// PairKey builds the canonical lookup key for an unordered user pair.
// PairKey(a, b) == PairKey(b, a).
func PairKey(a, b uuid.UUID) string {
	first, second := a.String(), b.String()
	if strings.Compare(first, second) > 0 {
		first, second = second, first
	}
	return first + ":" + second
}

// OtherParticipant resolves the counterpart user id from a pair key.
// Returns uuid.Nil when self is not part of the pair.
func OtherParticipant(pairKey string, self uuid.UUID) uuid.UUID {
	parts := strings.SplitN(pairKey, ":", 2)
	if len(parts) != 2 {
		return uuid.Nil
	}
	a, errA := uuid.Parse(parts[0])
	b, errB := uuid.Parse(parts[1])
	if errA != nil || errB != nil {
		return uuid.Nil
	}
	switch self {
	case a:
		return b
	case b:
		return a
	}
	return uuid.Nil
}
