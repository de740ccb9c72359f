package repository

import (
	"context"

	"relay-chat/internal/domain/message"
	"relay-chat/internal/domain/thread"
	"relay-chat/internal/domain/user"

	"github.com/google/uuid"
)

type MessageRepository interface {
	Create(ctx context.Context, m *message.Message) error
	CreateAttachment(ctx context.Context, a *message.Attachment) error
	GetByID(ctx context.Context, id uuid.UUID) (message.Message, error)
	GetAttachments(ctx context.Context, messageID uuid.UUID) ([]message.Attachment, error)

	// ListBetween returns all messages between the pair, oldest first,
	// excluding messages the viewer has removed.
	ListBetween(ctx context.Context, userA, userB, viewer uuid.UUID) ([]message.Message, error)

	// LatestBetween returns the newest remaining message of the pair,
	// ErrNotFound when none remain.
	LatestBetween(ctx context.Context, userA, userB uuid.UUID) (message.Message, error)

	// MarkSeen advances every message sender->recipient that is not yet
	// SEEN. Returns the number of rows flipped.
	MarkSeen(ctx context.Context, recipientID, senderID uuid.UUID) (int64, error)

	// MarkDelivered advances a single message SENT -> DELIVERED. A message
	// already DELIVERED or SEEN is left untouched.
	MarkDelivered(ctx context.Context, id uuid.UUID) error

	HardDelete(ctx context.Context, id uuid.UUID) error

	// RemoveAllForUser appends the user to the removal set of every
	// message they sent or received.
	RemoveAllForUser(ctx context.Context, userID uuid.UUID) error
}

type ThreadRepository interface {
	// FindOrCreate resolves the thread for an unordered pair, creating it
	// together with both participant rows when absent. Participant rows
	// pruned by a delete-all are re-created with a zero counter.
	FindOrCreate(ctx context.Context, userA, userB uuid.UUID) (thread.Thread, error)

	GetByPair(ctx context.Context, userA, userB uuid.UUID) (thread.Thread, error)
	GetByID(ctx context.Context, id uuid.UUID) (thread.Thread, error)
	SetLastMessage(ctx context.Context, threadID uuid.UUID, messageID uuid.NullUUID) error
	IncrementUnread(ctx context.Context, threadID, userID uuid.UUID) error
	DecrementUnread(ctx context.Context, threadID, userID uuid.UUID) error
	ResetUnread(ctx context.Context, threadID, userID uuid.UUID) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]thread.Thread, error)
	GetParticipant(ctx context.Context, threadID, userID uuid.UUID) (thread.Participant, error)
	UnreadForUser(ctx context.Context, userID uuid.UUID) ([]thread.Participant, error)
	RemoveParticipantEverywhere(ctx context.Context, userID uuid.UUID) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (user.User, error)
	GetByUsername(ctx context.Context, username string) (user.User, error)
	Create(ctx context.Context, u *user.User) error
	PushTokens(ctx context.Context, userID uuid.UUID) ([]user.PushToken, error)
}

// Store bundles the repositories and scopes them to one transaction when
// needed. Multi-write operations run inside InTx so a partial failure
// rolls back instead of leaving counters out of step with messages.
type Store interface {
	Messages() MessageRepository
	Threads() ThreadRepository
	Users() UserRepository
	InTx(ctx context.Context, fn func(Store) error) error
}
