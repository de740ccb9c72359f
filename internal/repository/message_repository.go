package repository

import (
	"context"
	"errors"
	"time"

	"relay-chat/internal/domain/message"
	relay_errors "relay-chat/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Create(ctx context.Context, m *message.Message) error {
	res := r.db.WithContext(ctx).Create(m)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return relay_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresMessageRepository) CreateAttachment(ctx context.Context, a *message.Attachment) error {
	res := r.db.WithContext(ctx).Create(a)
	if res.Error != nil {
		return res.Error
	}
	return nil
}

func (r *PostgresMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (message.Message, error) {
	var m message.Message
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.Message{}, relay_errors.ErrNotFound
		}
		return message.Message{}, err
	}
	return m, nil
}

func (r *PostgresMessageRepository) GetAttachments(ctx context.Context, messageID uuid.UUID) ([]message.Attachment, error) {
	var attachments []message.Attachment
	err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("created_at ASC").
		Find(&attachments).Error
	if err != nil {
		return nil, err
	}
	return attachments, nil
}

func (r *PostgresMessageRepository) ListBetween(ctx context.Context, userA, userB, viewer uuid.UUID) ([]message.Message, error) {
	var messages []message.Message

	// Messages the viewer has removed are filtered through the removals
	// join table.
	removed := r.db.Model(&message.Removal{}).
		Select("message_id").
		Where("user_id = ?", viewer)

	err := r.db.WithContext(ctx).
		Where("((sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)) AND id NOT IN (?)",
			userA, userB, userB, userA, removed).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *PostgresMessageRepository) LatestBetween(ctx context.Context, userA, userB uuid.UUID) (message.Message, error) {
	var m message.Message
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			userA, userB, userB, userA).
		Order("created_at DESC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.Message{}, relay_errors.ErrNotFound
		}
		return message.Message{}, err
	}
	return m, nil
}

func (r *PostgresMessageRepository) MarkSeen(ctx context.Context, recipientID, senderID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("recipient_id = ? AND sender_id = ? AND status <> ?", recipientID, senderID, message.StatusSeen).
		Update("status", message.StatusSeen)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *PostgresMessageRepository) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	// Guarded so a late delivery ack never regresses SEEN.
	res := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("id = ? AND status = ?", id, message.StatusSent).
		Update("status", message.StatusDelivered)
	if res.Error != nil {
		return res.Error
	}
	return nil
}

func (r *PostgresMessageRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Delete(&message.Attachment{}, "message_id = ?", id).Error; err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Delete(&message.Removal{}, "message_id = ?", id).Error; err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Delete(&message.Message{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return relay_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresMessageRepository) RemoveAllForUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO message_removals (message_id, user_id, removed_at)
		SELECT id, ?, ?
		FROM messages
		WHERE sender_id = ? OR recipient_id = ?
		ON CONFLICT DO NOTHING`,
		userID, time.Now(), userID, userID).Error
}
