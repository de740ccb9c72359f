package repository

import (
	"context"
	"errors"
	"time"

	"relay-chat/internal/domain/thread"
	relay_errors "relay-chat/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresThreadRepository struct {
	db *gorm.DB
}

func NewThreadRepository(db *gorm.DB) ThreadRepository {
	return &PostgresThreadRepository{db: db}
}

func (r *PostgresThreadRepository) FindOrCreate(ctx context.Context, userA, userB uuid.UUID) (thread.Thread, error) {
	pairKey := thread.PairKey(userA, userB)

	// Insert-if-absent on the pair key keeps concurrent first sends from
	// creating duplicate threads; the loser of the race falls through to
	// the re-read below.
	candidate := thread.Thread{
		ID:        uuid.New(),
		PairKey:   pairKey,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "pair_key"}}, DoNothing: true}).
		Create(&candidate)
	if res.Error != nil {
		return thread.Thread{}, res.Error
	}

	var th thread.Thread
	if err := r.db.WithContext(ctx).Where("pair_key = ?", pairKey).First(&th).Error; err != nil {
		return thread.Thread{}, err
	}

	// Participant rows may be missing on a fresh thread, or pruned by a
	// delete-all; either way they come back with a zero counter.
	for _, uid := range []uuid.UUID{userA, userB} {
		p := thread.Participant{ThreadID: th.ID, UserID: uid}
		err := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&p).Error
		if err != nil {
			return thread.Thread{}, err
		}
	}

	return th, nil
}

func (r *PostgresThreadRepository) GetByPair(ctx context.Context, userA, userB uuid.UUID) (thread.Thread, error) {
	var th thread.Thread
	err := r.db.WithContext(ctx).Where("pair_key = ?", thread.PairKey(userA, userB)).First(&th).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return thread.Thread{}, relay_errors.ErrNotFound
		}
		return thread.Thread{}, err
	}
	return th, nil
}

func (r *PostgresThreadRepository) GetByID(ctx context.Context, id uuid.UUID) (thread.Thread, error) {
	var th thread.Thread
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&th).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return thread.Thread{}, relay_errors.ErrNotFound
		}
		return thread.Thread{}, err
	}
	return th, nil
}

func (r *PostgresThreadRepository) SetLastMessage(ctx context.Context, threadID uuid.UUID, messageID uuid.NullUUID) error {
	res := r.db.WithContext(ctx).
		Model(&thread.Thread{}).
		Where("id = ?", threadID).
		Updates(map[string]interface{}{
			"last_message_id": messageID,
			"updated_at":      time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return relay_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresThreadRepository) IncrementUnread(ctx context.Context, threadID, userID uuid.UUID) error {
	// Atomic in-database increment; two concurrent sends must both land.
	res := r.db.WithContext(ctx).
		Model(&thread.Participant{}).
		Where("thread_id = ? AND user_id = ?", threadID, userID).
		Update("unread_count", gorm.Expr("unread_count + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return relay_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresThreadRepository) DecrementUnread(ctx context.Context, threadID, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&thread.Participant{}).
		Where("thread_id = ? AND user_id = ?", threadID, userID).
		Update("unread_count", gorm.Expr("GREATEST(unread_count - 1, 0)"))
	if res.Error != nil {
		return res.Error
	}
	return nil
}

func (r *PostgresThreadRepository) ResetUnread(ctx context.Context, threadID, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&thread.Participant{}).
		Where("thread_id = ? AND user_id = ?", threadID, userID).
		Update("unread_count", 0)
	if res.Error != nil {
		return res.Error
	}
	return nil
}

func (r *PostgresThreadRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]thread.Thread, error) {
	var threads []thread.Thread

	subQuery := r.db.Model(&thread.Participant{}).
		Select("thread_id").
		Where("user_id = ?", userID)

	err := r.db.WithContext(ctx).
		Where("id IN (?)", subQuery).
		Order("updated_at DESC").
		Find(&threads).Error
	if err != nil {
		return nil, err
	}
	return threads, nil
}

func (r *PostgresThreadRepository) GetParticipant(ctx context.Context, threadID, userID uuid.UUID) (thread.Participant, error) {
	var p thread.Participant
	err := r.db.WithContext(ctx).
		Where("thread_id = ? AND user_id = ?", threadID, userID).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return thread.Participant{}, relay_errors.ErrNotFound
		}
		return thread.Participant{}, err
	}
	return p, nil
}

func (r *PostgresThreadRepository) UnreadForUser(ctx context.Context, userID uuid.UUID) ([]thread.Participant, error) {
	var participants []thread.Participant
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND unread_count > 0", userID).
		Find(&participants).Error
	if err != nil {
		return nil, err
	}
	return participants, nil
}

func (r *PostgresThreadRepository) RemoveParticipantEverywhere(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&thread.Participant{}, "user_id = ?", userID).Error
}
