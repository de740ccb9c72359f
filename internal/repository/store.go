package repository

import (
	"context"

	"gorm.io/gorm"
)

type GormStore struct {
	db       *gorm.DB
	messages MessageRepository
	threads  ThreadRepository
	users    UserRepository
}

func NewStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db:       db,
		messages: NewMessageRepository(db),
		threads:  NewThreadRepository(db),
		users:    NewUserRepository(db),
	}
}

func (s *GormStore) Messages() MessageRepository {
	return s.messages
}

func (s *GormStore) Threads() ThreadRepository {
	return s.threads
}

func (s *GormStore) Users() UserRepository {
	return s.users
}

func (s *GormStore) InTx(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
