package database

import (
	"errors"
	"log"
	"time"

	"relay-chat/internal/domain/user"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedDemoUsers creates a couple of accounts for local development.
// Existing usernames are left alone.
func SeedDemoUsers(db *gorm.DB) error {
	demo := []struct {
		username string
		display  string
		password string
	}{
		{"alice", "Alice Demo", "alice-password"},
		{"bob", "Bob Demo", "bob-password"},
	}

	for _, d := range demo {
		var existing user.User
		err := db.Where("username = ?", d.username).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(d.password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		u := user.User{
			ID:           uuid.New(),
			Username:     d.username,
			DisplayName:  d.display,
			PasswordHash: string(hash),
			CreatedAt:    time.Now(),
		}
		if err := db.Create(&u).Error; err != nil {
			return err
		}
		log.Printf("Seeded demo user %s", d.username)
	}
	return nil
}
