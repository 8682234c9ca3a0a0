package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserMetadata is free-form provider metadata on the user record. IsAdmin is
// only ever written by operators, never through a request path.
type UserMetadata struct {
	IsAdmin bool `json:"is_admin"`
}

// User is the identity record owned by the auth provider.
type User struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string       `gorm:"uniqueIndex;not null" json:"email"`
	Name         string       `gorm:"not null" json:"name"`
	PasswordHash string       `gorm:"not null" json:"-"`
	Metadata     UserMetadata `gorm:"serializer:json" json:"metadata"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Session is an authenticated browser session. Token is the opaque cookie
// value; CreatedAt bounds the absolute session lifetime regardless of
// refreshes.
type Session struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User        User      `gorm:"foreignKey:UserID" json:"user"`
	Token       string    `gorm:"uniqueIndex;not null" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	RefreshedAt time.Time `json:"refreshed_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (s *Session) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
