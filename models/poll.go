package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Poll is a question with an ordered, fixed set of votable options. Question
// and options are stored already sanitized; rendering them verbatim is safe.
type Poll struct {
	ID                    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID                uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Question              string    `gorm:"not null" json:"question"`
	Options               []string  `gorm:"serializer:json;not null" json:"options"`
	// No `default` tags here: gorm omits zero-value fields carrying one on
	// insert, which would silently store false flags as their defaults.
	// Defaults for absent input live in the validation layer.
	AllowMultipleVotes    bool      `gorm:"not null" json:"allow_multiple_votes"`
	RequireAuthentication bool      `gorm:"not null" json:"require_authentication"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// Vote records a single choice on a poll. UserID is nil for anonymous votes.
// The composite unique index only constrains authenticated votes; NULL user_id
// rows never collide, so anonymous votes are not deduplicated.
type Vote struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	PollID      uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_votes_poll_user" json:"poll_id"`
	UserID      *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_votes_poll_user" json:"user_id,omitempty"`
	OptionIndex int        `gorm:"not null" json:"option_index"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (p *Poll) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (v *Vote) BeforeCreate(_ *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
