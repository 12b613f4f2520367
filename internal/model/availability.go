package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PostTypeWalkerNeeded  = "walker_needed"
	PostTypeWalkerOffered = "walker_offered"
)

// Availability is a community post: either an owner looking for a walker or a
// walker offering time slots.
type Availability struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	PostType    string     `gorm:"size:20;not null" json:"post_type"`
	Title       string     `gorm:"size:150;not null" json:"title"`
	Description *string    `gorm:"type:text" json:"description,omitempty"`
	City        *string    `gorm:"size:100" json:"city,omitempty"`
	StartsAt    *time.Time `json:"starts_at,omitempty"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (a *Availability) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
