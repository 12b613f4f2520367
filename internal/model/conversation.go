package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation pairs two members, optionally around the availability post that
// started the exchange. The store creates it on first message; unread counts
// and the "other participant" view are derived at read time, never persisted.
type Conversation struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Participant1ID uuid.UUID  `gorm:"type:uuid;not null;index" json:"participant1_id"`
	Participant2ID uuid.UUID  `gorm:"type:uuid;not null;index" json:"participant2_id"`
	AvailabilityID *uuid.UUID `gorm:"type:uuid" json:"availability_id,omitempty"`
	LastMessageAt  time.Time  `gorm:"not null;index" json:"last_message_at"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`

	Participant1 *User         `gorm:"foreignKey:Participant1ID" json:"participant1,omitempty"`
	Participant2 *User         `gorm:"foreignKey:Participant2ID" json:"participant2,omitempty"`
	Availability *Availability `gorm:"foreignKey:AvailabilityID" json:"availability,omitempty"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.LastMessageAt.IsZero() {
		c.LastMessageAt = time.Now()
	}
	return nil
}

// OtherParticipant returns the participant that is not the viewer.
func (c *Conversation) OtherParticipant(viewerID uuid.UUID) *User {
	if c.Participant1ID == viewerID {
		return c.Participant2
	}
	return c.Participant1
}
