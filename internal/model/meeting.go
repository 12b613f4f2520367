package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Meeting struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index" json:"conversation_id"`
	OrganizerID    uuid.UUID `gorm:"type:uuid;not null" json:"organizer_id"`
	InviteeID      uuid.UUID `gorm:"type:uuid;not null" json:"invitee_id"`
	Location       string    `gorm:"size:255;not null" json:"location"`
	Notes          *string   `gorm:"type:text" json:"notes,omitempty"`
	StartsAt       time.Time `gorm:"not null;index" json:"starts_at"`
	ReminderSent   bool      `gorm:"default:false" json:"reminder_sent"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`

	Organizer *User `gorm:"foreignKey:OrganizerID" json:"organizer,omitempty"`
	Invitee   *User `gorm:"foreignKey:InviteeID" json:"invitee,omitempty"`
}

func (m *Meeting) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
