package dto

import (
	"time"

	"github.com/google/uuid"
	"skippy.dog/server/internal/model"
)

type SendMessageRequest struct {
	RecipientID    uuid.UUID  `json:"recipient_id" binding:"required"`
	AvailabilityID *uuid.UUID `json:"availability_id"`
	Body           string     `json:"body" binding:"required"`
}

type MessageResponse struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID *uuid.UUID `json:"conversation_id,omitempty"`
	SenderID       uuid.UUID  `json:"sender_id"`
	RecipientID    uuid.UUID  `json:"recipient_id"`
	Body           string     `json:"body"`
	IsRead         bool       `json:"is_read"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func ToMessageResponse(m model.Message) MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		RecipientID:    m.RecipientID,
		Body:           m.Body,
		IsRead:         m.IsRead,
		ReadAt:         m.ReadAt,
		CreatedAt:      m.CreatedAt,
	}
}

func ToMessageResponses(msgs []model.Message) []MessageResponse {
	out := make([]MessageResponse, len(msgs))
	for i, m := range msgs {
		out[i] = ToMessageResponse(m)
	}
	return out
}

type MarkedReadResponse struct {
	MarkedCount int `json:"marked_count"`
}
