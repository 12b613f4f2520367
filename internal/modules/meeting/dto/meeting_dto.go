package dto

import (
	"time"

	"github.com/google/uuid"
	"skippy.dog/server/internal/model"
)

type CreateMeetingInput struct {
	ConversationID uuid.UUID `json:"conversation_id" binding:"required"`
	Location       string    `json:"location" binding:"required,max=255"`
	Notes          *string   `json:"notes"`
	StartsAt       time.Time `json:"starts_at" binding:"required"`
}

type MeetingResponse struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	OrganizerID    uuid.UUID `json:"organizer_id"`
	OrganizerName  string    `json:"organizer_name"`
	InviteeID      uuid.UUID `json:"invitee_id"`
	InviteeName    string    `json:"invitee_name"`
	Location       string    `json:"location"`
	Notes          *string   `json:"notes,omitempty"`
	StartsAt       time.Time `json:"starts_at"`
	CreatedAt      time.Time `json:"created_at"`
}

func ToMeetingResponse(m model.Meeting) MeetingResponse {
	resp := MeetingResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		OrganizerID:    m.OrganizerID,
		OrganizerName:  "Unknown User",
		InviteeID:      m.InviteeID,
		InviteeName:    "Unknown User",
		Location:       m.Location,
		Notes:          m.Notes,
		StartsAt:       m.StartsAt,
		CreatedAt:      m.CreatedAt,
	}
	if m.Organizer != nil && m.Organizer.Profile != nil {
		resp.OrganizerName = m.Organizer.Profile.DisplayName()
	}
	if m.Invitee != nil && m.Invitee.Profile != nil {
		resp.InviteeName = m.Invitee.Profile.DisplayName()
	}
	return resp
}

func ToMeetingResponses(meetings []model.Meeting) []MeetingResponse {
	out := make([]MeetingResponse, len(meetings))
	for i, m := range meetings {
		out[i] = ToMeetingResponse(m)
	}
	return out
}
