package dto

import (
	"time"

	"github.com/google/uuid"
	"skippy.dog/server/internal/model"
)

// ConversationView is the list-page projection: the raw participant pair is
// collapsed into "the other person" from the viewer's side, and the unread
// count is derived at read time.
type ConversationView struct {
	ID               uuid.UUID           `json:"id"`
	OtherUserID      uuid.UUID           `json:"other_user_id"`
	OtherDisplayName string              `json:"other_display_name"`
	OtherPhotoURL    *string             `json:"other_photo_url,omitempty"`
	Availability     *model.Availability `json:"availability,omitempty"`
	LastMessageAt    time.Time           `json:"last_message_at"`
	UnreadCount      int                 `json:"unread_count"`
}

func ToConversationView(conv model.Conversation, viewerID uuid.UUID, unread int) ConversationView {
	view := ConversationView{
		ID:            conv.ID,
		LastMessageAt: conv.LastMessageAt,
		Availability:  conv.Availability,
		UnreadCount:   unread,
	}

	view.OtherUserID = conv.Participant2ID
	if conv.Participant2ID == viewerID {
		view.OtherUserID = conv.Participant1ID
	}

	view.OtherDisplayName = "Unknown User"
	if other := conv.OtherParticipant(viewerID); other != nil && other.Profile != nil {
		view.OtherDisplayName = other.Profile.DisplayName()
		view.OtherPhotoURL = other.Profile.PhotoURL
	}

	return view
}
