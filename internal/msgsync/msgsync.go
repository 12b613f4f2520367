// Package msgsync keeps a signed-in member's messaging state in sync with the
// backend: unread counts across all conversations, the open conversation's
// timeline, and transient new-message notifications.
//
// The backend is only reached through two injected surfaces: a Store for
// queries and read-state mutations, and a Feed delivering at-least-once,
// unordered insert/update events. Every component reconciles optimistic local
// updates against authoritative reloads, so duplicate or late events never
// corrupt visible state.
package msgsync

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"skippy.dog/server/internal/model"
	"skippy.dog/server/internal/realtime"
)

var (
	ErrEmptyMessage       = errors.New("message body is empty")
	ErrNoOpenConversation = errors.New("no conversation is open")
	ErrSessionClosed      = errors.New("session is closed")
	ErrNotInitialized     = errors.New("tracker is not initialized")
)

// Store is the queryable message store the sync components run against.
// Remote clients use the REST-backed implementation in pkg/apiclient.
type Store interface {
	// UnreadMessages returns every unread message addressed to the recipient.
	UnreadMessages(ctx context.Context, recipientID uuid.UUID) ([]model.Message, error)
	// MessagesBetween returns all messages exchanged between two participants,
	// ordered by creation time ascending.
	MessagesBetween(ctx context.Context, participant1, participant2 uuid.UUID) ([]model.Message, error)
	// MarkConversationRead marks unread messages addressed to the recipient in
	// the given conversation as read.
	MarkConversationRead(ctx context.Context, conversationID, recipientID uuid.UUID) error
	// MarkSenderRead marks unread messages from the sender to the recipient as
	// read, regardless of conversation id. Covers legacy rows without one.
	MarkSenderRead(ctx context.Context, senderID, recipientID uuid.UUID) error
	// MarkMessageRead marks one specific message as read.
	MarkMessageRead(ctx context.Context, messageID uuid.UUID) error
	// MarkAllRead marks every unread message addressed to the recipient.
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) error
	// SendMessage delivers a new message to the recipient, creating the
	// conversation server-side if needed.
	SendMessage(ctx context.Context, recipientID uuid.UUID, availabilityID *uuid.UUID, body string) (model.Message, error)
}

// Feed delivers realtime message events. Each Subscribe call registers an
// independent handler; multiple subscribers observe the same underlying event,
// so every handler must be idempotent. The returned function unsubscribes
// synchronously: after it returns the handler is never invoked again.
type Feed interface {
	Subscribe(handler func(realtime.MessageEvent)) (unsubscribe func(), err error)
}

// Conversation is the display-level view of a conversation the sync components
// need: the participant pair, the optional originating availability post, and
// what to show in notifications.
type Conversation struct {
	ID             uuid.UUID
	Participant1ID uuid.UUID
	Participant2ID uuid.UUID
	AvailabilityID *uuid.UUID
	DisplayName    string
	PhotoURL       string
}

// Other returns the participant that is not the viewer.
func (c Conversation) Other(viewerID uuid.UUID) uuid.UUID {
	if c.Participant1ID == viewerID {
		return c.Participant2ID
	}
	return c.Participant1ID
}

// matchesPair reports whether the message travels between the conversation's
// two participants, in either direction.
func (c Conversation) matchesPair(m model.Message) bool {
	return (m.SenderID == c.Participant1ID && m.RecipientID == c.Participant2ID) ||
		(m.SenderID == c.Participant2ID && m.RecipientID == c.Participant1ID)
}
