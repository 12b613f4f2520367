package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"skippy.dog/server/internal/config"
	"skippy.dog/server/internal/model"
	convrepo "skippy.dog/server/internal/modules/conversation/repository"
	"skippy.dog/server/internal/modules/message/repository"
	userrepo "skippy.dog/server/internal/modules/user/repository"
	"skippy.dog/server/internal/realtime"
	"skippy.dog/server/pkg/apperror"
	"skippy.dog/server/pkg/mailer"
	"skippy.dog/server/pkg/ratelimit"
)

type MessageService interface {
	Send(ctx context.Context, senderID uuid.UUID, recipientID uuid.UUID, availabilityID *uuid.UUID, body string) (*model.Message, error)
	UnreadForViewer(ctx context.Context, viewerID uuid.UUID) ([]model.Message, error)
	TimelineWith(ctx context.Context, viewerID, otherID uuid.UUID) ([]model.Message, error)
	MarkConversationRead(ctx context.Context, viewerID, conversationID uuid.UUID) (int, error)
	MarkSenderRead(ctx context.Context, viewerID, senderID uuid.UUID) (int, error)
	MarkMessageRead(ctx context.Context, viewerID, messageID uuid.UUID) error
	MarkAllRead(ctx context.Context, viewerID uuid.UUID) (int64, error)
}

type messageService struct {
	messages      repository.MessageRepository
	conversations convrepo.ConversationRepository
	users         userrepo.UserRepository
	publisher     *realtime.Publisher
	mail          mailer.Mailer
	rdb           *redis.Client
	sanitizer     *bluemonday.Policy
	rateLimit     time.Duration
	baseURL       string
}

func NewMessageService(
	messages repository.MessageRepository,
	conversations convrepo.ConversationRepository,
	users userrepo.UserRepository,
	publisher *realtime.Publisher,
	mail mailer.Mailer,
	rdb *redis.Client,
	cfg *config.Config,
) MessageService {
	return &messageService{
		messages:      messages,
		conversations: conversations,
		users:         users,
		publisher:     publisher,
		mail:          mail,
		rdb:           rdb,
		sanitizer:     bluemonday.StrictPolicy(),
		rateLimit:     cfg.RateLimitMessage,
		baseURL:       cfg.PublicBaseURL,
	}
}

func (s *messageService) Send(ctx context.Context, senderID, recipientID uuid.UUID, availabilityID *uuid.UUID, body string) (*model.Message, error) {
	body = strings.TrimSpace(s.sanitizer.Sanitize(body))
	if body == "" {
		return nil, apperror.ErrEmptyMessage
	}
	if senderID == recipientID {
		return nil, apperror.ErrSelfConversation
	}

	allowed, err := ratelimit.CheckAndSet(ctx, s.rdb, senderID, "send_message", s.rateLimit)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperror.ErrRateLimitExceeded
	}

	conv, err := s.conversations.FindOrCreate(ctx, senderID, recipientID, availabilityID)
	if err != nil {
		return nil, err
	}

	msg := &model.Message{
		ConversationID: &conv.ID,
		SenderID:       senderID,
		RecipientID:    recipientID,
		Body:           body,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	if err := s.conversations.TouchLastMessage(ctx, conv.ID, msg.CreatedAt); err != nil {
		log.Printf("[message] failed to touch conversation %s: %v", conv.ID, err)
	}

	s.publisher.MessageInserted(ctx, *msg)

	go s.notifyByEmail(*msg)

	return msg, nil
}

// notifyByEmail is best-effort; a delivery failure never fails the send.
func (s *messageService) notifyByEmail(msg model.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	recipient, err := s.users.FindByID(ctx, msg.RecipientID)
	if err != nil {
		log.Printf("[message] email skipped, recipient lookup failed: %v", err)
		return
	}

	senderName := "Someone"
	if sender, err := s.users.FindByID(ctx, msg.SenderID); err == nil && sender.Profile != nil {
		senderName = sender.Profile.DisplayName()
	}

	link := s.baseURL + "/messages"
	if msg.ConversationID != nil {
		link = fmt.Sprintf("%s/messages?conversation=%s", s.baseURL, msg.ConversationID)
	}

	subject, html := mailer.MessageReceived(senderName, preview(msg.Body), link)
	if err := s.mail.Send(ctx, recipient.Email, subject, html); err != nil {
		log.Printf("[message] failed to send email notification: %v", err)
	}
}

func preview(body string) string {
	runes := []rune(body)
	if len(runes) <= 140 {
		return body
	}
	return string(runes[:140]) + "…"
}

func (s *messageService) UnreadForViewer(ctx context.Context, viewerID uuid.UUID) ([]model.Message, error) {
	return s.messages.UnreadByRecipient(ctx, viewerID)
}

func (s *messageService) TimelineWith(ctx context.Context, viewerID, otherID uuid.UUID) ([]model.Message, error) {
	return s.messages.BetweenParticipants(ctx, viewerID, otherID)
}

func (s *messageService) MarkConversationRead(ctx context.Context, viewerID, conversationID uuid.UUID) (int, error) {
	marked, err := s.messages.MarkConversationRead(ctx, conversationID, viewerID)
	if err != nil {
		return 0, err
	}
	s.publishRead(ctx, marked)
	return len(marked), nil
}

func (s *messageService) MarkSenderRead(ctx context.Context, viewerID, senderID uuid.UUID) (int, error) {
	marked, err := s.messages.MarkSenderRead(ctx, senderID, viewerID)
	if err != nil {
		return 0, err
	}
	s.publishRead(ctx, marked)
	return len(marked), nil
}

func (s *messageService) MarkMessageRead(ctx context.Context, viewerID, messageID uuid.UUID) error {
	msg, err := s.messages.MarkMessageRead(ctx, messageID, viewerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.ErrNotFound
		}
		return err
	}
	if msg != nil {
		s.publisher.MessageRead(ctx, *msg)
	}
	return nil
}

func (s *messageService) MarkAllRead(ctx context.Context, viewerID uuid.UUID) (int64, error) {
	// No per-row events here: clients treat mark-all as a local reset and do
	// not wait for update events.
	return s.messages.MarkAllRead(ctx, viewerID)
}

func (s *messageService) publishRead(ctx context.Context, marked []model.Message) {
	for _, m := range marked {
		s.publisher.MessageRead(ctx, m)
	}
}
