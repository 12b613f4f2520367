package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"skippy.dog/server/internal/modules/conversation/dto"
	"skippy.dog/server/internal/modules/conversation/repository"
	msgrepo "skippy.dog/server/internal/modules/message/repository"
	"skippy.dog/server/pkg/apperror"
)

type ConversationService interface {
	ListForViewer(ctx context.Context, viewerID uuid.UUID) ([]dto.ConversationView, error)
	GetForViewer(ctx context.Context, viewerID, conversationID uuid.UUID) (*dto.ConversationView, error)
}

type conversationService struct {
	conversations repository.ConversationRepository
	messages      msgrepo.MessageRepository
}

func NewConversationService(conversations repository.ConversationRepository, messages msgrepo.MessageRepository) ConversationService {
	return &conversationService{conversations: conversations, messages: messages}
}

func (s *conversationService) ListForViewer(ctx context.Context, viewerID uuid.UUID) ([]dto.ConversationView, error) {
	conversations, err := s.conversations.ListByParticipant(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	unreadByConv, err := s.unreadCounts(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	views := make([]dto.ConversationView, len(conversations))
	for i, conv := range conversations {
		views[i] = dto.ToConversationView(conv, viewerID, unreadByConv[conv.ID])
	}
	return views, nil
}

func (s *conversationService) GetForViewer(ctx context.Context, viewerID, conversationID uuid.UUID) (*dto.ConversationView, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	if conv.Participant1ID != viewerID && conv.Participant2ID != viewerID {
		return nil, apperror.ErrForbidden
	}

	unreadByConv, err := s.unreadCounts(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	view := dto.ToConversationView(*conv, viewerID, unreadByConv[conv.ID])
	return &view, nil
}

// unreadCounts groups the viewer's unread rows by conversation. Legacy rows
// without a conversation id contribute to no conversation but still count
// toward the viewer-wide badge, which is served by the message module.
func (s *conversationService) unreadCounts(ctx context.Context, viewerID uuid.UUID) (map[uuid.UUID]int, error) {
	unread, err := s.messages.UnreadByRecipient(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	counts := make(map[uuid.UUID]int)
	for _, m := range unread {
		if m.ConversationID != nil {
			counts[*m.ConversationID]++
		}
	}
	return counts, nil
}
