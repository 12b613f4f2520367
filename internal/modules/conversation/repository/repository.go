package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"skippy.dog/server/internal/model"
)

type ConversationRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Conversation, error)
	// FindOrCreate returns the conversation for the participant pair and
	// optional availability context, creating it on first contact. The pair is
	// matched in either order.
	FindOrCreate(ctx context.Context, a, b uuid.UUID, availabilityID *uuid.UUID) (*model.Conversation, error)
	// ListByParticipant returns the user's conversations with both
	// participants (and profiles) preloaded, most recently active first.
	ListByParticipant(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error)
	TouchLastMessage(ctx context.Context, id uuid.UUID, at time.Time) error
}

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participant1.Profile").
		Preload("Participant2.Profile").
		Preload("Availability").
		First(&conv, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) FindOrCreate(ctx context.Context, a, b uuid.UUID, availabilityID *uuid.UUID) (*model.Conversation, error) {
	var conv model.Conversation
	query := r.db.WithContext(ctx).
		Where("(participant1_id = ? AND participant2_id = ?) OR (participant1_id = ? AND participant2_id = ?)", a, b, b, a)
	if availabilityID != nil {
		query = query.Where("availability_id = ?", *availabilityID)
	}

	err := query.First(&conv).Error
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	conv = model.Conversation{
		Participant1ID: a,
		Participant2ID: b,
		AvailabilityID: availabilityID,
		LastMessageAt:  time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) ListByParticipant(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error) {
	var conversations []model.Conversation
	err := r.db.WithContext(ctx).
		Where("participant1_id = ? OR participant2_id = ?", userID, userID).
		Order("last_message_at desc").
		Preload("Participant1.Profile").
		Preload("Participant2.Profile").
		Preload("Availability").
		Find(&conversations).Error
	return conversations, err
}

func (r *conversationRepository) TouchLastMessage(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("id = ?", id).
		Update("last_message_at", at).Error
}
