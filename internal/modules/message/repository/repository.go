package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"skippy.dog/server/internal/model"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) error
	UnreadByRecipient(ctx context.Context, recipientID uuid.UUID) ([]model.Message, error)
	BetweenParticipants(ctx context.Context, a, b uuid.UUID) ([]model.Message, error)
	// MarkConversationRead marks unread messages for the recipient in the
	// conversation and returns the rows it touched.
	MarkConversationRead(ctx context.Context, conversationID, recipientID uuid.UUID) ([]model.Message, error)
	// MarkSenderRead marks unread messages from sender to recipient,
	// regardless of conversation id. Needed for legacy rows without one.
	MarkSenderRead(ctx context.Context, senderID, recipientID uuid.UUID) ([]model.Message, error)
	MarkMessageRead(ctx context.Context, messageID, recipientID uuid.UUID) (*model.Message, error)
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *messageRepository) UnreadByRecipient(ctx context.Context, recipientID uuid.UUID) ([]model.Message, error) {
	var messages []model.Message
	err := r.db.WithContext(ctx).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Order("created_at desc").
		Find(&messages).Error
	return messages, err
}

func (r *messageRepository) BetweenParticipants(ctx context.Context, a, b uuid.UUID) ([]model.Message, error) {
	var messages []model.Message
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)", a, b, b, a).
		Order("created_at asc").
		Find(&messages).Error
	return messages, err
}

func (r *messageRepository) MarkConversationRead(ctx context.Context, conversationID, recipientID uuid.UUID) ([]model.Message, error) {
	return r.markRead(ctx, r.db.WithContext(ctx).
		Where("conversation_id = ? AND recipient_id = ? AND is_read = ?", conversationID, recipientID, false))
}

func (r *messageRepository) MarkSenderRead(ctx context.Context, senderID, recipientID uuid.UUID) ([]model.Message, error) {
	return r.markRead(ctx, r.db.WithContext(ctx).
		Where("sender_id = ? AND recipient_id = ? AND is_read = ?", senderID, recipientID, false))
}

// markRead resolves the rows the predicate matches, flips them, and returns
// them with their new read state so callers can publish events per row.
func (r *messageRepository) markRead(ctx context.Context, query *gorm.DB) ([]model.Message, error) {
	var messages []model.Message
	if err := query.Find(&messages).Error; err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
	}

	now := time.Now()
	err := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{"is_read": true, "read_at": now}).Error
	if err != nil {
		return nil, err
	}

	for i := range messages {
		messages[i].IsRead = true
		messages[i].ReadAt = &now
	}
	return messages, nil
}

func (r *messageRepository) MarkMessageRead(ctx context.Context, messageID, recipientID uuid.UUID) (*model.Message, error) {
	var msg model.Message
	err := r.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", messageID, recipientID).
		First(&msg).Error
	if err != nil {
		return nil, err
	}
	if msg.IsRead {
		return nil, nil
	}

	now := time.Now()
	err = r.db.WithContext(ctx).Model(&model.Message{}).
		Where("id = ?", messageID).
		Updates(map[string]interface{}{"is_read": true, "read_at": now}).Error
	if err != nil {
		return nil, err
	}

	msg.IsRead = true
	msg.ReadAt = &now
	return &msg, nil
}

func (r *messageRepository) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	return res.RowsAffected, res.Error
}
