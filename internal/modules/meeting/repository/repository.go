package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"skippy.dog/server/internal/model"
)

type MeetingRepository interface {
	Create(ctx context.Context, meeting *model.Meeting) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Meeting, error)
	ListUpcoming(ctx context.Context, userID uuid.UUID) ([]model.Meeting, error)
	// DueForReminder finds meetings starting within the window whose reminder
	// has not gone out yet, with both participants preloaded.
	DueForReminder(ctx context.Context, window time.Duration) ([]model.Meeting, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID) error
}

type meetingRepository struct {
	db *gorm.DB
}

func NewMeetingRepository(db *gorm.DB) MeetingRepository {
	return &meetingRepository{db: db}
}

func (r *meetingRepository) Create(ctx context.Context, meeting *model.Meeting) error {
	return r.db.WithContext(ctx).Create(meeting).Error
}

func (r *meetingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Meeting, error) {
	var meeting model.Meeting
	err := r.db.WithContext(ctx).
		Preload("Organizer.Profile").
		Preload("Invitee.Profile").
		First(&meeting, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &meeting, nil
}

func (r *meetingRepository) ListUpcoming(ctx context.Context, userID uuid.UUID) ([]model.Meeting, error) {
	var meetings []model.Meeting
	err := r.db.WithContext(ctx).
		Where("(organizer_id = ? OR invitee_id = ?) AND starts_at > ?", userID, userID, time.Now()).
		Order("starts_at asc").
		Preload("Organizer.Profile").
		Preload("Invitee.Profile").
		Find(&meetings).Error
	return meetings, err
}

func (r *meetingRepository) DueForReminder(ctx context.Context, window time.Duration) ([]model.Meeting, error) {
	now := time.Now()
	var meetings []model.Meeting
	err := r.db.WithContext(ctx).
		Where("reminder_sent = ? AND starts_at > ? AND starts_at <= ?", false, now, now.Add(window)).
		Preload("Organizer.Profile").
		Preload("Invitee.Profile").
		Find(&meetings).Error
	return meetings, err
}

func (r *meetingRepository) MarkReminderSent(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Meeting{}).
		Where("id = ?", id).
		Update("reminder_sent", true).Error
}
