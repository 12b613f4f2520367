package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
	"skippy.dog/server/internal/model"
	convrepo "skippy.dog/server/internal/modules/conversation/repository"
	"skippy.dog/server/internal/modules/meeting/dto"
	"skippy.dog/server/internal/modules/meeting/repository"
	userrepo "skippy.dog/server/internal/modules/user/repository"
	"skippy.dog/server/pkg/apperror"
	"skippy.dog/server/pkg/mailer"
)

var ErrMeetingInPast = errors.New("meeting must start in the future")

type MeetingService interface {
	Create(ctx context.Context, organizerID uuid.UUID, input dto.CreateMeetingInput) (*model.Meeting, error)
	ListUpcoming(ctx context.Context, userID uuid.UUID) ([]model.Meeting, error)
}

type meetingService struct {
	meetings      repository.MeetingRepository
	conversations convrepo.ConversationRepository
	users         userrepo.UserRepository
	mail          mailer.Mailer
	sanitizer     *bluemonday.Policy
}

func NewMeetingService(
	meetings repository.MeetingRepository,
	conversations convrepo.ConversationRepository,
	users userrepo.UserRepository,
	mail mailer.Mailer,
) MeetingService {
	return &meetingService{
		meetings:      meetings,
		conversations: conversations,
		users:         users,
		mail:          mail,
		sanitizer:     bluemonday.StrictPolicy(),
	}
}

func (s *meetingService) Create(ctx context.Context, organizerID uuid.UUID, input dto.CreateMeetingInput) (*model.Meeting, error) {
	if !input.StartsAt.After(time.Now()) {
		return nil, ErrMeetingInPast
	}

	conv, err := s.conversations.GetByID(ctx, input.ConversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	if conv.Participant1ID != organizerID && conv.Participant2ID != organizerID {
		return nil, apperror.ErrForbidden
	}

	inviteeID := conv.Participant1ID
	if inviteeID == organizerID {
		inviteeID = conv.Participant2ID
	}

	meeting := &model.Meeting{
		ConversationID: conv.ID,
		OrganizerID:    organizerID,
		InviteeID:      inviteeID,
		Location:       s.sanitizer.Sanitize(input.Location),
		Notes:          s.sanitizeOptional(input.Notes),
		StartsAt:       input.StartsAt,
	}
	if err := s.meetings.Create(ctx, meeting); err != nil {
		return nil, err
	}

	go s.notifyInvitee(*meeting)

	created, err := s.meetings.GetByID(ctx, meeting.ID)
	if err != nil {
		return meeting, nil
	}
	return created, nil
}

func (s *meetingService) ListUpcoming(ctx context.Context, userID uuid.UUID) ([]model.Meeting, error) {
	return s.meetings.ListUpcoming(ctx, userID)
}

func (s *meetingService) notifyInvitee(meeting model.Meeting) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	invitee, err := s.users.FindByID(ctx, meeting.InviteeID)
	if err != nil {
		log.Printf("[meeting] email skipped, invitee lookup failed: %v", err)
		return
	}

	organizerName := "Someone"
	if organizer, err := s.users.FindByID(ctx, meeting.OrganizerID); err == nil && organizer.Profile != nil {
		organizerName = organizer.Profile.DisplayName()
	}

	subject, html := mailer.MeetingScheduled(organizerName, meeting.Location, meeting.StartsAt)
	if err := s.mail.Send(ctx, invitee.Email, subject, html); err != nil {
		log.Printf("[meeting] failed to send scheduled email: %v", err)
	}
}

func (s *meetingService) sanitizeOptional(v *string) *string {
	if v == nil {
		return nil
	}
	clean := s.sanitizer.Sanitize(*v)
	return &clean
}
