package jobs

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"skippy.dog/server/internal/model"
	"skippy.dog/server/internal/modules/meeting/repository"
	userrepo "skippy.dog/server/internal/modules/user/repository"
	"skippy.dog/server/pkg/mailer"
)

// MeetingReminderJob emails both participants of meetings starting within the
// next hour. Runs every 10 minutes; the reminder_sent flag keeps it from
// mailing twice.
type MeetingReminderJob struct {
	meetings repository.MeetingRepository
	users    userrepo.UserRepository
	mail     mailer.Mailer
	window   time.Duration
}

func NewMeetingReminderJob(meetings repository.MeetingRepository, users userrepo.UserRepository, mail mailer.Mailer) *MeetingReminderJob {
	return &MeetingReminderJob{
		meetings: meetings,
		users:    users,
		mail:     mail,
		window:   time.Hour,
	}
}

func (j *MeetingReminderJob) Name() string { return "meeting-reminder" }

func (j *MeetingReminderJob) Schedule() string { return "*/10 * * * *" }

func (j *MeetingReminderJob) Run(ctx context.Context) error {
	due, err := j.meetings.DueForReminder(ctx, j.window)
	if err != nil {
		return err
	}

	for _, meeting := range due {
		j.remind(ctx, meeting, meeting.OrganizerID, meeting.Invitee)
		j.remind(ctx, meeting, meeting.InviteeID, meeting.Organizer)

		if err := j.meetings.MarkReminderSent(ctx, meeting.ID); err != nil {
			log.Printf("[meeting-reminder] failed to mark %s as sent: %v", meeting.ID, err)
		}
	}

	return nil
}

// remind emails one participant, naming the other.
func (j *MeetingReminderJob) remind(ctx context.Context, meeting model.Meeting, recipientID uuid.UUID, other *model.User) {
	recipient, err := j.users.FindByID(ctx, recipientID)
	if err != nil {
		log.Printf("[meeting-reminder] recipient lookup failed: %v", err)
		return
	}

	otherName := "Unknown User"
	if other != nil && other.Profile != nil {
		otherName = other.Profile.DisplayName()
	}

	subject, html := mailer.MeetingReminder(otherName, meeting.Location, meeting.StartsAt)
	if err := j.mail.Send(ctx, recipient.Email, subject, html); err != nil {
		log.Printf("[meeting-reminder] failed to email %s: %v", recipient.Email, err)
	}
}
