package mailer

import (
	"fmt"
	"html"
	"time"
)

// Templates are intentionally small inline HTML; the app's email volume does
// not justify a templating engine.

func MessageReceived(senderName, preview, conversationURL string) (subject, body string) {
	subject = fmt.Sprintf("New message from %s", senderName)
	body = fmt.Sprintf(
		`<p><strong>%s</strong> sent you a message on Skippy:</p>
<blockquote>%s</blockquote>
<p><a href="%s">Reply on Skippy</a></p>`,
		html.EscapeString(senderName),
		html.EscapeString(preview),
		conversationURL,
	)
	return subject, body
}

func MeetingScheduled(organizerName, location string, startsAt time.Time) (subject, body string) {
	subject = fmt.Sprintf("%s scheduled a meeting with you", organizerName)
	body = fmt.Sprintf(
		`<p><strong>%s</strong> scheduled a dog walk meeting with you.</p>
<p>Where: %s<br>When: %s</p>`,
		html.EscapeString(organizerName),
		html.EscapeString(location),
		startsAt.Format("Monday, Jan 2 at 3:04 PM"),
	)
	return subject, body
}

func MeetingReminder(otherName, location string, startsAt time.Time) (subject, body string) {
	subject = "Reminder: upcoming dog walk meeting"
	body = fmt.Sprintf(
		`<p>Your meeting with <strong>%s</strong> starts at %s.</p>
<p>Where: %s</p>`,
		html.EscapeString(otherName),
		startsAt.Format("3:04 PM"),
		html.EscapeString(location),
	)
	return subject, body
}
