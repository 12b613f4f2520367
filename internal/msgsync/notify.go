package msgsync

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"skippy.dog/server/internal/model"
)

const (
	defaultToastDuration = 5 * time.Second
	toastBodyLimit       = 100
)

// Toast is the transient in-app notification descriptor handed to the UI.
type Toast struct {
	MessageID      uuid.UUID
	ConversationID uuid.UUID
	SenderName     string
	Body           string
	PhotoURL       string
	// Duration is how long the toast stays up before auto-dismissing.
	Duration time.Duration
}

// SystemNotifier is the OS-level notification surface. Implementations should
// request permission lazily and fail quietly when it is denied or the surface
// is unavailable.
type SystemNotifier interface {
	Show(title, body, icon, tag, link string) error
}

// Presenter decides whether an incoming message surfaces a notification. The
// per-conversation feed and the viewer-wide feed can both observe the same
// insert; a single most-recent-id check is enough to suppress the duplicate.
type Presenter struct {
	// OnToast receives the toast descriptor. Nil disables in-app toasts.
	OnToast func(Toast)
	// System, if set, additionally shows an OS notification when the viewport
	// is not focused.
	System SystemNotifier
	// Focused reports whether the viewer is currently looking at the app.
	// Nil is treated as always focused.
	Focused func() bool
	// ToastDuration overrides the default five second auto-dismiss.
	ToastDuration time.Duration
	// BaseURL prefixes the deep link attached to system notifications.
	BaseURL string

	mu           sync.Mutex
	lastNotified uuid.UUID
}

// Notify surfaces the message unless it was the most recently notified one.
func (p *Presenter) Notify(m model.Message, senderName, photoURL string) {
	p.mu.Lock()
	if p.lastNotified == m.ID {
		p.mu.Unlock()
		return
	}
	p.lastNotified = m.ID
	p.mu.Unlock()

	if senderName == "" {
		senderName = "Unknown User"
	}

	var convID uuid.UUID
	if m.ConversationID != nil {
		convID = *m.ConversationID
	}

	duration := p.ToastDuration
	if duration == 0 {
		duration = defaultToastDuration
	}

	if p.OnToast != nil {
		p.OnToast(Toast{
			MessageID:      m.ID,
			ConversationID: convID,
			SenderName:     senderName,
			Body:           truncateBody(m.Body),
			PhotoURL:       photoURL,
			Duration:       duration,
		})
	}

	if p.System != nil && !p.isFocused() {
		link := fmt.Sprintf("%s/messages?conversation=%s", p.BaseURL, convID)
		title := fmt.Sprintf("New message from %s", senderName)
		tag := fmt.Sprintf("message-%s", m.ID)
		if err := p.System.Show(title, truncateBody(m.Body), photoURL, tag, link); err != nil {
			// Permission denied or surface unavailable: degrade silently.
			log.Printf("[msgsync] system notification skipped: %v", err)
		}
	}
}

func (p *Presenter) isFocused() bool {
	if p.Focused == nil {
		return true
	}
	return p.Focused()
}

func truncateBody(body string) string {
	runes := []rune(body)
	if len(runes) <= toastBodyLimit {
		return body
	}
	return string(runes[:toastBodyLimit]) + "…"
}
