package msgsync

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"skippy.dog/server/internal/model"
)

func toastMsg(body string) model.Message {
	cid := uuid.New()
	return model.Message{
		ID:             uuid.New(),
		ConversationID: &cid,
		SenderID:       uuid.New(),
		RecipientID:    uuid.New(),
		Body:           body,
	}
}

type recordingNotifier struct {
	shown []string
	err   error
}

func (n *recordingNotifier) Show(title, body, icon, tag, link string) error {
	n.shown = append(n.shown, tag)
	return n.err
}

func TestSameMessageObservedTwiceShowsOneToast(t *testing.T) {
	var toasts []Toast
	p := &Presenter{OnToast: func(toast Toast) { toasts = append(toasts, toast) }}

	// The per-conversation feed and the sidebar-wide feed both observe the
	// same insert and both call Notify.
	m := toastMsg("see you at the park")
	p.Notify(m, "Dana Walker", "")
	p.Notify(m, "Dana Walker", "")

	require.Len(t, toasts, 1)
	assert.Equal(t, m.ID, toasts[0].MessageID)
	assert.Equal(t, "Dana Walker", toasts[0].SenderName)
}

func TestSuppressionOnlyTracksMostRecentMessage(t *testing.T) {
	var toasts []Toast
	p := &Presenter{OnToast: func(toast Toast) { toasts = append(toasts, toast) }}

	a, b := toastMsg("a"), toastMsg("b")
	p.Notify(a, "Dana", "")
	p.Notify(b, "Dana", "")
	p.Notify(a, "Dana", "")

	// Suppression is a single most-recent-id check, not a history.
	assert.Len(t, toasts, 3)
}

func TestSystemNotificationOnlyWhenUnfocused(t *testing.T) {
	notifier := &recordingNotifier{}
	focused := true
	p := &Presenter{
		System:  notifier,
		Focused: func() bool { return focused },
		BaseURL: "https://skippy.dog",
	}

	p.Notify(toastMsg("hi"), "Dana", "")
	assert.Empty(t, notifier.shown)

	focused = false
	m := toastMsg("hi again")
	p.Notify(m, "Dana", "")
	require.Len(t, notifier.shown, 1)
	assert.Equal(t, "message-"+m.ID.String(), notifier.shown[0])
}

func TestSystemNotificationFailureIsSilent(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("permission denied")}
	var toasts []Toast
	p := &Presenter{
		OnToast: func(toast Toast) { toasts = append(toasts, toast) },
		System:  notifier,
		Focused: func() bool { return false },
	}

	// Must not panic or suppress the in-app toast.
	p.Notify(toastMsg("hi"), "Dana", "")
	assert.Len(t, toasts, 1)
}

func TestToastBodyTruncated(t *testing.T) {
	var toasts []Toast
	p := &Presenter{OnToast: func(toast Toast) { toasts = append(toasts, toast) }}

	p.Notify(toastMsg(strings.Repeat("x", 150)), "Dana", "")
	require.Len(t, toasts, 1)
	assert.Equal(t, strings.Repeat("x", 100)+"…", toasts[0].Body)
}

func TestMissingSenderNameFallsBack(t *testing.T) {
	var toasts []Toast
	p := &Presenter{OnToast: func(toast Toast) { toasts = append(toasts, toast) }}

	p.Notify(toastMsg("hello"), "", "")
	require.Len(t, toasts, 1)
	assert.Equal(t, "Unknown User", toasts[0].SenderName)
}
