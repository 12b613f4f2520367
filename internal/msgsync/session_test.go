package msgsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"skippy.dog/server/internal/model"
	"skippy.dog/server/internal/realtime"
)

func testConversation(id uuid.UUID, a, b uuid.UUID) Conversation {
	return Conversation{
		ID:             id,
		Participant1ID: a,
		Participant2ID: b,
		DisplayName:    "Dana Walker",
	}
}

func confirmed(id uuid.UUID, sender, recipient uuid.UUID, conv uuid.UUID, body string, at time.Time) model.Message {
	cid := conv
	return model.Message{
		ID:             id,
		ConversationID: &cid,
		SenderID:       sender,
		RecipientID:    recipient,
		Body:           body,
		CreatedAt:      at,
	}
}

func staticBetween(msgs []model.Message) func(int, uuid.UUID, uuid.UUID) ([]model.Message, error) {
	return func(int, uuid.UUID, uuid.UUID) ([]model.Message, error) { return msgs, nil }
}

func TestOpenLoadsOrderedTimeline(t *testing.T) {
	me, them := uuid.New(), uuid.New()
	conv := testConversation(uuid.New(), me, them)
	now := time.Now()

	// Store returns rows out of order; the timeline must not.
	store := &fakeStore{betweenFn: staticBetween([]model.Message{
		confirmed(uuid.New(), them, me, conv.ID, "second", now.Add(-time.Minute)),
		confirmed(uuid.New(), me, them, conv.ID, "first", now.Add(-2*time.Minute)),
	})}
	session := NewConversationSession(store, newFakeFeed(), nil, me)
	defer session.Close()

	require.NoError(t, session.Open(context.Background(), conv))

	assert.Equal(t, StateReady, session.State())
	entries := session.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].Message.Body)
	assert.Equal(t, "second", entries[1].Message.Body)
}

func TestOpenSameConversationIsNoop(t *testing.T) {
	me, them := uuid.New(), uuid.New()
	conv := testConversation(uuid.New(), me, them)
	store := &fakeStore{betweenFn: staticBetween(nil)}
	session := NewConversationSession(store, newFakeFeed(), nil, me)
	defer session.Close()

	require.NoError(t, session.Open(context.Background(), conv))
	require.NoError(t, session.Open(context.Background(), conv))

	_, between := store.counts()
	assert.Equal(t, 1, between, "re-opening the ready conversation must not reload")
}

func TestSendFailureRemovesProvisional(t *testing.T) {
	me, them := uuid.New(), uuid.New()
	conv := testConversation(uuid.New(), me, them)
	store := &fakeStore{
		betweenFn: staticBetween(nil),
		sendFn: func(uuid.UUID, string) (model.Message, error) {
			return model.Message{}, errors.New("network is down")
		},
	}
	session := NewConversationSession(store, newFakeFeed(), nil, me)
	defer session.Close()
	require.NoError(t, session.Open(context.Background(), conv))

	err := session.Send(context.Background(), "hi")
	require.Error(t, err)

	// The provisional message is gone; the text is surfaced via the error for
	// the caller to retry with.
	assert.Empty(t, session.Entries())
}

func TestProvisionalReconciledByContentEquality(t *testing.T) {
	me, them := uuid.New(), uuid.New()
	conv := testConversation(uuid.New(), me, them)
	store := &fakeStore{betweenFn: staticBetween(nil)}
	feed := newFakeFeed()
	session := NewConversationSession(store, feed, nil, me)
	defer session.Close()
	require.NoError(t, session.Open(context.Background(), conv))

	require.NoError(t, session.Send(context.Background(), "hi"))
	entries := session.Entries()
	require.Len(t, entries, 1)
	require.True(t, entries[0].Provisional)

	authoritative := confirmed(uuid.New(), me, them, conv.ID, "hi", time.Now())
	feed.Emit(realtime.MessageEvent{Kind: realtime.EventMessageInsert, Message: authoritative})

	entries = session.Entries()
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Provisional)
	assert.Equal(t, authoritative.ID, entries[0].Message.ID)
}

func TestDuplicateInsertDeliveryIsIdempotent(t *testing.T) {
	me, them := uuid.New(), uuid.New()
	conv := testConversation(uuid.New(), me, them)
	store := &fakeStore{betweenFn: staticBetween(nil)}
	feed := newFakeFeed()
	session := NewConversationSession(store, feed, nil, me)
	session.MarkReadDelay = time.Hour
	defer session.Close()
	require.NoError(t, session.Open(context.Background(), conv))

	msg := confirmed(uuid.New(), them, me, conv.ID, "hello", time.Now())
	ev := realtime.MessageEvent{Kind: realtime.EventMessageInsert, Message: msg}
	feed.Emit(ev)
	feed.Emit(ev)

	entries := session.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, msg.ID, entries[0].Message.ID)
}

func TestLateLoadForAbandonedConversationDiscarded(t *testing.T) {
	me, themY, themX := uuid.New(), uuid.New(), uuid.New()
	convY := testConversation(uuid.New(), me, themY)
	convX := testConversation(uuid.New(), me, themX)
	now := time.Now()

	yRows := []model.Message{confirmed(uuid.New(), themY, me, convY.ID, "from Y", now)}
	xRows := []model.Message{confirmed(uuid.New(), themX, me, convX.ID, "from X", now)}

	release := make(chan struct{})
	started := make(chan struct{})
	store := &fakeStore{betweenFn: func(call int, a, b uuid.UUID) ([]model.Message, error) {
		if call == 1 {
			close(started)
			<-release
			return yRows, nil
		}
		return xRows, nil
	}}

	session := NewConversationSession(store, newFakeFeed(), nil, me)
	defer session.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = session.Open(context.Background(), convY)
	}()
	<-started

	// Switch to X while Y's load hangs.
	require.NoError(t, session.Open(context.Background(), convX))
	close(release)
	<-done

	// Y's late result must have been discarded.
	assert.Equal(t, StateReady, session.State())
	assert.Equal(t, convX.ID, session.Conversation().ID)
	entries := session.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "from X", entries[0].Message.Body)
}

func TestIncomingMessageMarkedReadAfterDelayAndNotified(t *testing.T) {
	me, them := uuid.New(), uuid.New()
	conv := testConversation(uuid.New(), me, them)
	store := &fakeStore{betweenFn: staticBetween(nil)}
	feed := newFakeFeed()

	var toasts []Toast
	presenter := &Presenter{OnToast: func(toast Toast) { toasts = append(toasts, toast) }}

	session := NewConversationSession(store, feed, presenter, me)
	session.MarkReadDelay = 10 * time.Millisecond
	defer session.Close()
	require.NoError(t, session.Open(context.Background(), conv))

	msg := confirmed(uuid.New(), them, me, conv.ID, "walk at 9?", time.Now())
	feed.Emit(realtime.MessageEvent{Kind: realtime.EventMessageInsert, Message: msg})

	require.Len(t, toasts, 1)
	assert.Equal(t, "Dana Walker", toasts[0].SenderName)

	require.Eventually(t, func() bool {
		ids := store.markedMessageIDs()
		return len(ids) == 1 && ids[0] == msg.ID
	}, time.Second, 5*time.Millisecond)
}

func TestOutgoingEchoDoesNotNotifyOrMarkRead(t *testing.T) {
	me, them := uuid.New(), uuid.New()
	conv := testConversation(uuid.New(), me, them)
	store := &fakeStore{betweenFn: staticBetween(nil)}
	feed := newFakeFeed()

	var toasts []Toast
	presenter := &Presenter{OnToast: func(toast Toast) { toasts = append(toasts, toast) }}

	session := NewConversationSession(store, feed, presenter, me)
	session.MarkReadDelay = 5 * time.Millisecond
	defer session.Close()
	require.NoError(t, session.Open(context.Background(), conv))

	// The viewer's own send echoed back by the feed.
	feed.Emit(realtime.MessageEvent{
		Kind:    realtime.EventMessageInsert,
		Message: confirmed(uuid.New(), me, them, conv.ID, "on my way", time.Now()),
	})

	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, toasts)
	assert.Empty(t, store.markedMessageIDs())
	assert.Len(t, session.Entries(), 1)
}

func TestEventsForOtherPairsIgnored(t *testing.T) {
	me, them := uuid.New(), uuid.New()
	conv := testConversation(uuid.New(), me, them)
	store := &fakeStore{betweenFn: staticBetween(nil)}
	feed := newFakeFeed()
	session := NewConversationSession(store, feed, nil, me)
	defer session.Close()
	require.NoError(t, session.Open(context.Background(), conv))

	feed.Emit(realtime.MessageEvent{
		Kind:    realtime.EventMessageInsert,
		Message: confirmed(uuid.New(), uuid.New(), me, uuid.New(), "different pair", time.Now()),
	})
	assert.Empty(t, session.Entries())
}

func TestLoadErrorThenRetry(t *testing.T) {
	me, them := uuid.New(), uuid.New()
	conv := testConversation(uuid.New(), me, them)
	store := &fakeStore{betweenFn: func(call int, a, b uuid.UUID) ([]model.Message, error) {
		if call == 1 {
			return nil, errors.New("store unavailable")
		}
		return nil, nil
	}}
	session := NewConversationSession(store, newFakeFeed(), nil, me)
	defer session.Close()

	require.Error(t, session.Open(context.Background(), conv))
	assert.Equal(t, StateError, session.State())
	assert.Error(t, session.Err())

	require.NoError(t, session.Retry(context.Background()))
	assert.Equal(t, StateReady, session.State())
}

func TestSendValidation(t *testing.T) {
	me := uuid.New()
	store := &fakeStore{betweenFn: staticBetween(nil)}
	session := NewConversationSession(store, newFakeFeed(), nil, me)
	defer session.Close()

	assert.ErrorIs(t, session.Send(context.Background(), "hello"), ErrNoOpenConversation)

	conv := testConversation(uuid.New(), me, uuid.New())
	require.NoError(t, session.Open(context.Background(), conv))
	assert.ErrorIs(t, session.Send(context.Background(), "   \n\t"), ErrEmptyMessage)
}

func TestCloseStopsDelivery(t *testing.T) {
	me, them := uuid.New(), uuid.New()
	conv := testConversation(uuid.New(), me, them)
	store := &fakeStore{betweenFn: staticBetween(nil)}
	feed := newFakeFeed()
	session := NewConversationSession(store, feed, nil, me)
	session.MarkReadDelay = 5 * time.Millisecond
	require.NoError(t, session.Open(context.Background(), conv))

	session.Close()
	require.Equal(t, 0, feed.active(), "close must unsubscribe synchronously")

	feed.Emit(realtime.MessageEvent{
		Kind:    realtime.EventMessageInsert,
		Message: confirmed(uuid.New(), them, me, conv.ID, "too late", time.Now()),
	})
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, session.Entries())
	assert.Empty(t, store.markedMessageIDs())
	assert.ErrorIs(t, session.Send(context.Background(), "hi"), ErrSessionClosed)
}

func TestTimelineNeverHoldsDuplicateIDs(t *testing.T) {
	me, them := uuid.New(), uuid.New()
	conv := testConversation(uuid.New(), me, them)
	store := &fakeStore{betweenFn: staticBetween(nil)}
	feed := newFakeFeed()
	session := NewConversationSession(store, feed, nil, me)
	session.MarkReadDelay = time.Hour
	defer session.Close()
	require.NoError(t, session.Open(context.Background(), conv))

	// Interleave sends and duplicate echoes.
	require.NoError(t, session.Send(context.Background(), "one"))
	require.NoError(t, session.Send(context.Background(), "two"))
	now := time.Now()
	echo1 := confirmed(uuid.New(), me, them, conv.ID, "one", now)
	echo2 := confirmed(uuid.New(), me, them, conv.ID, "two", now.Add(time.Millisecond))
	for _, ev := range []model.Message{echo1, echo2, echo1} {
		feed.Emit(realtime.MessageEvent{Kind: realtime.EventMessageInsert, Message: ev})
	}

	entries := session.Entries()
	require.Len(t, entries, 2)
	seen := map[uuid.UUID]bool{}
	for _, e := range entries {
		assert.False(t, e.Provisional)
		assert.False(t, seen[e.Message.ID])
		seen[e.Message.ID] = true
	}
}
