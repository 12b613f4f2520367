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

var (
	viewer = uuid.New()
	sender = uuid.New()
	convX  = uuid.New()
	convY  = uuid.New()
)

func threeUnread() []model.Message {
	now := time.Now()
	return []model.Message{
		unreadMsg(sender, viewer, convX, "walk tomorrow?", now.Add(-3*time.Minute)),
		unreadMsg(sender, viewer, convX, "around 9?", now.Add(-2*time.Minute)),
		unreadMsg(sender, viewer, convY, "thanks again!", now.Add(-time.Minute)),
	}
}

func staticUnread(msgs []model.Message) func(int, uuid.UUID) ([]model.Message, error) {
	return func(int, uuid.UUID) ([]model.Message, error) { return msgs, nil }
}

func TestReloadGroupsByConversation(t *testing.T) {
	store := &fakeStore{unreadFn: staticUnread(threeUnread())}
	tracker := NewUnreadTracker(store, newFakeFeed())

	require.NoError(t, tracker.Initialize(context.Background(), viewer))

	counts := tracker.Counts()
	assert.Equal(t, 3, counts.Total)
	assert.Equal(t, map[uuid.UUID]int{convX: 2, convY: 1}, counts.ByConversation)
	assert.False(t, counts.LastRefresh.IsZero())

	// Total always equals the sum of per-conversation counts once settled.
	sum := 0
	for _, n := range counts.ByConversation {
		sum += n
	}
	assert.Equal(t, counts.Total, sum)
}

func TestReadUpdateDecrementsOptimisticallyThenReloadConfirms(t *testing.T) {
	msgs := threeUnread()
	remaining := []model.Message{msgs[1], msgs[2]}

	store := &fakeStore{unreadFn: func(call int, _ uuid.UUID) ([]model.Message, error) {
		if call == 1 {
			return msgs, nil
		}
		return remaining, nil
	}}
	feed := newFakeFeed()
	tracker := NewUnreadTracker(store, feed)
	tracker.DebounceWindow = 10 * time.Millisecond

	require.NoError(t, tracker.Initialize(context.Background(), viewer))

	read := msgs[0]
	read.IsRead = true
	feed.Emit(realtime.MessageEvent{Kind: realtime.EventMessageUpdate, Message: read, WasRead: false})

	counts := tracker.Counts()
	assert.Equal(t, 2, counts.Total)
	assert.Equal(t, map[uuid.UUID]int{convX: 1, convY: 1}, counts.ByConversation)

	// The debounced reload lands on the same values: no drift.
	require.Eventually(t, func() bool {
		unread, _ := store.counts()
		return unread >= 2
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		c := tracker.Counts()
		return c.Total == 2 && c.ByConversation[convX] == 1 && c.ByConversation[convY] == 1
	}, time.Second, 5*time.Millisecond)
}

func TestInsertBurstCoalescesIntoOneReload(t *testing.T) {
	store := &fakeStore{unreadFn: staticUnread(nil)}
	feed := newFakeFeed()
	tracker := NewUnreadTracker(store, feed)
	tracker.DebounceWindow = 20 * time.Millisecond

	require.NoError(t, tracker.Initialize(context.Background(), viewer))

	now := time.Now()
	for i := 0; i < 5; i++ {
		feed.Emit(realtime.MessageEvent{
			Kind:    realtime.EventMessageInsert,
			Message: unreadMsg(sender, viewer, convX, "hi", now),
		})
	}

	// Optimistic bumps apply immediately.
	assert.Equal(t, 5, tracker.Counts().Total)

	// One corrective reload for the whole burst (plus the initial one).
	time.Sleep(100 * time.Millisecond)
	unread, _ := store.counts()
	assert.Equal(t, 2, unread)
}

func TestStaleReloadDiscarded(t *testing.T) {
	stale := threeUnread()
	release := make(chan struct{})
	started := make(chan struct{})

	store := &fakeStore{unreadFn: func(call int, _ uuid.UUID) ([]model.Message, error) {
		switch call {
		case 1:
			return nil, nil
		case 2:
			close(started)
			<-release
			return stale, nil // slow response from the first-initiated reload
		default:
			return stale[:1], nil
		}
	}}
	tracker := NewUnreadTracker(store, newFakeFeed())
	require.NoError(t, tracker.Initialize(context.Background(), viewer))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = tracker.Reload(context.Background())
	}()
	<-started

	// A newer reload is initiated while the old one hangs; the newer snapshot
	// must win even though the old one resolves last.
	require.NoError(t, tracker.Reload(context.Background()))
	assert.Equal(t, 1, tracker.Counts().Total)

	close(release)
	<-done
	assert.Equal(t, 1, tracker.Counts().Total)
}

func TestMarkConversationReadUsesBothPredicates(t *testing.T) {
	store := &fakeStore{unreadFn: staticUnread(nil)}
	tracker := NewUnreadTracker(store, newFakeFeed())
	require.NoError(t, tracker.Initialize(context.Background(), viewer))

	require.NoError(t, tracker.MarkConversationRead(context.Background(), convX, viewer, sender))

	assert.Equal(t, []uuid.UUID{convX}, store.markedConv)
	// The "other participant" is resolved relative to the viewer.
	assert.Equal(t, []uuid.UUID{sender}, store.markedSender)
}

func TestMarkConversationReadIdempotentOnEmptyConversation(t *testing.T) {
	store := &fakeStore{unreadFn: staticUnread(nil)}
	tracker := NewUnreadTracker(store, newFakeFeed())
	require.NoError(t, tracker.Initialize(context.Background(), viewer))

	before := tracker.Counts()
	require.NoError(t, tracker.MarkConversationRead(context.Background(), convX, viewer, sender))
	require.NoError(t, tracker.MarkConversationRead(context.Background(), convX, viewer, sender))
	after := tracker.Counts()

	assert.Equal(t, before.Total, after.Total)
	assert.Equal(t, before.ByConversation, after.ByConversation)
}

func TestMarkConversationReadSurvivesPartialFailure(t *testing.T) {
	store := &fakeStore{
		unreadFn:    staticUnread(nil),
		markConvErr: errors.New("legacy rows refused the predicate"),
	}
	tracker := NewUnreadTracker(store, newFakeFeed())
	require.NoError(t, tracker.Initialize(context.Background(), viewer))

	// One failing mutation is logged, not fatal; the reload still settles.
	require.NoError(t, tracker.MarkConversationRead(context.Background(), convX, viewer, sender))
	assert.Len(t, store.markedSender, 1)
}

func TestMarkAllReadResetsWithoutReload(t *testing.T) {
	store := &fakeStore{unreadFn: staticUnread(threeUnread())}
	tracker := NewUnreadTracker(store, newFakeFeed())
	require.NoError(t, tracker.Initialize(context.Background(), viewer))
	require.Equal(t, 3, tracker.Counts().Total)

	unreadBefore, _ := store.counts()
	require.NoError(t, tracker.MarkAllRead(context.Background()))

	counts := tracker.Counts()
	assert.Equal(t, 0, counts.Total)
	assert.Empty(t, counts.ByConversation)

	unreadAfter, _ := store.counts()
	assert.Equal(t, unreadBefore, unreadAfter, "unconditional predicate needs no corrective reload")
	assert.Equal(t, 1, store.markedAll)
}

func TestFailedReloadKeepsLastGoodAggregate(t *testing.T) {
	store := &fakeStore{unreadFn: func(call int, _ uuid.UUID) ([]model.Message, error) {
		if call == 1 {
			return threeUnread(), nil
		}
		return nil, errors.New("store unavailable")
	}}
	tracker := NewUnreadTracker(store, newFakeFeed())
	require.NoError(t, tracker.Initialize(context.Background(), viewer))

	require.Error(t, tracker.Reload(context.Background()))

	counts := tracker.Counts()
	assert.Equal(t, 3, counts.Total)
	assert.Equal(t, map[uuid.UUID]int{convX: 2, convY: 1}, counts.ByConversation)
}

func TestSignOutResetsAndUnsubscribes(t *testing.T) {
	store := &fakeStore{unreadFn: staticUnread(threeUnread())}
	feed := newFakeFeed()
	tracker := NewUnreadTracker(store, feed)
	require.NoError(t, tracker.Initialize(context.Background(), viewer))
	require.Equal(t, 1, feed.active())

	require.NoError(t, tracker.Initialize(context.Background(), uuid.Nil))

	assert.Equal(t, 0, feed.active())
	assert.Equal(t, 0, tracker.Counts().Total)

	// Events after sign-out change nothing.
	feed.Emit(realtime.MessageEvent{
		Kind:    realtime.EventMessageInsert,
		Message: unreadMsg(sender, viewer, convX, "hello?", time.Now()),
	})
	assert.Equal(t, 0, tracker.Counts().Total)
}

func TestUpdateEventClampsAtZero(t *testing.T) {
	store := &fakeStore{unreadFn: staticUnread(nil)}
	feed := newFakeFeed()
	tracker := NewUnreadTracker(store, feed)
	tracker.DebounceWindow = time.Hour // keep the corrective reload out of the way
	require.NoError(t, tracker.Initialize(context.Background(), viewer))

	read := unreadMsg(sender, viewer, convX, "old", time.Now())
	read.IsRead = true
	feed.Emit(realtime.MessageEvent{Kind: realtime.EventMessageUpdate, Message: read, WasRead: false})
	feed.Emit(realtime.MessageEvent{Kind: realtime.EventMessageUpdate, Message: read, WasRead: false})

	counts := tracker.Counts()
	assert.Equal(t, 0, counts.Total)
	assert.Empty(t, counts.ByConversation)
}

func TestEventsForOtherRecipientsIgnored(t *testing.T) {
	store := &fakeStore{unreadFn: staticUnread(nil)}
	feed := newFakeFeed()
	tracker := NewUnreadTracker(store, feed)
	tracker.DebounceWindow = time.Hour
	require.NoError(t, tracker.Initialize(context.Background(), viewer))

	feed.Emit(realtime.MessageEvent{
		Kind:    realtime.EventMessageInsert,
		Message: unreadMsg(sender, uuid.New(), convX, "not for you", time.Now()),
	})
	assert.Equal(t, 0, tracker.Counts().Total)
}
