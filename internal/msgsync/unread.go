package msgsync

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"skippy.dog/server/internal/model"
	"skippy.dog/server/internal/realtime"
)

const defaultDebounceWindow = 300 * time.Millisecond

// UnreadCounts is a settled snapshot of the viewer's unread aggregate.
type UnreadCounts struct {
	Total          int
	ByConversation map[uuid.UUID]int
	LastRefresh    time.Time
}

// UnreadTracker owns the viewer's unread-message aggregate. It is initialized
// once per signed-in identity and kept alive for the session. Realtime events
// adjust the counts optimistically; a debounced authoritative reload corrects
// any drift. Reloads replace the aggregate wholesale and never merge.
type UnreadTracker struct {
	store Store
	feed  Feed

	// DebounceWindow coalesces bursts of realtime events into a single
	// corrective reload. Set before Initialize.
	DebounceWindow time.Duration

	// OnChange, if set before Initialize, is invoked with a snapshot after
	// every visible change to the aggregate.
	OnChange func(UnreadCounts)

	// Presenter, if set, is asked to surface a toast for inserts addressed to
	// the viewer. Duplicate observations of the same event are suppressed by
	// the presenter itself.
	Presenter   *Presenter
	ResolveName func(senderID uuid.UUID) string

	mu          sync.Mutex
	viewerID    uuid.UUID
	active      bool
	total       int
	byConv      map[uuid.UUID]int
	lastRefresh time.Time
	reloadSeq   uint64
	debounce    *time.Timer
	unsubscribe func()
}

func NewUnreadTracker(store Store, feed Feed) *UnreadTracker {
	return &UnreadTracker{
		store:          store,
		feed:           feed,
		DebounceWindow: defaultDebounceWindow,
		byConv:         map[uuid.UUID]int{},
	}
}

// Initialize starts tracking for the given viewer and performs a full reload.
// A Nil viewer id means signed out: the aggregate resets to empty and the feed
// subscription stops. Re-initializing with the same viewer only triggers a
// fresh reload.
func (t *UnreadTracker) Initialize(ctx context.Context, viewerID uuid.UUID) error {
	t.mu.Lock()

	if viewerID == uuid.Nil {
		t.resetLocked()
		t.mu.Unlock()
		t.notifyChange()
		return nil
	}

	if t.active && t.viewerID == viewerID {
		t.mu.Unlock()
		return t.Reload(ctx)
	}

	t.resetLocked()
	t.viewerID = viewerID
	t.active = true

	unsub, err := t.feed.Subscribe(t.handleEvent)
	if err != nil {
		t.resetLocked()
		t.mu.Unlock()
		return err
	}
	t.unsubscribe = unsub
	t.mu.Unlock()

	return t.Reload(ctx)
}

// Close stops the tracker and empties the aggregate.
func (t *UnreadTracker) Close() {
	t.mu.Lock()
	t.resetLocked()
	t.mu.Unlock()
}

// resetLocked clears all state and tears down the subscription and any pending
// debounce. Caller holds t.mu.
func (t *UnreadTracker) resetLocked() {
	if t.unsubscribe != nil {
		t.unsubscribe()
		t.unsubscribe = nil
	}
	if t.debounce != nil {
		t.debounce.Stop()
		t.debounce = nil
	}
	t.viewerID = uuid.Nil
	t.active = false
	t.total = 0
	t.byConv = map[uuid.UUID]int{}
	t.lastRefresh = time.Time{}
	t.reloadSeq++ // orphan any in-flight reload
}

// Reload fetches the viewer's unread messages and replaces the aggregate.
// Safe to call concurrently with itself: the most recently initiated reload
// wins, so a slow stale response never clobbers a newer one. A failed reload
// leaves the last good aggregate untouched.
func (t *UnreadTracker) Reload(ctx context.Context) error {
	t.mu.Lock()
	if !t.active {
		t.mu.Unlock()
		return ErrNotInitialized
	}
	viewer := t.viewerID
	t.reloadSeq++
	seq := t.reloadSeq
	t.mu.Unlock()

	msgs, err := t.store.UnreadMessages(ctx, viewer)

	t.mu.Lock()
	if seq != t.reloadSeq || !t.active || t.viewerID != viewer {
		// A newer reload was initiated (or the viewer changed) while this one
		// was in flight; its snapshot is stale.
		t.mu.Unlock()
		return nil
	}
	if err != nil {
		t.mu.Unlock()
		log.Printf("[msgsync] unread reload failed: %v", err)
		return err
	}

	byConv := map[uuid.UUID]int{}
	for _, m := range msgs {
		if m.ConversationID != nil {
			byConv[*m.ConversationID]++
		}
	}
	t.total = len(msgs)
	t.byConv = byConv
	t.lastRefresh = time.Now()
	t.mu.Unlock()

	t.notifyChange()
	return nil
}

// MarkConversationRead issues both read-state mutations: by conversation id
// and by the resolved other participant. Either predicate alone misses legacy
// rows without a conversation id, so both are always attempted; a single
// failure is logged, not fatal. A reload afterwards settles the aggregate.
func (t *UnreadTracker) MarkConversationRead(ctx context.Context, conversationID, participant1, participant2 uuid.UUID) error {
	t.mu.Lock()
	if !t.active {
		t.mu.Unlock()
		return ErrNotInitialized
	}
	viewer := t.viewerID
	t.mu.Unlock()

	other := participant1
	if other == viewer {
		other = participant2
	}

	if err := t.store.MarkConversationRead(ctx, conversationID, viewer); err != nil {
		log.Printf("[msgsync] mark-read by conversation failed: %v", err)
	}
	if err := t.store.MarkSenderRead(ctx, other, viewer); err != nil {
		log.Printf("[msgsync] mark-read by sender failed: %v", err)
	}

	return t.Reload(ctx)
}

// MarkAllRead marks every unread message for the viewer. The predicate is
// unconditional, so on success the aggregate is reset directly with no reload.
func (t *UnreadTracker) MarkAllRead(ctx context.Context) error {
	t.mu.Lock()
	if !t.active {
		t.mu.Unlock()
		return ErrNotInitialized
	}
	viewer := t.viewerID
	t.mu.Unlock()

	if err := t.store.MarkAllRead(ctx, viewer); err != nil {
		log.Printf("[msgsync] mark-all-read failed: %v", err)
		return err
	}

	t.mu.Lock()
	if t.active && t.viewerID == viewer {
		t.total = 0
		t.byConv = map[uuid.UUID]int{}
		t.lastRefresh = time.Now()
	}
	t.mu.Unlock()

	t.notifyChange()
	return nil
}

// Counts returns a snapshot of the aggregate.
func (t *UnreadTracker) Counts() UnreadCounts {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *UnreadTracker) snapshotLocked() UnreadCounts {
	byConv := make(map[uuid.UUID]int, len(t.byConv))
	for k, v := range t.byConv {
		byConv[k] = v
	}
	return UnreadCounts{Total: t.total, ByConversation: byConv, LastRefresh: t.lastRefresh}
}

func (t *UnreadTracker) notifyChange() {
	if t.OnChange == nil {
		return
	}
	t.mu.Lock()
	snap := t.snapshotLocked()
	t.mu.Unlock()
	t.OnChange(snap)
}

// handleEvent applies optimistic math for a single realtime event and
// schedules a debounced corrective reload. Events not addressed to the viewer
// or not matching the expected shape are ignored.
func (t *UnreadTracker) handleEvent(ev realtime.MessageEvent) {
	t.mu.Lock()
	if !t.active || ev.Message.RecipientID != t.viewerID {
		t.mu.Unlock()
		return
	}

	changed := false
	switch ev.Kind {
	case realtime.EventMessageInsert:
		if !ev.Message.IsRead {
			t.total++
			if cid := ev.Message.ConversationID; cid != nil {
				t.byConv[*cid]++
			}
			t.scheduleReloadLocked()
			changed = true
		}
	case realtime.EventMessageUpdate:
		// Only a false→true read transition shrinks the aggregate.
		if ev.Message.IsRead && !ev.WasRead {
			if cid := ev.Message.ConversationID; cid != nil {
				if n := t.byConv[*cid]; n > 1 {
					t.byConv[*cid] = n - 1
				} else if n == 1 {
					delete(t.byConv, *cid)
				}
			}
			if t.total > 0 {
				t.total--
			}
			t.scheduleReloadLocked()
			changed = true
		}
	}
	t.mu.Unlock()

	if changed {
		t.notifyChange()
	}

	if ev.Kind == realtime.EventMessageInsert && !ev.Message.IsRead {
		t.present(ev.Message)
	}
}

func (t *UnreadTracker) present(m model.Message) {
	if t.Presenter == nil {
		return
	}
	name := ""
	if t.ResolveName != nil {
		name = t.ResolveName(m.SenderID)
	}
	t.Presenter.Notify(m, name, "")
}

// scheduleReloadLocked resets the debounce timer so rapid event bursts
// coalesce into one reload. Caller holds t.mu.
func (t *UnreadTracker) scheduleReloadLocked() {
	if t.debounce != nil {
		t.debounce.Stop()
	}
	t.debounce = time.AfterFunc(t.DebounceWindow, func() {
		t.mu.Lock()
		active := t.active
		t.mu.Unlock()
		if !active {
			return
		}
		_ = t.Reload(context.Background())
	})
}
