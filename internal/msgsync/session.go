package msgsync

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"skippy.dog/server/internal/model"
	"skippy.dog/server/internal/realtime"
)

const defaultMarkReadDelay = time.Second

// SessionState is the lifecycle of a ConversationSession:
// Idle → Loading → Ready, with Ready → Loading on conversation switch,
// Loading → Error on fetch failure, and Error → Loading on retry.
type SessionState int

const (
	StateIdle SessionState = iota
	StateLoading
	StateReady
	StateError
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Entry is one timeline item: either a confirmed message from the store or a
// provisional local send awaiting acknowledgment. Provisional entries carry a
// locally generated id with no relationship to the authoritative one.
type Entry struct {
	Message     model.Message
	Provisional bool
}

// ConversationSession owns the open conversation's ordered, de-duplicated,
// live-updating timeline. Create one per selected conversation view; switching
// conversations reuses the session via Open, which discards any in-flight load
// for the previous conversation.
type ConversationSession struct {
	store     Store
	feed      Feed
	presenter *Presenter
	viewerID  uuid.UUID

	// MarkReadDelay postpones the read-receipt mutation for an incoming
	// message so it is not flagged read before the user plausibly saw it.
	// Set before Open.
	MarkReadDelay time.Duration

	// OnChange, if set before Open, is invoked after every visible change.
	OnChange func()

	mu          sync.Mutex
	state       SessionState
	conv        Conversation
	entries     []Entry
	loadSeq     uint64
	unsubscribe func()
	timers      []*time.Timer
	lastErr     error
	closed      bool
}

func NewConversationSession(store Store, feed Feed, presenter *Presenter, viewerID uuid.UUID) *ConversationSession {
	return &ConversationSession{
		store:         store,
		feed:          feed,
		presenter:     presenter,
		viewerID:      viewerID,
		MarkReadDelay: defaultMarkReadDelay,
		state:         StateIdle,
	}
}

// Open switches the session to the given conversation and loads its timeline.
// Any in-flight load for a previous conversation is discarded when it
// resolves. Opening the conversation that is already Ready is a no-op.
func (s *ConversationSession) Open(ctx context.Context, conv Conversation) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.state == StateReady && s.conv.ID == conv.ID {
		s.mu.Unlock()
		return nil
	}
	err := s.beginLoadLocked(conv)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.emitChange()
	return s.load(ctx)
}

// Retry re-runs the load after a failure.
func (s *ConversationSession) Retry(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.state != StateError {
		s.mu.Unlock()
		return nil
	}
	err := s.beginLoadLocked(s.conv)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.emitChange()
	return s.load(ctx)
}

// beginLoadLocked cancels the previous load and subscription, installs a fresh
// subscription for the target conversation and transitions to Loading. Caller
// holds s.mu.
func (s *ConversationSession) beginLoadLocked(conv Conversation) error {
	s.loadSeq++
	seq := s.loadSeq

	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.stopTimersLocked()

	s.conv = conv
	s.entries = nil
	s.lastErr = nil
	s.state = StateLoading

	unsub, err := s.feed.Subscribe(func(ev realtime.MessageEvent) {
		s.handleEvent(seq, ev)
	})
	if err != nil {
		s.state = StateError
		s.lastErr = err
		return err
	}
	s.unsubscribe = unsub
	return nil
}

func (s *ConversationSession) load(ctx context.Context) error {
	s.mu.Lock()
	conv := s.conv
	seq := s.loadSeq
	s.mu.Unlock()

	msgs, err := s.store.MessagesBetween(ctx, conv.Participant1ID, conv.Participant2ID)

	s.mu.Lock()
	if seq != s.loadSeq || s.closed {
		// The conversation was switched (or the session closed) while this
		// load was in flight; its result belongs to an abandoned view.
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		s.state = StateError
		s.lastErr = err
		s.mu.Unlock()
		s.emitChange()
		return fmt.Errorf("failed to load messages: %w", err)
	}

	entries := make([]Entry, 0, len(msgs))
	for _, m := range msgs {
		entries = append(entries, Entry{Message: m})
	}
	sortEntries(entries)
	s.entries = entries
	s.state = StateReady
	s.mu.Unlock()

	s.emitChange()
	return nil
}

// Send appends a provisional message to the timeline and issues the send. On
// failure the provisional entry is removed and the error returned, so the
// caller can let the user retry with the same text. On success nothing else
// happens locally: the realtime insert (or a reload) delivers the confirmed
// row, which supersedes the provisional one by content equality.
func (s *ConversationSession) Send(ctx context.Context, body string) error {
	body = strings.TrimSpace(body)
	if body == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.state != StateReady {
		s.mu.Unlock()
		return ErrNoOpenConversation
	}
	conv := s.conv
	seq := s.loadSeq
	recipient := conv.Other(s.viewerID)

	provisional := model.Message{
		ID:             uuid.New(),
		ConversationID: &conv.ID,
		SenderID:       s.viewerID,
		RecipientID:    recipient,
		Body:           body,
		CreatedAt:      time.Now(),
	}
	s.entries = append(s.entries, Entry{Message: provisional, Provisional: true})
	s.mu.Unlock()
	s.emitChange()

	if _, err := s.store.SendMessage(ctx, recipient, conv.AvailabilityID, body); err != nil {
		s.mu.Lock()
		if seq == s.loadSeq {
			s.entries = removeEntry(s.entries, provisional.ID)
		}
		s.mu.Unlock()
		s.emitChange()
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// handleEvent merges a realtime insert into the open timeline. seq pins the
// event to the subscription generation it belongs to; events racing a
// conversation switch are dropped.
func (s *ConversationSession) handleEvent(seq uint64, ev realtime.MessageEvent) {
	if ev.Kind != realtime.EventMessageInsert {
		return
	}

	s.mu.Lock()
	if s.closed || seq != s.loadSeq || !s.conv.matchesPair(ev.Message) {
		s.mu.Unlock()
		return
	}

	s.entries = mergeConfirmed(s.entries, ev.Message)

	incoming := ev.Message.RecipientID == s.viewerID && ev.Message.SenderID != s.viewerID
	conv := s.conv
	if incoming {
		s.scheduleMarkReadLocked(seq, ev.Message)
	}
	s.mu.Unlock()

	s.emitChange()
	if incoming && s.presenter != nil {
		s.presenter.Notify(ev.Message, conv.DisplayName, conv.PhotoURL)
	}
}

// scheduleMarkReadLocked arms the delayed read-receipt for one incoming
// message. The callback re-checks the generation so it never fires against a
// torn-down or switched session. Caller holds s.mu.
func (s *ConversationSession) scheduleMarkReadLocked(seq uint64, m model.Message) {
	timer := time.AfterFunc(s.MarkReadDelay, func() {
		s.mu.Lock()
		stale := s.closed || seq != s.loadSeq
		s.mu.Unlock()
		if stale {
			return
		}
		if err := s.store.MarkMessageRead(context.Background(), m.ID); err != nil {
			log.Printf("[msgsync] failed to mark message %s read: %v", m.ID, err)
		}
	})
	s.timers = append(s.timers, timer)
}

func (s *ConversationSession) stopTimersLocked() {
	for _, timer := range s.timers {
		timer.Stop()
	}
	s.timers = nil
}

// Close tears the session down. The feed subscription is removed
// synchronously, so no event reaches the timeline afterwards.
func (s *ConversationSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.loadSeq++
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.stopTimersLocked()
	s.state = StateIdle
	s.entries = nil
	s.mu.Unlock()
}

// State returns the current lifecycle state.
func (s *ConversationSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the last load error, if the session is in StateError.
func (s *ConversationSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Conversation returns the currently open conversation.
func (s *ConversationSession) Conversation() Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv
}

// Entries returns a copy of the timeline.
func (s *ConversationSession) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *ConversationSession) emitChange() {
	if s.OnChange != nil {
		s.OnChange()
	}
}

// mergeConfirmed folds a confirmed message into the timeline: provisional
// entries matching it by sender, recipient and body are discarded (the
// provisional id is locally generated, so content equality is the only link),
// then the message is inserted unless its authoritative id is already present.
// Pure function; safe against duplicate delivery of the same event.
func mergeConfirmed(entries []Entry, m model.Message) []Entry {
	out := make([]Entry, 0, len(entries)+1)
	for _, e := range entries {
		if e.Provisional &&
			e.Message.SenderID == m.SenderID &&
			e.Message.RecipientID == m.RecipientID &&
			e.Message.Body == m.Body {
			continue
		}
		if !e.Provisional && e.Message.ID == m.ID {
			// Duplicate delivery; the timeline already has this row. The
			// provisional sweep above has already run for the first copy.
			return entries
		}
		out = append(out, e)
	}
	out = append(out, Entry{Message: m})
	sortEntries(out)
	return out
}

func removeEntry(entries []Entry, id uuid.UUID) []Entry {
	out := entries[:0]
	for _, e := range entries {
		if e.Message.ID != id {
			out = append(out, e)
		}
	}
	return out
}

func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Message.CreatedAt.Before(entries[j].Message.CreatedAt)
	})
}
