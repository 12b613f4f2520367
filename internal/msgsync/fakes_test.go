package msgsync

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"skippy.dog/server/internal/model"
	"skippy.dog/server/internal/realtime"
)

// fakeStore records every mutation and lets tests swap in per-call behavior
// for the two query paths.
type fakeStore struct {
	mu sync.Mutex

	unreadFn  func(call int, recipientID uuid.UUID) ([]model.Message, error)
	betweenFn func(call int, a, b uuid.UUID) ([]model.Message, error)

	unreadCalls  int
	betweenCalls int

	sendFn        func(recipientID uuid.UUID, body string) (model.Message, error)
	sentBodies    []string
	markedConv    []uuid.UUID
	markedSender  []uuid.UUID
	markedMessage []uuid.UUID
	markedAll     int

	markConvErr   error
	markSenderErr error
}

func (f *fakeStore) UnreadMessages(ctx context.Context, recipientID uuid.UUID) ([]model.Message, error) {
	f.mu.Lock()
	f.unreadCalls++
	call := f.unreadCalls
	fn := f.unreadFn
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(call, recipientID)
}

func (f *fakeStore) MessagesBetween(ctx context.Context, a, b uuid.UUID) ([]model.Message, error) {
	f.mu.Lock()
	f.betweenCalls++
	call := f.betweenCalls
	fn := f.betweenFn
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(call, a, b)
}

func (f *fakeStore) MarkConversationRead(ctx context.Context, conversationID, recipientID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markedConv = append(f.markedConv, conversationID)
	return f.markConvErr
}

func (f *fakeStore) MarkSenderRead(ctx context.Context, senderID, recipientID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markedSender = append(f.markedSender, senderID)
	return f.markSenderErr
}

func (f *fakeStore) MarkMessageRead(ctx context.Context, messageID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markedMessage = append(f.markedMessage, messageID)
	return nil
}

func (f *fakeStore) MarkAllRead(ctx context.Context, recipientID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markedAll++
	return nil
}

func (f *fakeStore) SendMessage(ctx context.Context, recipientID uuid.UUID, availabilityID *uuid.UUID, body string) (model.Message, error) {
	f.mu.Lock()
	f.sentBodies = append(f.sentBodies, body)
	fn := f.sendFn
	f.mu.Unlock()
	if fn != nil {
		return fn(recipientID, body)
	}
	return model.Message{ID: uuid.New(), SenderID: recipientID, Body: body}, nil
}

func (f *fakeStore) counts() (unread, between int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unreadCalls, f.betweenCalls
}

func (f *fakeStore) markedMessageIDs() []uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]uuid.UUID, len(f.markedMessage))
	copy(out, f.markedMessage)
	return out
}

// fakeFeed is an in-process Feed. Emit delivers the event to every live
// handler synchronously, in subscription order.
type fakeFeed struct {
	mu       sync.Mutex
	handlers map[int]func(realtime.MessageEvent)
	next     int
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{handlers: map[int]func(realtime.MessageEvent){}}
}

func (f *fakeFeed) Subscribe(handler func(realtime.MessageEvent)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.handlers[id] = handler
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers, id)
	}, nil
}

func (f *fakeFeed) Emit(ev realtime.MessageEvent) {
	f.mu.Lock()
	handlers := make([]func(realtime.MessageEvent), 0, len(f.handlers))
	for _, h := range f.handlers {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

func (f *fakeFeed) active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

func unreadMsg(sender, recipient uuid.UUID, conv uuid.UUID, body string, at time.Time) model.Message {
	cid := conv
	return model.Message{
		ID:             uuid.New(),
		ConversationID: &cid,
		SenderID:       sender,
		RecipientID:    recipient,
		Body:           body,
		CreatedAt:      at,
	}
}
