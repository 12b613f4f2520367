package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"skippy.dog/server/internal/model"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&model.Message{}))
	return db
}

func seedMessage(t *testing.T, db *gorm.DB, msg model.Message) model.Message {
	t.Helper()
	require.NoError(t, db.Create(&msg).Error)
	return msg
}

func TestUnreadByRecipientOnlyReturnsUnread(t *testing.T) {
	db := setupDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	viewer := uuid.New()
	sender := uuid.New()
	conv := uuid.New()

	seedMessage(t, db, model.Message{SenderID: sender, RecipientID: viewer, ConversationID: &conv, Body: "one"})
	seedMessage(t, db, model.Message{SenderID: sender, RecipientID: viewer, ConversationID: &conv, Body: "two"})
	seedMessage(t, db, model.Message{SenderID: sender, RecipientID: viewer, ConversationID: &conv, Body: "seen", IsRead: true})
	seedMessage(t, db, model.Message{SenderID: viewer, RecipientID: sender, ConversationID: &conv, Body: "outgoing"})

	unread, err := repo.UnreadByRecipient(ctx, viewer)
	require.NoError(t, err)
	require.Len(t, unread, 2)
	for _, m := range unread {
		require.Equal(t, viewer, m.RecipientID)
		require.False(t, m.IsRead)
	}
}

func TestBetweenParticipantsOrderedBothDirections(t *testing.T) {
	db := setupDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	a := uuid.New()
	b := uuid.New()
	other := uuid.New()

	seedMessage(t, db, model.Message{SenderID: a, RecipientID: b, Body: "hi"})
	seedMessage(t, db, model.Message{SenderID: b, RecipientID: a, Body: "hello"})
	seedMessage(t, db, model.Message{SenderID: a, RecipientID: other, Body: "unrelated"})

	msgs, err := repo.BetweenParticipants(ctx, a, b)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "hi", msgs[0].Body)
	require.Equal(t, "hello", msgs[1].Body)
}

func TestMarkConversationReadReturnsTouchedRows(t *testing.T) {
	db := setupDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	viewer := uuid.New()
	sender := uuid.New()
	conv := uuid.New()

	m1 := seedMessage(t, db, model.Message{SenderID: sender, RecipientID: viewer, ConversationID: &conv, Body: "one"})
	seedMessage(t, db, model.Message{SenderID: sender, RecipientID: viewer, Body: "legacy, no conversation id"})

	marked, err := repo.MarkConversationRead(ctx, conv, viewer)
	require.NoError(t, err)
	require.Len(t, marked, 1)
	require.Equal(t, m1.ID, marked[0].ID)
	require.True(t, marked[0].IsRead)
	require.NotNil(t, marked[0].ReadAt)

	var stored model.Message
	require.NoError(t, db.First(&stored, "id = ?", m1.ID).Error)
	require.True(t, stored.IsRead)
}

func TestMarkSenderReadCoversLegacyRows(t *testing.T) {
	db := setupDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	viewer := uuid.New()
	sender := uuid.New()
	conv := uuid.New()

	// One modern row and one legacy row without a conversation id. The
	// by-conversation predicate alone would miss the legacy one.
	seedMessage(t, db, model.Message{SenderID: sender, RecipientID: viewer, ConversationID: &conv, Body: "modern"})
	seedMessage(t, db, model.Message{SenderID: sender, RecipientID: viewer, Body: "legacy"})

	marked, err := repo.MarkSenderRead(ctx, sender, viewer)
	require.NoError(t, err)
	require.Len(t, marked, 2)

	unread, err := repo.UnreadByRecipient(ctx, viewer)
	require.NoError(t, err)
	require.Empty(t, unread)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	db := setupDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	viewer := uuid.New()
	sender := uuid.New()
	conv := uuid.New()

	seedMessage(t, db, model.Message{SenderID: sender, RecipientID: viewer, ConversationID: &conv, Body: "one"})

	first, err := repo.MarkConversationRead(ctx, conv, viewer)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Second pass matches nothing and must not error.
	second, err := repo.MarkConversationRead(ctx, conv, viewer)
	require.NoError(t, err)
	require.Empty(t, second)
}

func TestMarkMessageReadSkipsAlreadyRead(t *testing.T) {
	db := setupDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	viewer := uuid.New()
	sender := uuid.New()

	msg := seedMessage(t, db, model.Message{SenderID: sender, RecipientID: viewer, Body: "hey"})

	marked, err := repo.MarkMessageRead(ctx, msg.ID, viewer)
	require.NoError(t, err)
	require.NotNil(t, marked)
	require.True(t, marked.IsRead)

	again, err := repo.MarkMessageRead(ctx, msg.ID, viewer)
	require.NoError(t, err)
	require.Nil(t, again)
}

func TestMarkMessageReadRequiresRecipient(t *testing.T) {
	db := setupDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	viewer := uuid.New()
	sender := uuid.New()

	msg := seedMessage(t, db, model.Message{SenderID: sender, RecipientID: viewer, Body: "hey"})

	// The sender cannot flag their own outgoing message as read.
	_, err := repo.MarkMessageRead(ctx, msg.ID, sender)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestMarkAllReadCountsRows(t *testing.T) {
	db := setupDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	viewer := uuid.New()
	sender := uuid.New()
	conv := uuid.New()

	seedMessage(t, db, model.Message{SenderID: sender, RecipientID: viewer, ConversationID: &conv, Body: "one"})
	seedMessage(t, db, model.Message{SenderID: sender, RecipientID: viewer, Body: "two"})
	seedMessage(t, db, model.Message{SenderID: sender, RecipientID: viewer, Body: "read", IsRead: true})

	count, err := repo.MarkAllRead(ctx, viewer)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	unread, err := repo.UnreadByRecipient(ctx, viewer)
	require.NoError(t, err)
	require.Empty(t, unread)
}
