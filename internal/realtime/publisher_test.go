package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"skippy.dog/server/internal/model"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func subscribe(t *testing.T, client *redis.Client, channel string) <-chan *redis.Message {
	t.Helper()

	pubsub := client.Subscribe(context.Background(), channel)
	t.Cleanup(func() { pubsub.Close() })

	_, err := pubsub.Receive(context.Background())
	require.NoError(t, err)
	return pubsub.Channel()
}

func receiveEvent(t *testing.T, ch <-chan *redis.Message) MessageEvent {
	t.Helper()

	select {
	case msg := <-ch:
		var ev MessageEvent
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return MessageEvent{}
	}
}

func TestMessageInsertedReachesBothParticipants(t *testing.T) {
	client := setupRedis(t)
	pub := NewPublisher(client)

	sender := uuid.New()
	recipient := uuid.New()
	conv := uuid.New()

	senderCh := subscribe(t, client, UserChannel(sender))
	recipientCh := subscribe(t, client, UserChannel(recipient))

	msg := model.Message{
		ID:             uuid.New(),
		ConversationID: &conv,
		SenderID:       sender,
		RecipientID:    recipient,
		Body:           "hello",
	}
	pub.MessageInserted(context.Background(), msg)

	for _, ch := range []<-chan *redis.Message{senderCh, recipientCh} {
		ev := receiveEvent(t, ch)
		require.Equal(t, EventMessageInsert, ev.Kind)
		require.Equal(t, msg.ID, ev.Message.ID)
		require.Equal(t, "hello", ev.Message.Body)
	}
}

func TestMessageReadCarriesPreviousFlag(t *testing.T) {
	client := setupRedis(t)
	pub := NewPublisher(client)

	sender := uuid.New()
	recipient := uuid.New()

	recipientCh := subscribe(t, client, UserChannel(recipient))

	now := time.Now()
	msg := model.Message{
		ID:          uuid.New(),
		SenderID:    sender,
		RecipientID: recipient,
		Body:        "hello",
		IsRead:      true,
		ReadAt:      &now,
	}
	pub.MessageRead(context.Background(), msg)

	ev := receiveEvent(t, recipientCh)
	require.Equal(t, EventMessageUpdate, ev.Kind)
	require.True(t, ev.Message.IsRead)
	require.False(t, ev.WasRead)
}

func TestNilClientPublishesNothing(t *testing.T) {
	pub := NewPublisher(nil)

	// Must not panic.
	pub.MessageInserted(context.Background(), model.Message{
		ID:          uuid.New(),
		SenderID:    uuid.New(),
		RecipientID: uuid.New(),
		Body:        "dropped",
	})
}
