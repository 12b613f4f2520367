package realtime

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
	"skippy.dog/server/internal/model"
)

// Publisher fans message events out to the per-user redis channels of both
// participants. Delivery is at-least-once from the client's point of view: a
// client holding subscriptions for the viewer feed and a conversation feed
// will observe the same event on both.
type Publisher struct {
	rdb *redis.Client
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

func (p *Publisher) MessageInserted(ctx context.Context, msg model.Message) {
	p.publish(ctx, MessageEvent{Kind: EventMessageInsert, Message: msg})
}

func (p *Publisher) MessageRead(ctx context.Context, msg model.Message) {
	// WasRead=false: read-flag events are only published for rows that were
	// unread when the mutation matched them.
	p.publish(ctx, MessageEvent{Kind: EventMessageUpdate, Message: msg, WasRead: false})
}

func (p *Publisher) publish(ctx context.Context, ev MessageEvent) {
	if p == nil || p.rdb == nil {
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[realtime] failed to marshal event: %v", err)
		return
	}

	channels := []string{UserChannel(ev.Message.SenderID)}
	if ev.Message.RecipientID != ev.Message.SenderID {
		channels = append(channels, UserChannel(ev.Message.RecipientID))
	}

	for _, ch := range channels {
		if err := p.rdb.Publish(ctx, ch, payload).Err(); err != nil {
			log.Printf("[realtime] failed to publish to %s: %v", ch, err)
		}
	}
}
