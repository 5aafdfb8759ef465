package session

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const BanChannel = "bans"

type banMessage struct {
	UserId int64 `json:"userId"`
}

// RedisBanBus carries ban notifications between server processes over a
// Redis pub/sub channel.
type RedisBanBus struct {
	client *redis.Client
}

func NewRedisBanBus(client *redis.Client) *RedisBanBus {
	return &RedisBanBus{client: client}
}

func (b *RedisBanBus) PublishBan(ctx context.Context, userId int64) error {
	data, err := json.Marshal(banMessage{UserId: userId})
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, BanChannel, data).Err()
}

// Listen calls onBan for every ban published on the channel until ctx is
// done. ready, when not nil, is closed once the subscription is confirmed.
func (b *RedisBanBus) Listen(ctx context.Context, ready chan<- struct{}, onBan func(userId int64)) error {
	sub := b.client.Subscribe(ctx, BanChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	if ready != nil {
		close(ready)
	}

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var ban banMessage
			if err := json.Unmarshal([]byte(msg.Payload), &ban); err != nil || ban.UserId <= 0 {
				slog.Warn("Ignoring malformed ban message", "payload", msg.Payload)
				continue
			}
			onBan(ban.UserId)
		}
	}
}
