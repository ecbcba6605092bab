package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/equiplookup/internal/logging"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "equiplookup:"

func revokedKey(sessionID string) string {
	return keyPrefix + "revoked:" + sessionID
}

func eventsChannel(userID string) string {
	return keyPrefix + "events:" + userID
}

// RedisStore keeps revoked session ids as expiring redis keys, so every
// server instance sharing the redis sees the same revocations.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Revoke(ctx context.Context, sessionID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, revokedKey(sessionID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis revoke: %w", err)
	}
	return nil
}

func (s *RedisStore) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// RedisBroker publishes events on a per-user redis pub/sub channel.
type RedisBroker struct {
	client redis.UniversalClient
	logger logging.Logger
}

func NewRedisBroker(client redis.UniversalClient, logger logging.Logger) *RedisBroker {
	return &RedisBroker{client: client, logger: logger.With("module", "sessions.redis")}
}

func (b *RedisBroker) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, eventsChannel(ev.UserID), payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, userID string) (<-chan Event, func(), error) {
	ps := b.client.Subscribe(ctx, eventsChannel(userID))
	// Receive blocks until the subscription is confirmed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan Event, subscriberBuffer)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() { once.Do(func() { close(done) }) }

	go func() {
		defer close(out)
		defer ps.Close()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				ev, err := decodeEvent(msg.Payload)
				if err != nil {
					b.logger.Warn(ctx, "dropping malformed auth event", "error", err)
					continue
				}
				select {
				case out <- ev:
				default:
				}
			}
		}
	}()

	return out, cancel, nil
}

func decodeEvent(payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, err
	}
	if ev.Type == "" || ev.UserID == "" {
		return Event{}, fmt.Errorf("incomplete event %q", payload)
	}
	return ev, nil
}
