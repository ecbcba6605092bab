package sessions

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local RevocationStore.
type MemoryStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{revoked: make(map[string]time.Time), now: time.Now}
}

func (s *MemoryStore) Revoke(ctx context.Context, sessionID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, exp := range s.revoked {
		if !exp.After(now) {
			delete(s.revoked, id)
		}
	}
	s.revoked[sessionID] = now.Add(ttl)
	return nil
}

func (s *MemoryStore) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.revoked[sessionID]
	if !ok {
		return false, nil
	}
	if !exp.After(s.now()) {
		delete(s.revoked, sessionID)
		return false, nil
	}
	return true, nil
}

const subscriberBuffer = 8

// MemoryBroker is a process-local Broker.
type MemoryBroker struct {
	mu   sync.Mutex
	subs map[string]map[*memorySub]struct{}
}

type memorySub struct {
	ch   chan Event
	once sync.Once
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string]map[*memorySub]struct{})}
}

func (b *MemoryBroker) Publish(ctx context.Context, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs[ev.UserID] {
		select {
		case sub.ch <- ev:
		default:
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, userID string) (<-chan Event, func(), error) {
	sub := &memorySub{ch: make(chan Event, subscriberBuffer)}

	b.mu.Lock()
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[*memorySub]struct{})
	}
	b.subs[userID][sub] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		sub.once.Do(func() {
			b.mu.Lock()
			delete(b.subs[userID], sub)
			if len(b.subs[userID]) == 0 {
				delete(b.subs, userID)
			}
			close(sub.ch)
			b.mu.Unlock()
		})
	}

	go func() {
		<-ctx.Done()
		cancel()
	}()

	return sub.ch, cancel, nil
}
