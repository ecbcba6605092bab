package refreshtokens

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/equiplookup/internal/common"
	"github.com/dmitrijs2005/equiplookup/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps refresh tokens in process memory.
type MemoryRepository struct {
	mu     sync.Mutex
	tokens map[string]models.RefreshToken
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{tokens: make(map[string]models.RefreshToken)}
}

func (r *MemoryRepository) Create(ctx context.Context, userID, sessionID, token string, validity time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.tokens[token] = models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		SessionID: sessionID,
		Token:     token,
		Expires:   now.Add(validity),
		CreatedAt: now,
	}
	return nil
}

func (r *MemoryRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rt, ok := r.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &rt, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tokens, token)
	return nil
}

func (r *MemoryRepository) DeleteByUser(ctx context.Context, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{})
	var sessions []string
	for token, rt := range r.tokens {
		if rt.UserID != userID {
			continue
		}
		delete(r.tokens, token)
		if _, ok := seen[rt.SessionID]; !ok {
			seen[rt.SessionID] = struct{}{}
			sessions = append(sessions, rt.SessionID)
		}
	}
	return sessions, nil
}
