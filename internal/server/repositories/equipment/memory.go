package equipment

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/equiplookup/internal/common"
	"github.com/dmitrijs2005/equiplookup/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps the catalog in process memory. Batches are
// admitted under one lock, so a failing batch leaves no rows behind.
type MemoryRepository struct {
	mu      sync.RWMutex
	records []models.Equipment
	serials map[string]struct{}
	now     func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		serials: make(map[string]struct{}),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepository) Create(ctx context.Context, e *models.Equipment) (*models.Equipment, error) {
	out, err := r.InsertBatch(ctx, []models.Equipment{*e})
	if err != nil {
		return nil, err
	}
	*e = out[0]
	return e, nil
}

func (r *MemoryRepository) InsertBatch(ctx context.Context, batch []models.Equipment) ([]models.Equipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending := make(map[string]struct{}, len(batch))
	for _, e := range batch {
		if _, ok := r.serials[e.SerialNumber]; ok {
			return nil, fmt.Errorf("serial number %q: %w", e.SerialNumber, common.ErrAlreadyExists)
		}
		if _, ok := pending[e.SerialNumber]; ok {
			return nil, fmt.Errorf("serial number %q: %w", e.SerialNumber, common.ErrAlreadyExists)
		}
		pending[e.SerialNumber] = struct{}{}
	}

	out := make([]models.Equipment, 0, len(batch))
	for _, e := range batch {
		e.ID = uuid.NewString()
		e.CreatedAt = r.now()
		r.records = append(r.records, e)
		r.serials[e.SerialNumber] = struct{}{}
		out = append(out, e)
	}
	return out, nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]models.Equipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Equipment, 0, len(r.records))
	for i := len(r.records) - 1; i >= 0; i-- {
		out = append(out, r.records[i])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) SearchBySerial(ctx context.Context, pattern string) ([]models.Equipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(pattern)
	out := make([]models.Equipment, 0)
	for _, e := range r.records {
		if strings.Contains(strings.ToLower(e.SerialNumber), needle) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SerialNumber < out[j].SerialNumber })
	return out, nil
}
