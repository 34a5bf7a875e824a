package repository

import (
	"context"
	"sync"
	"time"

	"autoservice/internal/models"
)

type MemoryStateRepository struct {
	states sync.Map
	ttl    time.Duration

	// Счетчики лимитера под мьютексом: инкремент не атомарен для sync.Map
	mu         sync.Mutex
	rateLimits map[int64]*rateLimitEntry
}

func NewMemoryStateRepository(ttl time.Duration) *MemoryStateRepository {
	return &MemoryStateRepository{
		ttl:        ttl,
		rateLimits: make(map[int64]*rateLimitEntry),
	}
}

func (r *MemoryStateRepository) GetState(ctx context.Context, customerID int64) (*models.WizardState, error) {
	val, ok := r.states.Load(customerID)
	if !ok {
		return nil, nil
	}
	return val.(*models.WizardState), nil
}

func (r *MemoryStateRepository) SetState(ctx context.Context, state *models.WizardState) error {
	r.states.Store(state.CustomerID, state)
	return nil
}

func (r *MemoryStateRepository) ClearState(ctx context.Context, customerID int64) error {
	r.states.Delete(customerID)
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryStateRepository) CheckRateLimit(ctx context.Context, customerID int64, limit int, window time.Duration) (bool, error) {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.rateLimits[customerID]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.rateLimits[customerID] = entry
	}

	entry.count++
	return entry.count <= limit, nil
}
