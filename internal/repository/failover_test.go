package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"autoservice/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokenRepo всегда отвечает ошибкой, имитируя недоступный Redis
func brokenRepo() *RedisStateRepository {
	return NewRedisStateRepository(nil, time.Minute)
}

func TestFailover_FallsBackOnPrimaryError(t *testing.T) {
	logger := zerolog.Nop()
	fallback := NewMemoryStateRepository(time.Hour)
	repo := NewFailoverStateRepository(brokenRepo(), fallback, &logger)
	ctx := context.Background()

	state := &models.WizardState{CustomerID: 10, Step: models.StepDateSelection}
	require.NoError(t, repo.SetState(ctx, state))

	loaded, err := repo.GetState(ctx, 10)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, models.StepDateSelection, loaded.Step)

	// Фолбэк действительно память, не Redis
	direct, err := fallback.GetState(ctx, 10)
	require.NoError(t, err)
	assert.NotNil(t, direct)
}

func TestFailover_UsesPrimaryWhenHealthy(t *testing.T) {
	logger := zerolog.Nop()
	_, primary := setupRedisRepo(t)
	fallback := NewMemoryStateRepository(time.Hour)
	repo := NewFailoverStateRepository(primary, fallback, &logger)
	ctx := context.Background()

	require.NoError(t, repo.SetState(ctx, &models.WizardState{CustomerID: 3, Step: models.StepReview}))

	fromPrimary, err := primary.GetState(ctx, 3)
	require.NoError(t, err)
	assert.NotNil(t, fromPrimary)

	fromFallback, err := fallback.GetState(ctx, 3)
	require.NoError(t, err)
	assert.Nil(t, fromFallback, "healthy primary must not write to fallback")
}

func TestFailover_ClearState(t *testing.T) {
	logger := zerolog.Nop()
	fallback := NewMemoryStateRepository(time.Hour)
	repo := NewFailoverStateRepository(brokenRepo(), fallback, &logger)
	ctx := context.Background()

	require.NoError(t, repo.SetState(ctx, &models.WizardState{CustomerID: 7, Step: models.StepReview}))
	require.NoError(t, repo.ClearState(ctx, 7))

	state, err := repo.GetState(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestFailover_RateLimit(t *testing.T) {
	logger := zerolog.Nop()
	fallback := NewMemoryStateRepository(time.Hour)
	repo := NewFailoverStateRepository(brokenRepo(), fallback, &logger)
	ctx := context.Background()

	allowed, err := repo.CheckRateLimit(ctx, 1, 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	_, err = repo.CheckRateLimit(ctx, 1, 2, time.Minute)
	require.NoError(t, err)

	allowed, err = repo.CheckRateLimit(ctx, 1, 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestMemoryStateRepository_ConcurrentRateLimit(t *testing.T) {
	repo := NewMemoryStateRepository(time.Hour)
	ctx := context.Background()

	const workers = 20
	const limit = 10

	var wg sync.WaitGroup
	var allowedCount atomic.Int64
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed, err := repo.CheckRateLimit(ctx, 1, limit, time.Minute)
			assert.NoError(t, err)
			if allowed {
				allowedCount.Add(1)
			}
		}()
	}
	wg.Wait()

	// Конкурентные инкременты не теряются и не пропускают лишних
	assert.Equal(t, int64(limit), allowedCount.Load())
}

func TestFailover_ConcurrentRequests(t *testing.T) {
	logger := zerolog.Nop()
	fallback := NewMemoryStateRepository(time.Hour)
	repo := NewFailoverStateRepository(brokenRepo(), fallback, &logger)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(customerID int64) {
			defer wg.Done()
			state := &models.WizardState{CustomerID: customerID, Step: models.StepReview}
			assert.NoError(t, repo.SetState(ctx, state))

			loaded, err := repo.GetState(ctx, customerID)
			assert.NoError(t, err)
			assert.NotNil(t, loaded)

			_, err = repo.CheckRateLimit(ctx, customerID, 5, time.Minute)
			assert.NoError(t, err)
		}(int64(i + 1))
	}
	wg.Wait()
}

func TestMemoryStateRepository_RateLimitWindowReset(t *testing.T) {
	repo := NewMemoryStateRepository(time.Hour)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := repo.CheckRateLimit(ctx, 1, 2, 10*time.Millisecond)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := repo.CheckRateLimit(ctx, 1, 2, 10*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, allowed)

	time.Sleep(20 * time.Millisecond)

	allowed, err = repo.CheckRateLimit(ctx, 1, 2, 10*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, allowed, "window expiry must reset the counter")
}
