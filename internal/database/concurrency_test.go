package database

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentDuplicateBooking(t *testing.T) {
	logger := zerolog.Nop()
	dbPath := filepath.Join(t.TempDir(), "concurrency.db")
	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	customer := createTestCustomer(t, db, "uid-race")
	date := openDate(db, 2)

	const numGoroutines = 10
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make(chan error, numGoroutines)

	// Две сессии одного клиента жмут подтверждение одновременно
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			results <- db.CreateBookingTx(ctx, newTestBooking(customer, date))
		}()
	}

	wg.Wait()
	close(results)

	successCount := 0
	duplicateCount := 0
	for err := range results {
		switch {
		case err == nil:
			successCount++
		case errors.Is(err, ErrDuplicateBooking):
			duplicateCount++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, successCount, "exactly one commit must win")
	assert.Equal(t, numGoroutines-1, duplicateCount)

	// В календаре ровно одно место занято
	day, err := db.GetDayAvailability(ctx, date)
	require.NoError(t, err)
	assert.Equal(t, int64(1), day.Booked)

	bookings, err := db.GetBookingsByDateRange(ctx, date, date)
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
}

func TestConcurrentSaturation(t *testing.T) {
	logger := zerolog.Nop()
	dbPath := filepath.Join(t.TempDir(), "saturation.db")
	db, err := NewDB(dbPath, &logger, WithDailyCapacity(3))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	date := openDate(db, 2)

	const numCustomers = 8
	var wg sync.WaitGroup
	wg.Add(numCustomers)
	results := make(chan error, numCustomers)

	for i := 0; i < numCustomers; i++ {
		customer := createTestCustomer(t, db, "uid-"+string(rune('a'+i)))
		go func() {
			defer wg.Done()
			results <- db.CreateBookingTx(ctx, newTestBooking(customer, date))
		}()
	}

	wg.Wait()
	close(results)

	successCount := 0
	fullCount := 0
	for err := range results {
		switch {
		case err == nil:
			successCount++
		case errors.Is(err, ErrDateFullyBooked):
			fullCount++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 3, successCount, "commits must stop at the daily capacity")
	assert.Equal(t, numCustomers-3, fullCount)

	day, err := db.GetDayAvailability(ctx, date)
	require.NoError(t, err)
	assert.Equal(t, int64(3), day.Booked)
}
