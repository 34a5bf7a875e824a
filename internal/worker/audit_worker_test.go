package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"autoservice/internal/database"
	"autoservice/internal/events"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu       sync.Mutex
	entries  []database.AuditEntry
	failures int // первые failures вызовов падают
	calls    int
}

func (s *recordingSink) InsertAuditEntry(ctx context.Context, entry *database.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failures {
		return errors.New("sink is temporarily down")
	}
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *recordingSink) saved(t *testing.T, want int) []database.AuditEntry {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		s.mu.Lock()
		n := len(s.entries)
		entries := append([]database.AuditEntry(nil), s.entries...)
		s.mu.Unlock()
		if n >= want {
			return entries
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected %d audit entries, got %d", want, n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}
}

func startWorker(t *testing.T, w *AuditWorker) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestAuditWorker_PersistsBusEvents(t *testing.T) {
	sink := &recordingSink{}
	logger := zerolog.Nop()
	w := NewAuditWorker(sink, fastRetry(), &logger)

	bus := events.NewEventBus()
	w.Subscribe(bus)
	startWorker(t, w)

	require.NoError(t, bus.PublishJSON(events.EventBookingConfirmed, events.BookingEventPayload{
		BookingID:   42,
		ChangedBy:   "admin",
		ChangedByID: 77,
	}))

	entries := sink.saved(t, 1)
	assert.Equal(t, "booking_confirmed", entries[0].Action)
	assert.Equal(t, int64(42), entries[0].BookingID)
	assert.Equal(t, "admin:77", entries[0].Actor)
}

func TestAuditWorker_SystemActorByDefault(t *testing.T) {
	sink := &recordingSink{}
	logger := zerolog.Nop()
	w := NewAuditWorker(sink, fastRetry(), &logger)

	bus := events.NewEventBus()
	w.Subscribe(bus)
	startWorker(t, w)

	require.NoError(t, bus.PublishJSON(events.EventBookingCreated, events.BookingEventPayload{BookingID: 1}))

	entries := sink.saved(t, 1)
	assert.Equal(t, "system", entries[0].Actor)
}

func TestAuditWorker_RetriesTransientFailure(t *testing.T) {
	sink := &recordingSink{failures: 2}
	logger := zerolog.Nop()
	w := NewAuditWorker(sink, fastRetry(), &logger)
	startWorker(t, w)

	w.Enqueue(database.AuditEntry{Action: "booking_created", Actor: "system"})

	entries := sink.saved(t, 1)
	assert.Equal(t, "booking_created", entries[0].Action)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, 3, sink.calls)
}

func TestAuditWorker_GivesUpAfterMaxRetries(t *testing.T) {
	sink := &recordingSink{failures: 100}
	logger := zerolog.Nop()
	w := NewAuditWorker(sink, fastRetry(), &logger)
	startWorker(t, w)

	w.Enqueue(database.AuditEntry{Action: "booking_created"})

	deadline := time.Now().Add(2 * time.Second)
	for {
		sink.mu.Lock()
		calls := sink.calls
		sink.mu.Unlock()
		if calls >= 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected 3 attempts, got %d", calls)
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Запись не сохранена, ретраи исчерпаны
	time.Sleep(20 * time.Millisecond)
	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Empty(t, sink.entries)
	assert.Equal(t, 3, sink.calls)
}

func TestAuditWorker_DrainsQueueOnShutdown(t *testing.T) {
	sink := &recordingSink{}
	logger := zerolog.Nop()
	w := NewAuditWorker(sink, fastRetry(), &logger)

	for i := 0; i < 5; i++ {
		w.Enqueue(database.AuditEntry{Action: "booking_created"})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Len(t, sink.entries, 5)
}

func TestRetryPolicy_NextDelay(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Second, MaxDelay: 5 * time.Second, BackoffFactor: 2}

	assert.Equal(t, time.Second, policy.NextDelay(1))
	assert.Equal(t, 2*time.Second, policy.NextDelay(2))
	assert.Equal(t, 4*time.Second, policy.NextDelay(3))
	// Потолок
	assert.Equal(t, 5*time.Second, policy.NextDelay(4))
	// Некорректный номер попытки приводится к первому
	assert.Equal(t, time.Second, policy.NextDelay(0))
}
